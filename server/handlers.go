// handlers.go implements the endpoint table. Recoverable errors become
// the uniform Status JSON body with a matching HTTP code.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/metrics"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, desc string) {
	writeJSON(w, code, &api.Status{Code: uint16(code), Description: desc})
}

// signedBy verifies a request's detached signature headers and requires
// the expected signatory.
func signedBy(r *http.Request, who api.Signatory) (*api.SignerInfo, []byte, error) {
	signer, body, err := api.VerifyHeaders(r)
	if err != nil {
		return nil, nil, err
	}
	if signer.Signatory != who {
		return nil, nil, fmt.Errorf("api: %s signature required", who)
	}
	return signer, body, nil
}

// --- public info ---

func (s *Server) infoGet(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	pub := s.public
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, pub)
}

// --- relay directory ---

// relaysGet serves the directory view. The response body is signed
// with the directory headers so clients can pin the answering key.
func (s *Server) relaysGet(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	body, err := json.Marshal(s.relays)
	s.mu.RUnlock()
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.SignHeaders(w.Header(), api.SignatoryDirectory, s.keypair.Private(), body)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) relaysPost(w http.ResponseWriter, r *http.Request) {
	signer, body, err := signedBy(r, api.SignatoryRelay)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	var relay api.Relay
	if err := json.Unmarshal(body, &relay); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if !relay.Role.Valid() {
		writeStatus(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", relay.Role))
		return
	}
	if relay.Pubkey != signer.PublicKey {
		writeStatus(w, http.StatusBadRequest, "relay key does not match signing key")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.relays[relay.Address]; ok {
		// Re-enrollment replaces the previous record.
		if !s.public.Enrollment.Role(prev.Role).Record(-1) {
			s.log.Warn("enrollment underflow", "role", prev.Role, "address", prev.Address)
		}
	}
	if !s.public.Enrollment.Role(relay.Role).Record(1) {
		writeStatus(w, http.StatusInternalServerError, "Too many relays!")
		return
	}
	s.relays[relay.Address] = relay
	metrics.RelaysEnrolled.Set(int64(len(s.relays)))
	s.log.Info("relay enrolled",
		"address", relay.Address, "role", relay.Role, "pubkey", relay.Pubkey.String())
	writeStatus(w, http.StatusOK, "OK")
}

func (s *Server) relaysDelete(w http.ResponseWriter, r *http.Request) {
	signer, body, err := signedBy(r, api.SignatoryRelay)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	var relay api.Relay
	if err := json.Unmarshal(body, &relay); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if relay.Pubkey != signer.PublicKey {
		writeStatus(w, http.StatusBadRequest, "relay key does not match signing key")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.relays[relay.Address]
	if !ok {
		writeStatus(w, http.StatusNotFound, "No such relay")
		return
	}
	if !s.public.Enrollment.Role(prev.Role).Record(-1) {
		s.log.Warn("enrollment underflow", "role", prev.Role, "address", prev.Address)
	}
	delete(s.relays, relay.Address)
	metrics.RelaysEnrolled.Set(int64(len(s.relays)))
	s.log.Info("relay withdrawn", "address", relay.Address, "role", prev.Role)
	writeStatus(w, http.StatusOK, "OK")
}

// --- sharetoken intake ---

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	st := &api.Sharetoken{}
	if err := api.UnmarshalSigned(body, st); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if st.Contract.PublicKey != s.keypair.Public() {
		writeStatus(w, http.StatusBadRequest, "Sharetoken is not for this contract")
		return
	}
	s.tracker.Submit(st)
	writeStatus(w, http.StatusOK, "OK")
}

// --- issuance ---

func (s *Server) issueAccesskeys(w http.ResponseWriter, r *http.Request) {
	_, body, err := signedBy(r, api.SignatoryAuth)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	var req api.AccesskeyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.RLock()
	endpoint := s.public.Endpoint
	version := s.public.Version
	s.mu.RUnlock()

	pofs := make([]api.Pof, 0, req.Quantity)
	for i := uint64(0); i < req.Quantity; i++ {
		pofs = append(pofs, s.mintPof(req.Type, req.Duration))
	}
	s.log.Info("accesskeys issued", "type", req.Type, "quantity", req.Quantity)
	writeJSON(w, http.StatusOK, &api.Accesskey{
		Version:  version,
		Contract: api.Contract{Endpoint: endpoint, PublicKey: s.keypair.Public()},
		Pofs:     pofs,
	})
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	_, body, err := signedBy(r, api.SignatoryClient)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	var req api.ActivationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().Unix()
	if req.Pof.Expiration < now {
		writeStatus(w, http.StatusBadRequest, "pof expired")
		return
	}
	if !s.pofAccepted(&req.Pof) {
		writeStatus(w, http.StatusBadRequest, api.ErrSignature.Error())
		return
	}

	s.mu.RLock()
	skd := s.public.Servicekey.Duration.Unix()
	subw := s.public.Settlement.SubmissionWindow.Unix()
	s.mu.RUnlock()

	skc := api.SKContract{
		SettlementOpen:  now + skd,
		SettlementClose: now + skd + subw,
	}
	skc.Sign(s.keypair.Private())
	s.log.Info("servicekey activated",
		"pubkey", req.Pubkey.String(),
		"settlement_open", skc.SettlementOpen,
		"settlement_close", skc.SettlementClose)
	writeJSON(w, http.StatusOK, &skc)
}

// --- withdrawals ---

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	signer, body, err := signedBy(r, api.SignatoryRelay)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	var req api.WithdrawalRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.RLock()
	minW, maxW := s.public.Payout.MinWithdrawal, s.public.Payout.MaxWithdrawal
	s.mu.RUnlock()
	if minW != nil && req.Amount < *minW {
		writeStatus(w, http.StatusInternalServerError,
			fmt.Sprintf("withdrawal below minimum of %d", *minW))
		return
	}
	if maxW != nil && req.Amount > *maxW {
		writeStatus(w, http.StatusInternalServerError,
			fmt.Sprintf("withdrawal above maximum of %d", *maxW))
		return
	}

	wd, err := s.payout.Withdraw(r.Context(), signer.PublicKey.String(), &req)
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func (s *Server) payoutBalance(w http.ResponseWriter, r *http.Request) {
	signer, _, err := signedBy(r, api.SignatoryRelay)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	available, pending := s.tracker.Ledger().Balance(signer.PublicKey.String())
	s.mu.RLock()
	currency := s.public.Servicekey.Currency
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, &api.BalanceView{
		Currency:  currency,
		Available: available,
		Pending:   pending,
	})
}

// verifyWithdrawal answers the payment system's verification callback.
// Any well-formed withdrawal request is acceptable.
func (s *Server) verifyWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req api.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	writeStatus(w, http.StatusOK, "OK")
}
