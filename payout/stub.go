// stub.go is the built-in "dummy" payment system used for local runs
// and tests. It accepts every withdrawal and recognizes two magic
// destinations: "want_error" refuses the withdrawal outright and
// "want_pending" leaves it pending until the first status poll.
package payout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wireskip/contract/api"
	"github.com/wireskip/contract/log"
)

// Stub is an in-process payment system. When verifyURL names a
// contract endpoint, every incoming withdrawal is first echoed to its
// /verify-withdrawal-request before being accepted.
type Stub struct {
	verifyURL string
	client    *http.Client
	log       *log.Logger

	mu          sync.Mutex
	withdrawals map[string]*api.Withdrawal
}

// NewStub creates a stub payment system. verifyURL may be empty to
// skip the verification callback.
func NewStub(verifyURL string, logger *log.Logger) *Stub {
	return &Stub{
		verifyURL:   verifyURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		log:         logger.Module("payout.stub"),
		withdrawals: make(map[string]*api.Withdrawal),
	}
}

// Router returns the stub's HTTP surface: POST /withdrawals and
// GET /withdrawals/{id}.
func (s *Stub) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/withdrawals", s.create)
	r.Get("/withdrawals/{id}", s.state)
	return r
}

func (s *Stub) create(w http.ResponseWriter, r *http.Request) {
	var wr api.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&wr); err != nil {
		stubStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.verify(&wr); err != nil {
		stubStatus(w, http.StatusInternalServerError, err.Error())
		return
	}

	state := api.WithdrawalComplete
	switch wr.Destination {
	case "want_error":
		stubStatus(w, http.StatusBadRequest, "as requested, withdrawal failed with error!")
		return
	case "want_pending":
		state = api.WithdrawalPending
	}

	wd := &api.Withdrawal{
		ID: uuid.NewString(),
		StateData: api.WithdrawalStateData{
			State:        state,
			StateChanged: time.Now().Unix(),
		},
		Request: wr,
		Receipt: "RECEIPT",
	}
	s.mu.Lock()
	s.withdrawals[wd.ID] = wd
	s.mu.Unlock()
	s.log.Info("withdrawal accepted", "id", wd.ID, "state", state, "amount", wr.Amount)
	stubJSON(w, http.StatusOK, wd)
}

// state reports a withdrawal's state. A pending withdrawal completes
// on its first poll, which exercises the contract's watcher path.
func (s *Stub) state(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	wd, ok := s.withdrawals[id]
	if ok && wd.StateData.State == api.WithdrawalPending {
		wd.StateData = api.WithdrawalStateData{
			State:        api.WithdrawalComplete,
			StateChanged: time.Now().Unix(),
		}
	}
	s.mu.Unlock()
	if !ok {
		stubStatus(w, http.StatusNotFound, "no such withdrawal")
		return
	}
	stubJSON(w, http.StatusOK, wd.StateData)
}

// verify echoes the request to the contract's verification endpoint
// and accepts any 200 answer.
func (s *Stub) verify(wr *api.WithdrawalRequest) error {
	if s.verifyURL == "" {
		return nil
	}
	body, err := json.Marshal(wr)
	if err != nil {
		return fmt.Errorf("could not serialize withdrawal request: %w", err)
	}
	path, err := url.JoinPath(s.verifyURL, "verify-withdrawal-request")
	if err != nil {
		return fmt.Errorf("could not build verification URL: %w", err)
	}
	resp, err := s.client.Post(path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not verify withdrawal request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("withdrawal request verification returned %s", resp.Status)
	}
	return nil
}

func stubJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func stubStatus(w http.ResponseWriter, code int, desc string) {
	stubJSON(w, code, &api.Status{Code: uint16(code), Description: desc})
}
