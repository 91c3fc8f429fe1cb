package api

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Signatory names the keyholder vouching for a header-signed request.
type Signatory string

const (
	SignatoryAuth      Signatory = "auth"
	SignatoryRelay     Signatory = "relay"
	SignatoryClient    Signatory = "client"
	SignatoryContract  Signatory = "contract"
	SignatoryDirectory Signatory = "directory"
)

// Valid reports whether s names a known signatory.
func (s Signatory) Valid() bool {
	switch s {
	case SignatoryAuth, SignatoryRelay, SignatoryClient, SignatoryContract, SignatoryDirectory:
		return true
	}
	return false
}

var (
	ErrMissingHeaders   = errors.New("api: missing headers")
	ErrDuplicateHeaders = errors.New("api: duplicate headers")
)

// SignerInfo identifies the verified author of a header-signed request.
type SignerInfo struct {
	Signatory Signatory
	PublicKey Key
	Signature Signature
}

// headerName builds wireleap-<signatory>-<field>.
func headerName(s Signatory, field string) string {
	return "wireleap-" + string(s) + "-" + field
}

// VerifyHeaders authenticates a request carrying detached
// wireleap-<signatory>-{pubkey,signature} headers. The signature is
// checked over the raw body bytes before any parsing; the consumed body
// is returned for the caller to decode. Exactly one complete header
// pair may be present: repeated values or pairs from several
// signatories are rejected.
func VerifyHeaders(r *http.Request) (*SignerInfo, []byte, error) {
	type pair struct {
		pubkey    string
		signature string
	}
	pairs := make(map[Signatory]*pair)

	for name, values := range r.Header {
		parts := strings.Split(strings.ToLower(name), "-")
		if len(parts) != 3 || parts[0] != "wireleap" {
			continue
		}
		who := Signatory(parts[1])
		if !who.Valid() {
			continue
		}
		field := parts[2]
		if field != "pubkey" && field != "signature" {
			continue
		}
		if len(values) != 1 {
			return nil, nil, ErrDuplicateHeaders
		}
		p := pairs[who]
		if p == nil {
			p = &pair{}
			pairs[who] = p
		}
		switch field {
		case "pubkey":
			p.pubkey = values[0]
		case "signature":
			p.signature = values[0]
		}
	}

	if len(pairs) == 0 {
		return nil, nil, ErrMissingHeaders
	}
	if len(pairs) > 1 {
		return nil, nil, ErrDuplicateHeaders
	}

	var who Signatory
	var p *pair
	for s, v := range pairs {
		who, p = s, v
	}
	if p.pubkey == "" || p.signature == "" {
		return nil, nil, ErrMissingHeaders
	}

	pk, err := ParseKey(p.pubkey)
	if err != nil {
		return nil, nil, err
	}
	sig, err := ParseSignature(p.signature)
	if err != nil {
		return nil, nil, err
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("api: read body: %w", err)
		}
	}

	if !ed25519.Verify(pk.Ed25519(), body, sig[:]) {
		return nil, nil, ErrSignature
	}

	return &SignerInfo{Signatory: who, PublicKey: pk, Signature: sig}, body, nil
}

// SignHeaders signs body with priv and sets the matching
// wireleap-<signatory>-{pubkey,signature} pair on h. Used both for
// signing responses (the directory view) and by clients in tests.
func SignHeaders(h http.Header, who Signatory, priv ed25519.PrivateKey, body []byte) {
	pk := KeyFromPublic(priv.Public().(ed25519.PublicKey))
	sig := SignatureFromBytes(ed25519.Sign(priv, body))
	h.Set(headerName(who, "pubkey"), pk.String())
	h.Set(headerName(who, "signature"), sig.String())
}
