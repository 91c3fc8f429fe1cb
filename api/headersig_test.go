package api

import (
	"bytes"
	"crypto/ed25519"
	"net/http/httptest"
	"testing"
)

func TestVerifyHeadersOK(t *testing.T) {
	kp := stKeypair(t, 0x06)
	body := []byte(`{"quantity":3}`)

	r := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), body)

	si, got, err := VerifyHeaders(r)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if si.Signatory != SignatoryRelay {
		t.Errorf("expected relay signatory, got %q", si.Signatory)
	}
	if si.PublicKey != kp.Public() {
		t.Error("signer key mismatch")
	}
	if !bytes.Equal(got, body) {
		t.Errorf("body mismatch: %q", got)
	}
}

func TestVerifyHeadersEmptyBody(t *testing.T) {
	kp := stKeypair(t, 0x07)

	// GET requests sign the empty body.
	r := httptest.NewRequest("GET", "/payout/balance", nil)
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), nil)

	si, body, err := VerifyHeaders(r)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
	if si.PublicKey != kp.Public() {
		t.Error("signer key mismatch")
	}
}

func TestVerifyHeadersMissing(t *testing.T) {
	r := httptest.NewRequest("POST", "/submit", bytes.NewReader([]byte("{}")))
	if _, _, err := VerifyHeaders(r); err != ErrMissingHeaders {
		t.Errorf("expected ErrMissingHeaders, got %v", err)
	}
}

func TestVerifyHeadersHalfPair(t *testing.T) {
	kp := stKeypair(t, 0x08)

	r := httptest.NewRequest("POST", "/submit", bytes.NewReader([]byte("{}")))
	r.Header.Set("Wireleap-Relay-Pubkey", kp.Public().String())

	if _, _, err := VerifyHeaders(r); err != ErrMissingHeaders {
		t.Errorf("expected ErrMissingHeaders for pubkey without signature, got %v", err)
	}
}

func TestVerifyHeadersTwoSignatories(t *testing.T) {
	kp := stKeypair(t, 0x09)
	body := []byte("{}")

	r := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), body)
	SignHeaders(r.Header, SignatoryClient, kp.Private(), body)

	if _, _, err := VerifyHeaders(r); err != ErrDuplicateHeaders {
		t.Errorf("expected ErrDuplicateHeaders, got %v", err)
	}
}

func TestVerifyHeadersRepeatedValue(t *testing.T) {
	kp := stKeypair(t, 0x0A)
	body := []byte("{}")

	r := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), body)
	r.Header.Add("Wireleap-Relay-Pubkey", kp.Public().String())

	if _, _, err := VerifyHeaders(r); err != ErrDuplicateHeaders {
		t.Errorf("expected ErrDuplicateHeaders, got %v", err)
	}
}

func TestVerifyHeadersBadSignature(t *testing.T) {
	kp := stKeypair(t, 0x0B)

	// Signed over a different body than the one sent.
	r := httptest.NewRequest("POST", "/submit", bytes.NewReader([]byte(`{"a":1}`)))
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), []byte(`{"a":2}`))

	if _, _, err := VerifyHeaders(r); err != ErrSignature {
		t.Errorf("expected ErrSignature, got %v", err)
	}
}

func TestVerifyHeadersUnknownSignatoryIgnored(t *testing.T) {
	r := httptest.NewRequest("POST", "/submit", bytes.NewReader([]byte("{}")))
	r.Header.Set("Wireleap-Nobody-Pubkey", "x")
	r.Header.Set("Wireleap-Nobody-Signature", "y")

	if _, _, err := VerifyHeaders(r); err != ErrMissingHeaders {
		t.Errorf("expected ErrMissingHeaders, got %v", err)
	}
}

func TestVerifyHeadersBadKeyEncoding(t *testing.T) {
	kp := stKeypair(t, 0x0C)
	body := []byte("{}")

	r := httptest.NewRequest("POST", "/submit", bytes.NewReader(body))
	SignHeaders(r.Header, SignatoryRelay, kp.Private(), body)
	r.Header.Set("Wireleap-Relay-Pubkey", "not!base64")

	if _, _, err := VerifyHeaders(r); err == nil {
		t.Error("expected error for malformed pubkey header")
	}
}

func TestSignHeadersRoundTrip(t *testing.T) {
	kp := stKeypair(t, 0x0D)
	body := []byte(`[{"address":"r1.example.com:13490"}]`)

	// The directory view signs response bodies the same way clients
	// sign requests.
	w := httptest.NewRecorder()
	SignHeaders(w.Header(), SignatoryDirectory, kp.Private(), body)

	pk, err := ParseKey(w.Header().Get("Wireleap-Directory-Pubkey"))
	if err != nil {
		t.Fatalf("parse pubkey header: %v", err)
	}
	sig, err := ParseSignature(w.Header().Get("Wireleap-Directory-Signature"))
	if err != nil {
		t.Fatalf("parse signature header: %v", err)
	}
	if pk != kp.Public() {
		t.Error("pubkey header mismatch")
	}
	if !ed25519.Verify(pk.Ed25519(), body, sig[:]) {
		t.Error("signature header does not verify over body")
	}
}

func TestSignatoryValid(t *testing.T) {
	for _, s := range []Signatory{SignatoryAuth, SignatoryRelay, SignatoryClient, SignatoryContract, SignatoryDirectory} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Signatory("nobody").Valid() {
		t.Error("unknown signatory should be invalid")
	}
}
