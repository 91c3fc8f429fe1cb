package api

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

func TestParseKey(t *testing.T) {
	kp := stKeypair(t, 0x10)

	parsed, err := ParseKey(kp.Public().String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != kp.Public() {
		t.Error("round trip mismatch")
	}

	if _, err := ParseKey("c2hvcnQ"); err != ErrKeySize {
		t.Errorf("expected ErrKeySize for short input, got %v", err)
	}
	if _, err := ParseKey("not!base64"); err == nil {
		t.Error("expected error for malformed base64")
	}
	// Padded base64 is not the wire form.
	if _, err := ParseKey(kp.Public().String() + "="); err == nil {
		t.Error("expected error for padded input")
	}
}

func TestParseSignature(t *testing.T) {
	kp := stKeypair(t, 0x11)
	sig := SignatureFromBytes(ed25519.Sign(kp.Private(), []byte("msg")))

	parsed, err := ParseSignature(sig.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != sig {
		t.Error("round trip mismatch")
	}

	if _, err := ParseSignature(kp.Public().String()); err != ErrSignatureSize {
		t.Errorf("expected ErrSignatureSize for key-sized input, got %v", err)
	}
}

func TestKeypairText(t *testing.T) {
	kp := stKeypair(t, 0x12)

	text, err := kp.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Keypair
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Public() != kp.Public() {
		t.Error("seed round trip lost the key")
	}
	if !bytes.Equal(back.Private(), kp.Private()) {
		t.Error("seed round trip lost the private key")
	}
}

func TestKeypairFromSeedSize(t *testing.T) {
	if _, err := KeypairFromSeed(make([]byte, 16)); err != ErrSeedSize {
		t.Errorf("expected ErrSeedSize, got %v", err)
	}
}

func TestNewKeypair(t *testing.T) {
	a, err := NewKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := NewKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Public() == b.Public() {
		t.Error("two generated keypairs share a public key")
	}
}
