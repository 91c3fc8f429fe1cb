package api

import "testing"

func TestPofDigest(t *testing.T) {
	p := &Pof{Type: "pow", Nonce: "SqW2BnheNCQroHgJpw", Expiration: 1700086400}
	if got := p.Digest(); got != "pow:1700086400:SqW2BnheNCQroHgJpw" {
		t.Errorf("digest mismatch: %q", got)
	}
}

func TestPofSignVerify(t *testing.T) {
	issuer := stKeypair(t, 0x04)
	p := &Pof{Type: "pow", Nonce: "SqW2BnheNCQroHgJpw", Expiration: 1700086400}
	p.Sign(issuer.Private())

	if err := p.VerifyWith(issuer.Public()); err != nil {
		t.Errorf("verify: %v", err)
	}

	// A pof carries no signer key, so verification binds it to the
	// issuer the caller names.
	other := stKeypair(t, 0x05)
	if err := p.VerifyWith(other.Public()); err != ErrSignature {
		t.Errorf("expected ErrSignature for wrong issuer, got %v", err)
	}

	p.Expiration++
	if err := p.VerifyWith(issuer.Public()); err != ErrSignature {
		t.Errorf("expected ErrSignature after tamper, got %v", err)
	}
}
