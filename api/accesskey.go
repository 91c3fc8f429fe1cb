package api

import (
	"crypto/ed25519"
	"strconv"
	"strings"
)

// Pof is a proof of funding: a nonce signed by the contract, redeemable
// once for a servicekey activation of the matching type.
type Pof struct {
	Type       string    `json:"type"`
	Nonce      string    `json:"nonce"`
	Expiration int64     `json:"expiration"`
	Signature  Signature `json:"signature"`
}

// Digest is the signing form: type:expiration:nonce.
func (p *Pof) Digest() string {
	return strings.Join([]string{
		p.Type,
		strconv.FormatInt(p.Expiration, 10),
		p.Nonce,
	}, ":")
}

// Sign sets the signature from priv. Pofs carry no signer key of their
// own; the issuing contract's key is known from context.
func (p *Pof) Sign(priv ed25519.PrivateKey) {
	p.Signature = SignatureFromBytes(ed25519.Sign(priv, []byte(p.Digest())))
}

// VerifyWith checks the signature against the given issuer key.
func (p *Pof) VerifyWith(issuer Key) error {
	if !ed25519.Verify(issuer.Ed25519(), []byte(p.Digest()), p.Signature[:]) {
		return ErrSignature
	}
	return nil
}

// Contract points an accesskey holder at the issuing contract.
type Contract struct {
	Endpoint  string `json:"endpoint"`
	PublicKey Key    `json:"public_key"`
}

// AccesskeyRequest asks for quantity pofs of the given type, each
// expiring duration seconds after issue.
type AccesskeyRequest struct {
	Type     string `json:"type"`
	Quantity uint64 `json:"quantity"`
	Duration int64  `json:"duration"`
}

// Accesskey is a bundle of freshly minted pofs bound to this contract.
type Accesskey struct {
	Version  string   `json:"version"`
	Contract Contract `json:"contract"`
	Pofs     []Pof    `json:"pofs"`
}

// ActivationRequest redeems a pof for a servicekey contract on the
// submitted servicekey public key.
type ActivationRequest struct {
	Pubkey Key `json:"pubkey"`
	Pof    Pof `json:"pof"`
}
