package api

import (
	"crypto/ed25519"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrSignature is returned when a record's embedded signature does not
// verify against its digest.
var ErrSignature = errors.New("api: invalid signature")

// Digests are the canonical signing form of a record: the ordered field
// values joined by ":". Integers render in base 10, keys and signatures
// in base64, nested records as their own digest. A record's own
// signature field never contributes to its digest.

// SKContract is the activation receipt a client holds for a servicekey:
// the contract's promise to settle sharetokens signed by that key
// within (settlement_open, settlement_close].
type SKContract struct {
	PublicKey       Key       `json:"public_key"`
	Signature       Signature `json:"signature"`
	SettlementOpen  int64     `json:"settlement_open"`
	SettlementClose int64     `json:"settlement_close"`
}

// Digest is the signing form: pk:settlement_open:settlement_close.
func (c *SKContract) Digest() string {
	return strings.Join([]string{
		c.PublicKey.String(),
		strconv.FormatInt(c.SettlementOpen, 10),
		strconv.FormatInt(c.SettlementClose, 10),
	}, ":")
}

// DigestWithSig is the digest with the signature in field position,
// used when the contract is embedded in an outer signed record.
func (c *SKContract) DigestWithSig() string {
	return strings.Join([]string{
		c.PublicKey.String(),
		c.Signature.String(),
		strconv.FormatInt(c.SettlementOpen, 10),
		strconv.FormatInt(c.SettlementClose, 10),
	}, ":")
}

// Sign sets the public key and signature from priv.
func (c *SKContract) Sign(priv ed25519.PrivateKey) {
	c.PublicKey = KeyFromPublic(priv.Public().(ed25519.PublicKey))
	c.Signature = SignatureFromBytes(ed25519.Sign(priv, []byte(c.Digest())))
}

// Verify checks the embedded signature against the digest.
func (c *SKContract) Verify() error {
	if !ed25519.Verify(c.PublicKey.Ed25519(), []byte(c.Digest()), c.Signature[:]) {
		return ErrSignature
	}
	return nil
}

// Sharetoken attests that a relay rendered one unit of service to the
// holder of a servicekey. The servicekey holder signs it; the relay
// submits it for settlement. ShareKey is reserved and stays empty.
type Sharetoken struct {
	Version     uint8      `json:"version"`
	PublicKey   Key        `json:"public_key"`
	Timestamp   int64      `json:"timestamp"`
	RelayPubkey Key        `json:"relay_pubkey"`
	ShareKey    string     `json:"share_key"`
	Nonce       string     `json:"nonce"`
	Signature   Signature  `json:"signature"`
	Contract    SKContract `json:"contract"`
}

// Digest is the signing form. The embedded contract contributes its
// digest-with-signature so the token pins the exact activation receipt.
func (st *Sharetoken) Digest() string {
	return strings.Join([]string{
		strconv.FormatUint(uint64(st.Version), 10),
		st.PublicKey.String(),
		strconv.FormatInt(st.Timestamp, 10),
		st.RelayPubkey.String(),
		st.ShareKey,
		st.Nonce,
		st.Contract.DigestWithSig(),
	}, ":")
}

// Sign sets the servicekey public key and signature from priv.
func (st *Sharetoken) Sign(priv ed25519.PrivateKey) {
	st.PublicKey = KeyFromPublic(priv.Public().(ed25519.PublicKey))
	st.Signature = SignatureFromBytes(ed25519.Sign(priv, []byte(st.Digest())))
}

// Verify checks the servicekey signature against the digest.
func (st *Sharetoken) Verify() error {
	if !ed25519.Verify(st.PublicKey.Ed25519(), []byte(st.Digest()), st.Signature[:]) {
		return ErrSignature
	}
	return nil
}

// Subdir is the store path fragment <servicekey>/<relay>.
func (st *Sharetoken) Subdir() string {
	return filepath.Join(st.PublicKey.String(), st.RelayPubkey.String())
}

// Filename is the token's unique name in the store: its signature.
func (st *Sharetoken) Filename() string {
	return st.Signature.String()
}

// Path is the token's full relative store path.
func (st *Sharetoken) Path() string {
	return filepath.Join(st.Subdir(), st.Filename())
}
