package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// Wire encoding for all key and signature material: URL-safe base64
// without padding.
var b64 = base64.RawURLEncoding

var (
	ErrKeySize       = errors.New("api: invalid public key length")
	ErrSignatureSize = errors.New("api: invalid signature length")
	ErrSeedSize      = errors.New("api: invalid keypair seed length")
)

// Key is a 32-byte Ed25519 public key rendering as base64 in JSON.
type Key [ed25519.PublicKeySize]byte

// KeyFromPublic copies an ed25519 public key into a Key.
func KeyFromPublic(pk ed25519.PublicKey) Key {
	var k Key
	copy(k[:], pk)
	return k
}

// ParseKey decodes the base64 form of a public key.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := b64.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("api: decode public key: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return k, ErrKeySize
	}
	copy(k[:], b)
	return k, nil
}

// Ed25519 returns the key in the form crypto/ed25519 expects.
func (k Key) Ed25519() ed25519.PublicKey { return ed25519.PublicKey(k[:]) }

func (k Key) String() string { return b64.EncodeToString(k[:]) }

func (k Key) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signature is a 64-byte Ed25519 signature rendering as base64 in JSON.
type Signature [ed25519.SignatureSize]byte

// SignatureFromBytes copies a raw signature into a Signature.
func SignatureFromBytes(b []byte) Signature {
	var s Signature
	copy(s[:], b)
	return s
}

// ParseSignature decodes the base64 form of a signature.
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	b, err := b64.DecodeString(s)
	if err != nil {
		return sig, fmt.Errorf("api: decode signature: %w", err)
	}
	if len(b) != ed25519.SignatureSize {
		return sig, ErrSignatureSize
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) String() string { return b64.EncodeToString(s[:]) }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Keypair is an Ed25519 signing key. It serializes as the base64 of
// its 32-byte seed, the form the config files carry.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("api: generate keypair: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, ErrSeedSize
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Private returns the signing key.
func (kp *Keypair) Private() ed25519.PrivateKey { return kp.priv }

// Public returns the wire form of the public key.
func (kp *Keypair) Public() Key {
	return KeyFromPublic(kp.priv.Public().(ed25519.PublicKey))
}

func (kp *Keypair) MarshalText() ([]byte, error) {
	return []byte(b64.EncodeToString(kp.priv.Seed())), nil
}

func (kp *Keypair) UnmarshalText(text []byte) error {
	b, err := b64.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("api: decode keypair: %w", err)
	}
	parsed, err := KeypairFromSeed(b)
	if err != nil {
		return err
	}
	*kp = *parsed
	return nil
}
