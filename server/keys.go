// keys.go mints proofs of funding with the contract keypair and decides
// which issuer keys are accepted back on activation.
package server

import (
	"math/rand/v2"
	"time"

	"github.com/wireskip/contract/api"
)

const (
	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	nonceLen      = 18
)

// mkNonce returns n random alphanumeric characters.
func mkNonce(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = nonceAlphabet[rand.IntN(len(nonceAlphabet))]
	}
	return string(out)
}

// mintPof signs a fresh proof of funding expiring duration seconds
// from now.
func (s *Server) mintPof(pofType string, duration int64) api.Pof {
	p := api.Pof{
		Type:       pofType,
		Nonce:      mkNonce(nonceLen),
		Expiration: time.Now().Unix() + duration,
	}
	p.Sign(s.keypair.Private())
	return p
}

// pofAccepted checks a pof's signature against the configured funding
// sources and the contract's own issuing key.
func (s *Server) pofAccepted(p *api.Pof) bool {
	s.mu.RLock()
	sources := s.public.ProofOfFunding
	s.mu.RUnlock()

	for _, src := range sources {
		if p.VerifyWith(src.Pubkey) == nil {
			return true
		}
	}
	return p.VerifyWith(s.keypair.Public()) == nil
}
