// Package api defines the wire types of the wireskip contract protocol
// and the signing rules they share: canonical colon-joined digests,
// detached header signatures and in-body signed records. All key and
// signature material travels as URL-safe unpadded base64.
package api

import (
	"math"

	"github.com/shopspring/decimal"
)

// Status is the uniform JSON body for acknowledgements and errors:
// {"code": 500, "description": "..."}. The HTTP status mirrors Code.
type Status struct {
	Code        uint16 `json:"code"`
	Description string `json:"description"`
}

// Error makes Status usable as an error carrying its own HTTP code.
func (s *Status) Error() string { return s.Description }

// Role is the position a relay takes in a routing circuit.
type Role string

const (
	RoleFronting Role = "fronting"
	RoleEntropic Role = "entropic"
	RoleBacking  Role = "backing"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleFronting, RoleEntropic, RoleBacking:
		return true
	}
	return false
}

// RoleInfo is the published enrollment state of one role.
type RoleInfo struct {
	Count      uint32 `json:"count"`
	Restricted bool   `json:"restricted"`
}

// Record adjusts the enrollment count by delta. It refuses changes
// that would wrap the u32 counter and reports whether the change took.
func (ri *RoleInfo) Record(delta int32) bool {
	n := int64(ri.Count) + int64(delta)
	if n < 0 || n > math.MaxUint32 {
		return false
	}
	ri.Count = uint32(n)
	return true
}

// Enrollment counts registered relays per role.
type Enrollment struct {
	Fronting RoleInfo `json:"fronting"`
	Entropic RoleInfo `json:"entropic"`
	Backing  RoleInfo `json:"backing"`
}

// Role returns the counter for r, or nil for an unknown role.
func (e *Enrollment) Role(r Role) *RoleInfo {
	switch r {
	case RoleFronting:
		return &e.Fronting
	case RoleEntropic:
		return &e.Entropic
	case RoleBacking:
		return &e.Backing
	}
	return nil
}

// Versions carries the protocol versions a relay speaks.
type Versions struct {
	Software      string `json:"software"`
	ClientRelay   string `json:"client-relay"`
	RelayRelay    string `json:"relay-relay"`
	RelayDir      string `json:"relay-dir"`
	RelayContract string `json:"relay-contract"`
}

// Relay is a directory entry as POSTed by relays on enrollment.
type Relay struct {
	Pubkey   Key      `json:"pubkey"`
	Role     Role     `json:"role"`
	Address  string   `json:"address"`
	Versions Versions `json:"versions"`
}

// Directory points clients at the directory service and its signing key.
// This contract serves as its own directory.
type Directory struct {
	Endpoint  string `json:"endpoint"`
	PublicKey Key    `json:"public_key"`
}

// PofSource names an external service that accepts proofs of funding.
type PofSource struct {
	Endpoint string `json:"endpoint"`
	Type     string `json:"type"`
	Pubkey   Key    `json:"pubkey"`
}

// Metadata is free-form operator information published via /info.
type Metadata struct {
	Name           string `json:"name,omitempty"`
	Operator       string `json:"operator,omitempty"`
	OperatorURL    string `json:"operator_url,omitempty"`
	TermsOfService string `json:"terms_of_service,omitempty"`
	PrivacyPolicy  string `json:"privacy_policy,omitempty"`
}

// ServicekeyCfg is the published servicekey offer. Value serializes as
// a decimal string for compatibility with existing clients.
type ServicekeyCfg struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
	Duration Duration        `json:"duration"`
}

// SettlementCfg is the published settlement policy.
type SettlementCfg struct {
	FeePercent       decimal.Decimal `json:"fee_percent"`
	SubmissionWindow Duration        `json:"submission_window"`
}

// PayoutCfg is the published payout policy and payment system address.
type PayoutCfg struct {
	Endpoint      string   `json:"endpoint"`
	Type          string   `json:"type"`
	CheckPeriod   Duration `json:"check_period"`
	MinWithdrawal *uint64  `json:"min_withdrawal"`
	MaxWithdrawal *uint64  `json:"max_withdrawal"`
	Info          string   `json:"info,omitempty"`
}

// PubDefined is the operator-defined half of the public contract
// information, filled from configuration.
type PubDefined struct {
	Endpoint        string                       `json:"endpoint"`
	Info            string                       `json:"info,omitempty"`
	UpgradeChannels map[string]map[string]string `json:"upgrade_channels"`
	ProofOfFunding  []PofSource                  `json:"proof_of_funding"`
	Servicekey      ServicekeyCfg                `json:"servicekey"`
	Settlement      SettlementCfg                `json:"settlement"`
	Payout          PayoutCfg                    `json:"payout"`
	Metadata        *Metadata                    `json:"metadata,omitempty"`
}

// PubDerived is the half of the public contract information derived at
// startup from the keypair and build version.
type PubDerived struct {
	// Pubkey and PublicKey carry the same value while older clients
	// still read the short name.
	Pubkey     Key        `json:"pubkey"`
	PublicKey  Key        `json:"public_key"`
	Version    string     `json:"version"`
	Enrollment Enrollment `json:"enrollment"`
	Directory  Directory  `json:"directory"`
}

// Public is the full contract descriptor served by GET /info. Both
// halves flatten into a single JSON object.
type Public struct {
	PubDerived
	PubDefined
}
