package api

// WithdrawalState is the payment system's view of a withdrawal.
type WithdrawalState string

const (
	WithdrawalPending  WithdrawalState = "pending"
	WithdrawalComplete WithdrawalState = "complete"
	WithdrawalError    WithdrawalState = "error"
)

// Terminal reports whether the state will not change again.
func (s WithdrawalState) Terminal() bool {
	return s == WithdrawalComplete || s == WithdrawalError
}

// WithdrawalStateData is the state with its last change time.
type WithdrawalStateData struct {
	State        WithdrawalState `json:"state"`
	StateChanged int64           `json:"state_changed"`
}

// WithdrawalRequest is a relay's header-signed request to pay out part
// of its available balance to a destination of the given payout type.
type WithdrawalRequest struct {
	Type        string `json:"type"`
	Amount      uint64 `json:"amount"`
	Destination string `json:"destination"`
}

// Withdrawal is the payment system's record of an accepted withdrawal.
type Withdrawal struct {
	ID        string              `json:"id"`
	StateData WithdrawalStateData `json:"state_data"`
	Request   WithdrawalRequest   `json:"withdrawal_request"`
	Receipt   string              `json:"receipt"`
}

// BalanceView is a relay's balance as served by GET /payout/balance,
// truncated to whole currency units.
type BalanceView struct {
	Currency  string `json:"currency"`
	Available int64  `json:"available"`
	Pending   int64  `json:"pending"`
}
