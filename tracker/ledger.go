// ledger.go implements the relay balance ledger: available funds plus
// at most one pending change per relay, drafted first and then either
// applied or aborted. Drafts for different relays are independent.
package tracker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger errors.
var (
	ErrPendingChange = errors.New("ledger: balance change already pending")
	ErrNoBalance     = errors.New("ledger: no available balance")
	ErrInsufficient  = errors.New("ledger: insufficient balance")
	ErrOverflow      = errors.New("ledger: balance overflow")
)

// Ledger bounds: 28 significant digits either side of zero.
var (
	maxBalance = decimal.New(1, 28)
	minBalance = decimal.New(-1, 28)
)

// CommitAction resolves a drafted balance change.
type CommitAction int

const (
	Apply CommitAction = iota
	Abort
)

func (a CommitAction) String() string {
	if a == Apply {
		return "apply"
	}
	return "abort"
}

func (a CommitAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// balance is one relay's ledger entry. Its mutex serializes the
// draft/commit cycle for that relay only.
type balance struct {
	mu        sync.Mutex
	available decimal.Decimal
	pending   decimal.Decimal
}

// Ledger maps relay public keys (base64) to balances. New keys are
// created on first access. Safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*balance
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*balance)}
}

// entry returns the balance for key, creating it if needed.
func (l *Ledger) entry(key string) *balance {
	l.mu.RLock()
	b, ok := l.entries[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.entries[key]; ok {
		return b
	}
	b = &balance{}
	l.entries[key] = b
	return b
}

// Draft stages a balance change for key. A negative delta is a
// withdrawal and must leave a strictly positive balance; a non-negative
// delta is a reward. At most one draft may be pending per key.
func (l *Ledger) Draft(key string, delta decimal.Decimal) error {
	b := l.entry(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.pending.IsZero() {
		return ErrPendingChange
	}
	if delta.Sign() < 0 {
		if b.available.Sign() <= 0 {
			return ErrNoBalance
		}
		if b.available.Add(delta).Sign() <= 0 {
			return fmt.Errorf("%w: %s requested, %s available",
				ErrInsufficient, delta.Neg(), b.available)
		}
		if minBalance.Sub(delta).GreaterThanOrEqual(b.available) {
			return ErrOverflow
		}
	} else {
		if maxBalance.Sub(delta).LessThanOrEqual(b.available) {
			return ErrOverflow
		}
	}
	b.pending = delta
	return nil
}

// Commit resolves the pending change for key: Apply folds it into the
// available balance, Abort discards it. Commit cannot fail; committing
// with nothing pending is a no-op.
func (l *Ledger) Commit(key string, action CommitAction) {
	b := l.entry(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if action == Apply {
		b.available = b.available.Add(b.pending)
	}
	b.pending = decimal.Zero
}

// Balance returns the available and pending amounts for key, truncated
// toward zero. Unknown keys report zeros without creating an entry, so
// balance queries cannot grow the map.
func (l *Ledger) Balance(key string) (available, pending int64) {
	l.mu.RLock()
	b, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return 0, 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available.IntPart(), b.pending.IntPart()
}

// Export snapshots every entry as [available, pending] pairs.
func (l *Ledger) Export() map[string][2]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string][2]decimal.Decimal, len(l.entries))
	for key, b := range l.entries {
		b.mu.Lock()
		out[key] = [2]decimal.Decimal{b.available, b.pending}
		b.mu.Unlock()
	}
	return out
}

// Restore replaces the ledger contents with a previously exported
// snapshot.
func (l *Ledger) Restore(snapshot map[string][2]decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]*balance, len(snapshot))
	for key, pair := range snapshot {
		l.entries[key] = &balance{available: pair[0], pending: pair[1]}
	}
}
