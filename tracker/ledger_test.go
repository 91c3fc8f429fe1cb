package tracker

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLedgerDraftCommitApply(t *testing.T) {
	l := NewLedger()

	if err := l.Draft("r1", dec(t, "90")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	available, pending := l.Balance("r1")
	if available != 0 || pending != 90 {
		t.Errorf("after draft: available=%d pending=%d, want 0/90", available, pending)
	}

	l.Commit("r1", Apply)
	available, pending = l.Balance("r1")
	if available != 90 || pending != 0 {
		t.Errorf("after apply: available=%d pending=%d, want 90/0", available, pending)
	}
}

func TestLedgerDraftCommitAbort(t *testing.T) {
	l := NewLedger()

	if err := l.Draft("r1", dec(t, "50")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	l.Commit("r1", Abort)
	available, pending := l.Balance("r1")
	if available != 0 || pending != 0 {
		t.Errorf("after abort: available=%d pending=%d, want 0/0", available, pending)
	}
}

func TestLedgerSecondDraftRefused(t *testing.T) {
	l := NewLedger()

	if err := l.Draft("r1", dec(t, "10")); err != nil {
		t.Fatalf("first draft: %v", err)
	}
	if err := l.Draft("r1", dec(t, "10")); !errors.Is(err, ErrPendingChange) {
		t.Errorf("expected ErrPendingChange, got %v", err)
	}

	// A different relay drafts independently.
	if err := l.Draft("r2", dec(t, "10")); err != nil {
		t.Errorf("independent draft: %v", err)
	}
}

func TestLedgerWithdrawalRules(t *testing.T) {
	l := NewLedger()

	// Nothing to withdraw from.
	if err := l.Draft("r1", dec(t, "-10")); !errors.Is(err, ErrNoBalance) {
		t.Errorf("expected ErrNoBalance, got %v", err)
	}

	if err := l.Draft("r1", dec(t, "100")); err != nil {
		t.Fatalf("reward draft: %v", err)
	}
	l.Commit("r1", Apply)

	// Withdrawing the full balance is refused: the remainder must stay
	// strictly positive.
	err := l.Draft("r1", dec(t, "-100"))
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
	if !strings.Contains(err.Error(), "100 requested, 100 available") {
		t.Errorf("unexpected error text: %q", err.Error())
	}

	if err := l.Draft("r1", dec(t, "-150")); !errors.Is(err, ErrInsufficient) {
		t.Errorf("expected ErrInsufficient for overdraw, got %v", err)
	}

	if err := l.Draft("r1", dec(t, "-99.5")); err != nil {
		t.Errorf("partial withdrawal: %v", err)
	}
	l.Commit("r1", Apply)
	if available, _ := l.Balance("r1"); available != 0 {
		// 0.5 remains, truncated toward zero.
		t.Errorf("available = %d, want 0 (0.5 truncated)", available)
	}
}

func TestLedgerOverflowBounds(t *testing.T) {
	l := NewLedger()

	huge := decimal.New(1, 28)
	if err := l.Draft("r1", huge); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow for reward at bound, got %v", err)
	}
	if err := l.Draft("r1", huge.Sub(dec(t, "1"))); err != nil {
		t.Errorf("draft just under bound: %v", err)
	}
}

func TestLedgerConcurrentDrafts(t *testing.T) {
	l := NewLedger()
	if err := l.Draft("r1", dec(t, "100")); err != nil {
		t.Fatal(err)
	}
	l.Commit("r1", Apply)

	// Exactly one of two simultaneous withdrawals may win the draft.
	const n = 2
	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			errs <- l.Draft("r1", dec(t, "-10"))
		}()
	}
	wg.Wait()
	close(errs)

	ok, refused := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrPendingChange):
			refused++
		default:
			t.Errorf("unexpected draft error: %v", err)
		}
	}
	if ok != 1 || refused != 1 {
		t.Errorf("got %d successes, %d refusals; want 1 and 1", ok, refused)
	}
}

func TestLedgerExportRestore(t *testing.T) {
	l := NewLedger()
	if err := l.Draft("r1", dec(t, "67.5")); err != nil {
		t.Fatal(err)
	}
	l.Commit("r1", Apply)
	if err := l.Draft("r2", dec(t, "22.5")); err != nil {
		t.Fatal(err)
	}
	l.Commit("r2", Apply)

	snap := l.Export()

	restored := NewLedger()
	restored.Restore(snap)
	for _, key := range []string{"r1", "r2"} {
		a, p := l.Balance(key)
		ra, rp := restored.Balance(key)
		if a != ra || p != rp {
			t.Errorf("%s: restored %d/%d, want %d/%d", key, ra, rp, a, p)
		}
	}
	if !snap["r1"][0].Equal(dec(t, "67.5")) {
		t.Errorf("exported available = %s, want 67.5", snap["r1"][0])
	}
}

func TestLedgerBalanceDoesNotCreateEntries(t *testing.T) {
	l := NewLedger()

	// Balance queries for unknown relays must not grow the map: any
	// signed key can ask for its balance.
	if available, pending := l.Balance("ghost"); available != 0 || pending != 0 {
		t.Errorf("unknown key balance = %d/%d, want 0/0", available, pending)
	}
	if snap := l.Export(); len(snap) != 0 {
		t.Errorf("ledger grew on read: %v", snap)
	}

	if err := l.Draft("r1", dec(t, "10")); err != nil {
		t.Fatal(err)
	}
	l.Commit("r1", Apply)
	if snap := l.Export(); len(snap) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(snap))
	}
}

func TestCommitActionText(t *testing.T) {
	if Apply.String() != "apply" || Abort.String() != "abort" {
		t.Errorf("action strings: %q, %q", Apply.String(), Abort.String())
	}
}
