package tracker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/wireskip/contract/api"
)

func TestStoreWriteArchived(t *testing.T) {
	s := NewStore(t.TempDir())
	st := mkToken(t, 0x01, 0x02, 100)

	if err := s.WriteArchived(st); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Root(), "archive", st.Path()))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var back api.Sharetoken
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back.Contract.SettlementClose != 100 {
		t.Errorf("settlement_close = %d, want 100", back.Contract.SettlementClose)
	}
	if err := back.Verify(); err != nil {
		t.Errorf("archived token does not verify: %v", err)
	}
}

func TestStoreWriteUnsettled(t *testing.T) {
	s := NewStore(t.TempDir())
	st := mkToken(t, 0x03, 0x04, 200)

	if err := s.WriteUnsettled(st); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "unsettled", st.Path())); err != nil {
		t.Errorf("unsettled file missing: %v", err)
	}
}

func TestStoreBalancesRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	l := NewLedger()
	if err := l.Draft("r1", dec(t, "67.5")); err != nil {
		t.Fatal(err)
	}
	l.Commit("r1", Apply)

	if err := s.WriteBalances(l.Export()); err != nil {
		t.Fatalf("write: %v", err)
	}

	// On-disk form keeps decimals as strings.
	raw, err := os.ReadFile(filepath.Join(s.Root(), "balances.json"))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk map[string][2]string
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("balances.json not string pairs: %v", err)
	}
	if onDisk["r1"][0] != "67.5" || onDisk["r1"][1] != "0" {
		t.Errorf("on-disk pair = %v, want [67.5 0]", onDisk["r1"])
	}

	back, err := s.ReadBalances()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	restored := NewLedger()
	restored.Restore(back)
	if available, _ := restored.Balance("r1"); available != 67 {
		t.Errorf("restored available = %d, want 67", available)
	}
}

func TestStoreReadBalancesMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	balances, err := s.ReadBalances()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(balances) != 0 {
		t.Errorf("expected empty map, got %v", balances)
	}
}

func TestStoreWriteEventLog(t *testing.T) {
	s := NewStore(t.TempDir())
	el := NewEventLog(1700000000)
	el.Record(1700000001, Event{Settlement: &SettlementEvent{Servicekey: "K"}})

	if err := s.WriteEventLog(el); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(s.Root(), "contract_1700000000.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	var decoded struct {
		Start  int64             `json:"start"`
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded.Start != 1700000000 || len(decoded.Events) != 1 {
		t.Errorf("decoded start=%d events=%d", decoded.Start, len(decoded.Events))
	}
}
