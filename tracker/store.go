// store.go persists tracker state under the run directory: settled
// sharetokens in archive/, the shutdown heap drain in unsettled/, the
// balance snapshot in balances.json and the per-start event log.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/wireskip/contract/api"
)

const (
	archiveDir   = "archive"
	unsettledDir = "unsettled"
	balancesFile = "balances.json"
)

// Store writes and reads the tracker's on-disk state. All paths are
// relative to a single root directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// WriteArchived persists a settled sharetoken under archive/.
func (s *Store) WriteArchived(st *api.Sharetoken) error {
	return s.writeToken(archiveDir, st)
}

// WriteUnsettled persists a not-yet-settled sharetoken under
// unsettled/. Written at shutdown; never reloaded automatically.
func (s *Store) WriteUnsettled(st *api.Sharetoken) error {
	return s.writeToken(unsettledDir, st)
}

func (s *Store) writeToken(dir string, st *api.Sharetoken) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("store: marshal sharetoken: %w", err)
	}
	tokenDir := filepath.Join(s.root, dir, st.Subdir())
	if err := os.MkdirAll(tokenDir, 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	path := filepath.Join(tokenDir, st.Filename())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// WriteBalances snapshots the exported ledger to balances.json. Values
// serialize as ["available", "pending"] decimal strings.
func (s *Store) WriteBalances(balances map[string][2]decimal.Decimal) error {
	data, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("store: marshal balances: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	path := filepath.Join(s.root, balancesFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ReadBalances loads the balance snapshot. A missing file is not an
// error; it returns an empty map.
func (s *Store) ReadBalances() (map[string][2]decimal.Decimal, error) {
	data, err := os.ReadFile(filepath.Join(s.root, balancesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string][2]decimal.Decimal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	balances := map[string][2]decimal.Decimal{}
	if err := json.Unmarshal(data, &balances); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", balancesFile, err)
	}
	return balances, nil
}

// WriteEventLog rewrites the per-start log file with the full
// accumulated event log.
func (s *Store) WriteEventLog(el *EventLog) error {
	data, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("store: marshal event log: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	name := fmt.Sprintf("contract_%d.log", el.Start())
	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o644); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
