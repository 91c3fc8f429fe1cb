// init.go writes the first-run artifacts: the default config, a fresh
// keypair in the local config and the public key compat file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wireskip/contract/api"
)

// localConfig is the subset written to config.local.json5: just the
// generated keypair, leaving everything else to config.json5.
type localConfig struct {
	Keypair *api.Keypair `json:"keypair"`
}

// Init writes missing configuration artifacts into dir: config.json5
// with the shipped defaults, config.local.json5 with a freshly
// generated keypair and key.pub with its public half. Existing files
// are left untouched, so a keypair is never clobbered. It returns the
// paths written.
func Init(dir string) ([]string, error) {
	var written []string

	main := filepath.Join(dir, MainFile)
	ok, err := writeIfMissing(main, func() ([]byte, error) {
		return json.MarshalIndent(Default(), "", "  ")
	})
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, main)
	}

	local := filepath.Join(dir, LocalFile)
	if _, err := os.Stat(local); err == nil {
		return written, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return written, fmt.Errorf("config: %w", err)
	}

	kp, err := api.NewKeypair()
	if err != nil {
		return written, fmt.Errorf("config: %w", err)
	}
	data, err := json.Marshal(&localConfig{Keypair: kp})
	if err != nil {
		return written, fmt.Errorf("config: marshal keypair: %w", err)
	}
	// The keypair file is readable by the owner only.
	if err := os.WriteFile(local, data, 0o600); err != nil {
		return written, fmt.Errorf("config: %w", err)
	}
	written = append(written, local)

	pub := filepath.Join(dir, PubkeyFile)
	pubData, err := json.Marshal(kp.Public())
	if err != nil {
		return written, fmt.Errorf("config: marshal public key: %w", err)
	}
	if err := os.WriteFile(pub, pubData, 0o644); err != nil {
		return written, fmt.Errorf("config: %w", err)
	}
	written = append(written, pub)

	return written, nil
}

// writeIfMissing writes the rendered content to path unless it already
// exists. It reports whether a write happened.
func writeIfMissing(path string, render func() ([]byte, error)) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("config: %w", err)
	}
	data, err := render()
	if err != nil {
		return false, fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("config: %w", err)
	}
	return true, nil
}
