// Package config resolves the contract service configuration: shipped
// defaults, then config.json5 and config.local.json5 from the config
// directory, then WIRESKIP_CONTRACT_* environment overrides. Later
// sources win field by field.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wireskip/contract/api"
)

// Configuration artifacts, resolved relative to the config directory.
// The .json5 names are kept for compatibility with existing deployments;
// the contents are plain JSON.
const (
	MainFile   = "config.json5"
	LocalFile  = "config.local.json5"
	PubkeyFile = "key.pub"
)

// EnvPrefix precedes every environment override, e.g.
// WIRESKIP_CONTRACT_ADDRESS.
const EnvPrefix = "WIRESKIP_CONTRACT_"

// Config is the full service configuration. The published contract
// information embeds flattened, so config files mirror the /info shape
// plus the private fields (address, keypair, interval).
type Config struct {
	// Address is the host:port the HTTP server binds.
	Address string `json:"address"`
	// Keypair is the contract's Ed25519 signing key. It only ever
	// belongs in config.local.json5.
	Keypair *api.Keypair `json:"keypair,omitempty"`
	// Interval is the floor on the settlement tick cadence.
	Interval api.Duration `json:"interval"`

	api.PubDefined
}

// Default returns the shipped configuration: a local test contract
// paying USD 100 per servicekey through the bundled dummy payment
// system. The keypair is left unset; init generates one.
func Default() *Config {
	const addr = "127.0.0.1:8081"
	endpoint := "http://" + addr
	minW, maxW := uint64(0), uint64(math.MaxUint64)
	return &Config{
		Address:  addr,
		Interval: api.Duration(60 * time.Second),
		PubDefined: api.PubDefined{
			Endpoint:        endpoint,
			UpgradeChannels: map[string]map[string]string{},
			ProofOfFunding:  []api.PofSource{},
			Servicekey: api.ServicekeyCfg{
				Currency: "USD",
				Value:    decimal.NewFromInt(100),
				Duration: api.Duration(600 * time.Second),
			},
			Settlement: api.SettlementCfg{
				FeePercent:       decimal.NewFromInt(5),
				SubmissionWindow: api.Duration(3600 * time.Second),
			},
			Payout: api.PayoutCfg{
				Endpoint:      endpoint,
				Type:          "dummy",
				CheckPeriod:   api.Duration(5 * time.Second),
				MinWithdrawal: &minW,
				MaxWithdrawal: &maxW,
				Info:          endpoint,
			},
			Metadata: &api.Metadata{
				Name:     "PLEASE CONFIGURE ME",
				Operator: "TEST CONTRACT WITH DEFAULT CONFIG",
			},
		},
	}
}

// Load resolves the effective configuration from dir and validates it.
// Missing config files are skipped; a missing keypair fails validation.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{MainFile, LocalFile} {
		if err := loadFile(filepath.Join(dir, name), cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges one config file onto cfg. Fields absent from the file
// keep their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// envAppliers maps WIRESKIP_CONTRACT_* suffixes to the fields they
// override.
var envAppliers = []struct {
	name  string
	apply func(cfg *Config, val string) error
}{
	{"ADDRESS", func(c *Config, v string) error {
		c.Address = v
		return nil
	}},
	{"KEYPAIR", func(c *Config, v string) error {
		kp := &api.Keypair{}
		if err := kp.UnmarshalText([]byte(v)); err != nil {
			return err
		}
		c.Keypair = kp
		return nil
	}},
	{"INTERVAL", func(c *Config, v string) error {
		return c.Interval.UnmarshalText([]byte(v))
	}},
	{"ENDPOINT", func(c *Config, v string) error {
		c.Endpoint = v
		return nil
	}},
	{"SERVICEKEY_CURRENCY", func(c *Config, v string) error {
		c.Servicekey.Currency = v
		return nil
	}},
	{"SERVICEKEY_VALUE", func(c *Config, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		c.Servicekey.Value = d
		return nil
	}},
	{"SERVICEKEY_DURATION", func(c *Config, v string) error {
		return c.Servicekey.Duration.UnmarshalText([]byte(v))
	}},
	{"SETTLEMENT_FEE_PERCENT", func(c *Config, v string) error {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		c.Settlement.FeePercent = d
		return nil
	}},
	{"SETTLEMENT_SUBMISSION_WINDOW", func(c *Config, v string) error {
		return c.Settlement.SubmissionWindow.UnmarshalText([]byte(v))
	}},
	{"PAYOUT_ENDPOINT", func(c *Config, v string) error {
		c.Payout.Endpoint = v
		return nil
	}},
	{"PAYOUT_TYPE", func(c *Config, v string) error {
		c.Payout.Type = v
		return nil
	}},
	{"PAYOUT_CHECK_PERIOD", func(c *Config, v string) error {
		return c.Payout.CheckPeriod.UnmarshalText([]byte(v))
	}},
}

// applyEnv overrides cfg from the process environment.
func applyEnv(cfg *Config) error {
	for _, ea := range envAppliers {
		val, ok := os.LookupEnv(EnvPrefix + ea.name)
		if !ok {
			continue
		}
		if err := ea.apply(cfg, val); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, ea.name, err)
		}
	}
	return nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("config: invalid address %q: %w", c.Address, err)
	}
	if c.Keypair == nil {
		return errors.New("config: no keypair defined -- is your config.local.json5 in place? `init` done?")
	}
	if _, err := url.ParseRequestURI(c.Endpoint); err != nil {
		return fmt.Errorf("config: invalid endpoint: %w", err)
	}
	if c.Interval.D() <= 0 {
		return errors.New("config: interval must be positive")
	}
	if c.Servicekey.Currency == "" {
		return errors.New("config: servicekey currency must not be empty")
	}
	if c.Servicekey.Value.Sign() <= 0 {
		return fmt.Errorf("config: servicekey value %s must be positive", c.Servicekey.Value)
	}
	if c.Servicekey.Duration.D() <= 0 {
		return errors.New("config: servicekey duration must be positive")
	}
	fee := c.Settlement.FeePercent
	if fee.Sign() < 0 || fee.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("config: fee_percent %s outside [0, 100]", fee)
	}
	if c.Settlement.SubmissionWindow.D() <= 0 {
		return errors.New("config: submission_window must be positive")
	}
	if c.Payout.Endpoint != "" {
		if _, err := url.ParseRequestURI(c.Payout.Endpoint); err != nil {
			return fmt.Errorf("config: invalid payout endpoint: %w", err)
		}
		if c.Payout.Type == "" {
			return errors.New("config: payout type must be set when a payout endpoint is")
		}
		if c.Payout.CheckPeriod.D() <= 0 {
			return errors.New("config: payout check_period must be positive")
		}
	}
	return nil
}

// Public assembles the contract descriptor served by GET /info: the
// configured fields plus the halves derived from the keypair and build
// version. This contract acts as its own directory.
func (c *Config) Public(version string) api.Public {
	pk := c.Keypair.Public()
	return api.Public{
		PubDefined: c.PubDefined,
		PubDerived: api.PubDerived{
			Pubkey:    pk,
			PublicKey: pk,
			Version:   version,
			Directory: api.Directory{
				Endpoint:  c.Endpoint,
				PublicKey: pk,
			},
		},
	}
}
