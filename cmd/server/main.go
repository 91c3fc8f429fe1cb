// Command server runs the wireskip contract service.
//
// Usage:
//
//	server [--config-dir DIR] [--log-level LEVEL]
//	server init
//
// The default action loads the configuration from the config directory
// (the executable's directory unless --config-dir says otherwise) and
// serves until SIGINT or SIGTERM. `server init` writes config.json5,
// config.local.json5 with a fresh keypair and key.pub, then exits.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/wireskip/contract/config"
	"github.com/wireskip/contract/log"
	"github.com/wireskip/contract/payout"
	"github.com/wireskip/contract/server"
	"github.com/wireskip/contract/tracker"
)

// Build-time version, overridable with ldflags:
//
//	go build -ldflags "-X main.version=0.2.0"
var version = "0.1.0"

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "server",
		Usage:   "wireskip contract server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "directory holding the config files and tracker state (default: the executable's directory)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log level: debug, info, warn or error",
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write default config files and a fresh keypair, then exit",
				Action: initAction,
			},
		},
	}
}

// configDir resolves the directory holding config files and tracker
// state. The default mirrors the deployment layout: everything next to
// the executable.
func configDir(c *cli.Context) (string, error) {
	if dir := c.String("config-dir"); dir != "" {
		return dir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	return filepath.Dir(exe), nil
}

func initAction(c *cli.Context) error {
	dir, err := configDir(c)
	if err != nil {
		return err
	}
	written, err := config.Init(dir)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintln(c.App.Writer, "wrote", path)
	}
	return nil
}

func run(c *cli.Context) error {
	// A .env next to the working directory feeds the WIRESKIP_CONTRACT_*
	// overrides; absence is fine.
	godotenv.Load()

	dir, err := configDir(c)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	logger := log.New(log.ParseLevel(c.String("log-level")))
	log.SetDefault(logger)

	calc := tracker.NewSKCalc(cfg.Servicekey.Value, cfg.Settlement.FeePercent)
	tr := tracker.New(tracker.NewStore(dir), calc, cfg.Interval.D(), logger)
	if err := tr.LoadBalances(); err != nil {
		return err
	}

	pipe := payout.New(
		payout.NewClient(cfg.Payout.Endpoint),
		cfg.Payout.Type,
		cfg.Payout.CheckPeriod.D(),
		tr,
		logger,
	)

	// The "dummy" payout type answers from this process: the bundled
	// stub payment system mounts on the contract's own router.
	var stub *payout.Stub
	if cfg.Payout.Type == "dummy" {
		stub = payout.NewStub(cfg.Endpoint, logger)
	}

	srv := server.New(server.Config{
		Address: cfg.Address,
		Keypair: cfg.Keypair,
		Public:  cfg.Public(version),
		Tracker: tr,
		Payout:  pipe,
		Stub:    stub,
	}, logger)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("contract starting",
		"version", version,
		"address", cfg.Address,
		"endpoint", cfg.Endpoint,
		"pubkey", cfg.Keypair.Public().String(),
		"config_dir", dir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tr.Run(ctx) })
	g.Go(func() error { return pipe.Watch(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}
