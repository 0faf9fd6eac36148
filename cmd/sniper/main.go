// Command sniper watches one account's posts for contract addresses, raises
// alerts and optionally buys the announced tokens on ranked venues.
//
// Keys while running: s/b liquidate Solana/Base holdings, p prints positions,
// q shuts down.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"post-sniper/internal/config"
	"post-sniper/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration (defaults + SNIPER_* env when empty)")
	dryRun := flag.Bool("dry-run", false, "alert only; never execute trades")
	noKeys := flag.Bool("no-keys", false, "disable keyboard commands")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Execution.AutoExecute = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	logrus.SetOutput(log.Out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("startup failed")
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx, !*noKeys); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("sniper exited with error")
		app.Close()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
