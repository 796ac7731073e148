// SPDX-License-Identifier: MIT

// Command desdeo runs the interactive multiobjective optimization service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/industrial-optimization-group/desdeo2/internal/config"
	"github.com/industrial-optimization-group/desdeo2/internal/daemon"
	"github.com/industrial-optimization-group/desdeo2/internal/log"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "desdeo: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "desdeo",
		Version: version,
	})
	logger := log.WithComponent("main")
	logger.Info().
		Str("version", version).
		Str("listen", cfg.Listen).
		Str("data_dir", cfg.DataDir).
		Str("api_token", cfg.MaskedToken()).
		Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	if err := d.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
