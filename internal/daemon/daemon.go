// SPDX-License-Identifier: MIT

// Package daemon assembles and runs the service: archive database, problem
// library, HTTP API and graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/industrial-optimization-group/desdeo2/internal/api"
	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/config"
	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the long-lived components of the service.
type Daemon struct {
	cfg    config.AppConfig
	logger zerolog.Logger

	store    *archive.Store
	registry *registry.Registry
	server   *http.Server
}

// New opens the archive and loads the problem library.
func New(cfg config.AppConfig) (*Daemon, error) {
	store, err := archive.Open(cfg.DBPath, archive.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	reg, err := registry.Open(cfg.ProblemsDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open problem library: %w", err)
	}
	return &Daemon{
		cfg:      cfg,
		logger:   log.WithComponent("daemon"),
		store:    store,
		registry: reg,
	}, nil
}

// Store exposes the archive, mainly for tests.
func (d *Daemon) Store() *archive.Store { return d.store }

// Registry exposes the problem library, mainly for tests.
func (d *Daemon) Registry() *registry.Registry { return d.registry }

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.registry.StartWatcher(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("problem library watcher unavailable, continuing without hot reload")
	}

	handler := api.NewServer(d.cfg, d.store, d.registry).Routes()
	d.server = &http.Server{
		Addr:              d.cfg.Listen,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      120 * time.Second, // solves can be slow
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		d.logger.Info().Str("listen", d.cfg.Listen).Msg("HTTP server listening")
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		d.close()
		return err
	case <-ctx.Done():
		return d.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests and releases resources.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if d.server != nil {
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}
	d.close()
	d.logger.Info().Msg("stopped")
	return nil
}

func (d *Daemon) close() {
	d.registry.Stop()
	if err := d.store.Close(); err != nil {
		d.logger.Error().Err(err).Msg("archive close error")
	}
}
