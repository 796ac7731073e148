// SPDX-License-Identifier: MIT

// Package registry maintains the filesystem problem library: a directory of
// problem definition JSON files, loaded at startup and hot-reloaded on
// change.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// ErrNotFound is returned when no problem with the requested name is loaded.
var ErrNotFound = errors.New("registry: problem not found")

// Registry indexes the problem files of one directory by problem name.
// Reads are safe for concurrent use with the watcher running.
type Registry struct {
	dir    string
	logger zerolog.Logger

	mu       sync.RWMutex
	problems map[string]*problem.Problem
	files    map[string]string // problem name -> file path

	watcher *fsnotify.Watcher
}

// Open loads every *.json problem file under dir. Files that fail to parse
// or validate are logged and skipped so one bad file cannot take the library
// down.
func Open(dir string) (*Registry, error) {
	r := &Registry{
		dir:      dir,
		logger:   log.WithComponent("registry"),
		problems: make(map[string]*problem.Problem),
		files:    make(map[string]string),
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("registry: create problem dir: %w", err)
	}
	if err := r.loadAll(); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the named problem, or ErrNotFound.
func (r *Registry) Get(name string) (*problem.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.Clone(), nil
}

// Names returns the loaded problem names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all loaded problems ordered by name.
func (r *Registry) List() []*problem.Problem {
	names := r.Names()
	out := make([]*problem.Problem, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		out = append(out, r.problems[name].Clone())
	}
	return out
}

// Store validates p and writes it atomically to the library directory,
// replacing any previous definition of the same name. The file lands fully
// written or not at all.
func (r *Registry) Store(p *problem.Problem) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("registry: invalid problem: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode problem: %w", err)
	}
	path := filepath.Join(r.dir, fileNameFor(p.Name))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write problem file: %w", err)
	}

	r.mu.Lock()
	r.problems[p.Name] = p.Clone()
	r.files[p.Name] = path
	r.mu.Unlock()
	return nil
}

// Delete removes the named problem and its file.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.files[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("registry: remove problem file: %w", err)
	}
	delete(r.problems, name)
	delete(r.files, name)
	return nil
}

// StartWatcher watches the library directory and reloads changed files until
// ctx is canceled.
func (r *Registry) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: create watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("registry: watch problem dir: %w", err)
	}
	r.watcher = watcher
	r.logger.Info().
		Str(log.FieldEvent, "registry.watcher_started").
		Str(log.FieldPath, r.dir).
		Msg("watching problem library for changes")

	go r.watchLoop(ctx)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context) {
	// Debounce rapid write sequences from editors and atomic replaces.
	var debounce *time.Timer
	const debounceDuration = 250 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Str(log.FieldEvent, "registry.watcher_stopped").Msg("problem watcher stopped")
			_ = r.watcher.Close()
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDuration, func() {
					if err := r.loadAll(); err != nil {
						r.logger.Error().Err(err).
							Str(log.FieldEvent, "registry.reload_failed").
							Msg("problem library reload failed")
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error().Err(err).
				Str(log.FieldEvent, "registry.watcher_error").
				Msg("problem watcher error")
		}
	}
}

// Stop stops the watcher if running.
func (r *Registry) Stop() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}

// loadAll rescans the directory and atomically swaps the index.
func (r *Registry) loadAll() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("registry: read problem dir: %w", err)
	}

	problems := make(map[string]*problem.Problem)
	files := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		p, err := loadFile(path)
		if err != nil {
			r.logger.Warn().Err(err).
				Str(log.FieldEvent, "registry.skip_file").
				Str(log.FieldPath, path).
				Msg("skipping unreadable problem file")
			continue
		}
		problems[p.Name] = p
		files[p.Name] = path
	}

	r.mu.Lock()
	r.problems = problems
	r.files = files
	r.mu.Unlock()

	r.logger.Info().
		Str(log.FieldEvent, "registry.loaded").
		Int("problems", len(problems)).
		Msg("problem library loaded")
	return nil
}

func loadFile(path string) (*problem.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p problem.Problem
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &p, nil
}

// fileNameFor derives a safe file name from a problem name.
func fileNameFor(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if s == "" {
		s = "problem"
	}
	return s + ".json"
}
