// SPDX-License-Identifier: MIT

// Package config loads the service configuration. Precedence is environment
// (DESDEO_*) over YAML file over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ErrConfig is the sentinel for configuration errors.
var ErrConfig = errors.New("config error")

// SolverDefaults carry the default tuning applied to every solve.
type SolverDefaults struct {
	MaxIterations  int   `yaml:"max_iterations"`
	PopulationSize int   `yaml:"population_size"`
	Seed           int64 `yaml:"seed"`
}

// AppConfig is the full service configuration.
type AppConfig struct {
	Listen         string         `yaml:"listen"`
	DataDir        string         `yaml:"data_dir"`
	ProblemsDir    string         `yaml:"problems_dir"`
	DBPath         string         `yaml:"db_path"`
	APIToken       string         `yaml:"api_token"`
	AllowAnonymous bool           `yaml:"allow_anonymous"`
	RateLimit      int            `yaml:"rate_limit"` // requests per minute per client IP
	LogLevel       string         `yaml:"log_level"`
	Solver         SolverDefaults `yaml:"solver"`
	TrustedProxies []string       `yaml:"trusted_proxies"`
}

// Default returns the built-in defaults.
func Default() AppConfig {
	return AppConfig{
		Listen:    ":8080",
		DataDir:   "./data",
		RateLimit: 120,
		LogLevel:  "info",
		Solver: SolverDefaults{
			MaxIterations: 2000,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file (explicit path,
// or $DESDEO_DATA/config.yaml when present), then DESDEO_* environment
// overrides. Derived paths are filled in last and the result is validated.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	if path == "" {
		dataDir := os.Getenv("DESDEO_DATA")
		if dataDir == "" {
			dataDir = cfg.DataDir
		}
		candidate := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}

	if cfg.ProblemsDir == "" {
		cfg.ProblemsDir = filepath.Join(cfg.DataDir, "problems")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "desdeo.sqlite")
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("DESDEO_LISTEN", &cfg.Listen)
	setString("DESDEO_DATA", &cfg.DataDir)
	setString("DESDEO_PROBLEMS_DIR", &cfg.ProblemsDir)
	setString("DESDEO_DB_PATH", &cfg.DBPath)
	setString("DESDEO_API_TOKEN", &cfg.APIToken)
	setString("DESDEO_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("DESDEO_ALLOW_ANONYMOUS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: DESDEO_ALLOW_ANONYMOUS must be a boolean, got %q", ErrConfig, v)
		}
		cfg.AllowAnonymous = b
	}
	if v, ok := os.LookupEnv("DESDEO_TRUSTED_PROXIES"); ok {
		cfg.TrustedProxies = nil
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DESDEO_RATE_LIMIT", &cfg.RateLimit},
		{"DESDEO_SOLVER_MAX_ITERATIONS", &cfg.Solver.MaxIterations},
		{"DESDEO_SOLVER_POPULATION", &cfg.Solver.PopulationSize},
	}
	for _, it := range ints {
		v, ok := os.LookupEnv(it.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrConfig, it.key, v)
		}
		*it.dst = n
	}
	if v, ok := os.LookupEnv("DESDEO_SOLVER_SEED"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: DESDEO_SOLVER_SEED must be an integer, got %q", ErrConfig, v)
		}
		cfg.Solver.Seed = n
	}
	return nil
}

// Validate checks the configuration and returns actionable errors.
func (c AppConfig) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is empty; set DESDEO_LISTEN or `listen` in config.yaml", ErrConfig)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("%w: listen address %q is not host:port: %v", ErrConfig, c.Listen, err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data directory is empty; set DESDEO_DATA", ErrConfig)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate limit must be positive, got %d", ErrConfig, c.RateLimit)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: unknown log level %q (use trace, debug, info, warn or error)", ErrConfig, c.LogLevel)
	}
	if c.Solver.MaxIterations < 0 || c.Solver.PopulationSize < 0 {
		return fmt.Errorf("%w: solver defaults must not be negative", ErrConfig)
	}
	if c.APIToken == "" && !c.AllowAnonymous {
		return fmt.Errorf("%w: no API token configured; set DESDEO_API_TOKEN or enable DESDEO_ALLOW_ANONYMOUS explicitly", ErrConfig)
	}
	for _, p := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("%w: trusted proxy %q is neither an IP nor a CIDR", ErrConfig, p)
		}
	}
	return nil
}

// MaskedToken renders the API token safe for logs.
func (c AppConfig) MaskedToken() string {
	if c.APIToken == "" {
		return ""
	}
	if len(c.APIToken) <= 4 {
		return "****"
	}
	return c.APIToken[:2] + "****" + c.APIToken[len(c.APIToken)-2:]
}
