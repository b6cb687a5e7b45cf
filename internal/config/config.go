package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the resolved client settings.
type Config struct {
	APIURL            string
	TokenFile         string
	LogFile           string
	LogLevel          string
	RefreshInterval   time.Duration
	RequestsPerSecond float64
	MutationRetries   int
}

const (
	defaultConfigPath = "~/.config/ludex/config.toml"
	defaultAPIURL     = "http://127.0.0.1:8000/api"
	defaultTokenFile  = "~/.local/share/ludex/token.json"
	defaultLogFile    = "~/.local/share/ludex/ludex.log"
	defaultLogLevel   = "info"
	defaultRPS        = 8
	defaultRetries    = 2
)

// fileConfig mirrors config.toml. Pointers distinguish "unset" from zero.
type fileConfig struct {
	APIURL            string   `toml:"api_url"`
	TokenFile         string   `toml:"token_file"`
	LogFile           string   `toml:"log_file"`
	LogLevel          string   `toml:"log_level"`
	RefreshSeconds    *int     `toml:"refresh_seconds"`
	RequestsPerSecond *float64 `toml:"requests_per_second"`
	MutationRetries   *int     `toml:"mutation_retries"`
}

// envConfig holds LUDEX_* overrides. Pointers stay nil when unset.
type envConfig struct {
	APIURL            *string  `env:"LUDEX_API_URL"`
	TokenFile         *string  `env:"LUDEX_TOKEN_FILE"`
	LogFile           *string  `env:"LUDEX_LOG_FILE"`
	LogLevel          *string  `env:"LUDEX_LOG_LEVEL"`
	RefreshSeconds    *int     `env:"LUDEX_REFRESH_SECONDS"`
	RequestsPerSecond *float64 `env:"LUDEX_RPS"`
	MutationRetries   *int     `env:"LUDEX_MUTATION_RETRIES"`
}

// Default returns the built-in configuration with paths expanded.
func Default() Config {
	return Config{
		APIURL:            defaultAPIURL,
		TokenFile:         mustExpand(defaultTokenFile),
		LogFile:           mustExpand(defaultLogFile),
		LogLevel:          defaultLogLevel,
		RequestsPerSecond: defaultRPS,
		MutationRetries:   defaultRetries,
	}
}

// Load reads the config file at path (or the default location), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	var overrides envConfig
	if err := env.Parse(&overrides); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	overrides.apply(&raw)

	return raw.resolve()
}

func (e envConfig) apply(raw *fileConfig) {
	if e.APIURL != nil {
		raw.APIURL = *e.APIURL
	}
	if e.TokenFile != nil {
		raw.TokenFile = *e.TokenFile
	}
	if e.LogFile != nil {
		raw.LogFile = *e.LogFile
	}
	if e.LogLevel != nil {
		raw.LogLevel = *e.LogLevel
	}
	if e.RefreshSeconds != nil {
		raw.RefreshSeconds = e.RefreshSeconds
	}
	if e.RequestsPerSecond != nil {
		raw.RequestsPerSecond = e.RequestsPerSecond
	}
	if e.MutationRetries != nil {
		raw.MutationRetries = e.MutationRetries
	}
}

func (raw fileConfig) resolve() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = strings.TrimSuffix(v, "/")
	}
	if v := strings.TrimSpace(raw.TokenFile); v != "" {
		cfg.TokenFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		switch v {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = v
		default:
			return Config{}, fmt.Errorf("invalid log_level %q", raw.LogLevel)
		}
	}
	if raw.RefreshSeconds != nil {
		if *raw.RefreshSeconds < 0 {
			return Config{}, fmt.Errorf("refresh_seconds must be >= 0, got %d", *raw.RefreshSeconds)
		}
		cfg.RefreshInterval = time.Duration(*raw.RefreshSeconds) * time.Second
	}
	if raw.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *raw.RequestsPerSecond
	}
	if raw.MutationRetries != nil {
		if *raw.MutationRetries < 0 {
			return Config{}, fmt.Errorf("mutation_retries must be >= 0, got %d", *raw.MutationRetries)
		}
		cfg.MutationRetries = *raw.MutationRetries
	}
	return cfg, nil
}

// LogDir returns the directory holding the log file.
func (c Config) LogDir() string {
	if strings.TrimSpace(c.LogFile) == "" {
		return filepath.Dir(mustExpand(defaultLogFile))
	}
	return filepath.Dir(c.LogFile)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
