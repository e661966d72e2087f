// Package config assembles runtime configuration from defaults, an
// optional YAML file, ROTE_-prefixed environment variables and command
// line flags, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables read by Load:
// ROTE_DB_PATH maps to db_path and so on.
const envPrefix = "ROTE_"

// Config holds every runtime setting.
type Config struct {
	DBPath     string        `koanf:"db_path" validate:"required"`
	ReposDir   string        `koanf:"repos_dir" validate:"required"`
	LockPath   string        `koanf:"lock_path" validate:"required"`
	LogLevel   string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat  string        `koanf:"log_format" validate:"oneof=text json"`
	ListenAddr string        `koanf:"listen_addr" validate:"required,hostname_port"`
	SyncEvery  time.Duration `koanf:"sync_every" validate:"gt=0"`
	StudyLimit int           `koanf:"study_limit" validate:"gte=0"`
}

// Default returns the configuration used when nothing else is set. All
// state lives under ~/.rote.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".rote")

	return Config{
		DBPath:     filepath.Join(stateDir, "rote.db"),
		ReposDir:   filepath.Join(stateDir, "repos"),
		LockPath:   filepath.Join(stateDir, "study.lock"),
		LogLevel:   "info",
		LogFormat:  "text",
		ListenAddr: "127.0.0.1:8080",
		SyncEvery:  time.Hour,
		StudyLimit: 20, // 0 disables the per-session cap
	}
}

// Load builds and validates the configuration. path points at an optional
// YAML file; an empty path skips that layer. flags may be nil; only flags
// the user actually set take part, so flag defaults never shadow file or
// environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		changed := pflag.NewFlagSet("changed", pflag.ContinueOnError)
		flags.Visit(changed.AddFlag)

		err := k.Load(posflag.ProviderWithValue(changed, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
