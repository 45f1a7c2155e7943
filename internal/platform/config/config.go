// Package config loads tool configuration from a TOML file and environment
// variables. CLI flags take precedence over everything here.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the tool's configuration defaults.
type Config struct {
	General struct {
		TargetBranch string `koanf:"target_branch"`
		DistTag      string `koanf:"dist_tag"`
		LogLevel     string `koanf:"log_level"`
	} `koanf:"general"`

	Registry struct {
		URL       string `koanf:"url"`
		AuthToken string `koanf:"auth_token"`
	} `koanf:"registry"`

	// GitHub enables release creation for publish tags when all three
	// fields are set.
	GitHub struct {
		Token string `koanf:"token"`
		Owner string `koanf:"owner"`
		Repo  string `koanf:"repo"`
	} `koanf:"github"`

	Telemetry struct {
		Enabled bool `koanf:"enabled"`
	} `koanf:"telemetry"`
}

// Load reads configuration in precedence order: built-in defaults, then the
// TOML file (the given path, or the first default location that exists),
// then MONOPUB_-prefixed environment variables.
func Load(configPath string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"general.target_branch": "main",
		"general.dist_tag":      "latest",
		"general.log_level":     "info",
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	} else {
		for _, path := range []string{".monopub.toml", "$HOME/.monopub.toml"} {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
					return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := k.Load(env.Provider("MONOPUB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MONOPUB_")), "_", ".", 1)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}
