// Package config loads the server configuration from defaults, an optional YAML
// file and SLUSHBOOK_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override; "__" separates nesting levels.
	EnvPrefix = "SLUSHBOOK_"
	// PathEnvVar names a config file when -config is not given.
	PathEnvVar = "SLUSHBOOK_CONFIG"
)

type ServerConfig struct {
	Addr               string        `koanf:"addr"`
	ReadTimeout        time.Duration `koanf:"read_timeout"`
	WriteTimeout       time.Duration `koanf:"write_timeout"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins        []string      `koanf:"cors_origins"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type AuthConfig struct {
	JWTKey    string        `koanf:"jwt_key"`
	AccessTTL time.Duration `koanf:"access_ttl"`
}

type GeoConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	Timeout        time.Duration `koanf:"timeout"`
	DefaultCountry string        `koanf:"default_country"`
}

type TranslatorConfig struct {
	Endpoint  string        `koanf:"endpoint"`
	Timeout   time.Duration `koanf:"timeout"`
	Languages []string      `koanf:"languages"`
}

type ListingConfig struct {
	MaxLimit int `koanf:"max_limit"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// Config is a read-only snapshot taken at startup.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Geo        GeoConfig        `koanf:"geo"`
	Translator TranslatorConfig `koanf:"translator"`
	Listing    ListingConfig    `koanf:"listing"`
	Log        LogConfig        `koanf:"log"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:               ":8080",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       15 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			CORSOrigins:        []string{},
			RateLimitPerMinute: 20,
		},
		Auth:       AuthConfig{AccessTTL: 24 * time.Hour},
		Geo:        GeoConfig{Timeout: 3 * time.Second, DefaultCountry: "DK"},
		Translator: TranslatorConfig{Timeout: 3 * time.Second, Languages: []string{"da", "de", "fr", "en", "en_us"}},
		Listing:    ListingConfig{MaxLimit: 100},
		Log:        LogConfig{Level: "info"},
	}
}

// sliceKeys may be given as comma separated strings in the environment.
var sliceKeys = []string{"server.cors_origins", "translator.languages"}

// Load layers defaults, the file at path (or $SLUSHBOOK_CONFIG) and the environment.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps SLUSHBOOK_AUTH__JWT_KEY to auth.jwt_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var problems []error
	if c.Database.DSN == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTKey == "" {
		problems = append(problems, errors.New("auth.jwt_key is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		problems = append(problems, errors.New("auth.access_ttl must be positive"))
	}
	if c.Listing.MaxLimit <= 0 {
		problems = append(problems, errors.New("listing.max_limit must be positive"))
	}
	if len(c.Geo.DefaultCountry) != 2 {
		problems = append(problems, errors.New("geo.default_country must be an ISO-3166 alpha-2 code"))
	}
	return errors.Join(problems...)
}
