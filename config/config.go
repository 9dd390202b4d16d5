// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads cinemap settings from defaults, an optional YAML file
// and the environment.
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

	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/geocode"
	"github.com/jcodagnone/cinemap/letterboxd"
	"github.com/jcodagnone/cinemap/tmdb"
)

// DefaultConfigFile is read from the working directory when no explicit
// path is given.
const DefaultConfigFile = "cinemap.yaml"

// EnvPrefix prefixes every generic environment override, e.g.
// CINEMAP_GEOCODER_PROVIDER -> geocoder.provider.
const EnvPrefix = "CINEMAP_"

const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

var (
	// ErrMissingAPIKey is returned by Validate when no TMDB key was configured.
	ErrMissingAPIKey = errors.New("TMDB_API_KEY is not set")
	ErrBadProvider   = errors.New("unknown geocoder provider")
)

type Config struct {
	TMDB       TMDBConfig       `koanf:"tmdb"`
	Geocoder   GeocoderConfig   `koanf:"geocoder"`
	Letterboxd LetterboxdConfig `koanf:"letterboxd"`
	HTTP       HTTPConfig       `koanf:"http"`
	Server     ServerConfig     `koanf:"server"`
}

type TMDBConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Pause   time.Duration `koanf:"pause"` // between dependent lookups of one film
}

type GeocoderConfig struct {
	Provider     string        `koanf:"provider"`
	MinInterval  time.Duration `koanf:"min_interval"`
	BaseURL      string        `koanf:"base_url"`
	UserAgent    string        `koanf:"user_agent"` // Nominatim rejects anonymous clients
	GoogleAPIKey string        `koanf:"google_api_key"`
	// GoogleKeyName is the display name of the key looked up through ADC
	// when GoogleAPIKey is empty.
	GoogleKeyName string `koanf:"google_key_name"`
}

type LetterboxdConfig struct {
	BaseURL   string        `koanf:"base_url"`
	PageDelay time.Duration `koanf:"page_delay"`
	MaxPages  int           `koanf:"max_pages"`
}

type HTTPConfig struct {
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
	Trace     bool          `koanf:"trace"`
	TraceBody bool          `koanf:"trace_body"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL: tmdb.DefaultBaseURL,
			Pause:   enrich.DefaultPause,
		},
		Geocoder: GeocoderConfig{
			Provider:      ProviderNominatim,
			MinInterval:   geocode.DefaultMinInterval,
			UserAgent:     "cinemap (https://github.com/jcodagnone/cinemap)",
			GoogleKeyName: "Maps Platform API Key",
		},
		Letterboxd: LetterboxdConfig{
			BaseURL:   letterboxd.DefaultBaseURL,
			PageDelay: time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent: "cinemap",
			Timeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Options tune Load.
type Options struct {
	// Path of the YAML file. When empty DefaultConfigFile is used if it exists.
	Path string

	// Overrides are applied last, keyed by koanf path (e.g. "http.trace").
	Overrides map[string]any

	// Environ replaces os.Environ, for tests.
	Environ func() []string
}

// Load layers defaults, the YAML file, the environment and overrides.
func Load(opts *Options) (*Config, error) {
	if opts == nil {
		opts = &Options{}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path, err := configFile(opts.Path)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	return cfg, nil
}

// An explicit path must exist; the default one is optional.
func configFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}

		return path, nil
	}

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}

	return "", nil
}

func loadEnv(k *koanf.Koanf, environ func() []string) error {
	if environ == nil {
		return k.Load(env.Provider("", ".", envTransformFunc), nil)
	}

	// the env provider only reads the process environment
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		if key := envTransformFunc(name); key != "" {
			if err := k.Set(key, value); err != nil {
				return err
			}
		}
	}

	return nil
}

var envMappings = map[string]string{
	"TMDB_API_KEY":        "tmdb.api_key",
	"GOOGLE_MAPS_API_KEY": "geocoder.google_api_key",
}

// envTransformFunc maps environment variable names to koanf paths. Names
// that are not ours map to "" and are ignored.
func envTransformFunc(name string) string {
	if key, ok := envMappings[name]; ok {
		return key
	}

	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok {
		return ""
	}

	section, field, ok := strings.Cut(strings.ToLower(rest), "_")
	if !ok || field == "" {
		return ""
	}

	return section + "." + field
}

// Validate checks the settings needed to enrich films.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}

	switch c.Geocoder.Provider {
	case ProviderNominatim, ProviderGoogle:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrBadProvider, c.Geocoder.Provider))
	}

	if c.TMDB.Pause < 0 {
		errs = append(errs, fmt.Errorf("tmdb.pause must not be negative: %s", c.TMDB.Pause))
	}

	if c.Geocoder.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("geocoder.min_interval must not be negative: %s", c.Geocoder.MinInterval))
	}

	return errors.Join(errs...)
}
