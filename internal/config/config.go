// Package config builds the server configuration from the environment and an
// optional YAML overlay file. Business logic never reads the environment
// directly; the resolved Config is passed into the session constructor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized at startup.
const (
	EnvURL      = "SAP_URL"
	EnvUser     = "SAP_USER"
	EnvPassword = "SAP_PASSWORD"
	EnvClient   = "SAP_CLIENT"
	EnvLanguage = "SAP_LANGUAGE"
)

// ErrMissingRequired indicates one or more mandatory settings were absent.
var ErrMissingRequired = errors.New("missing required configuration")

// Config holds the connection parameters for the ADT backend.
type Config struct {
	// URL is the base URL of the SAP system, e.g. https://host:44300.
	URL string `yaml:"url"`

	// User and Password authenticate the ADT session.
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Client is the optional SAP client number, e.g. "100".
	Client string `yaml:"client"`

	// Language is the optional logon language, e.g. "EN".
	Language string `yaml:"language"`
}

// Load resolves the configuration. When path is non-empty the YAML file at
// that location is read first; environment variables override file values.
// Every missing mandatory setting is reported in a single error so operators
// can fix them all at once.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv resolves the configuration from the environment alone.
func FromEnv() (*Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvURL); v != "" {
		cfg.URL = v
	}

	if v := os.Getenv(EnvUser); v != "" {
		cfg.User = v
	}

	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}

	if v := os.Getenv(EnvClient); v != "" {
		cfg.Client = v
	}

	if v := os.Getenv(EnvLanguage); v != "" {
		cfg.Language = v
	}
}

// Validate reports every mandatory setting that is still unset, named by its
// environment variable.
func (c *Config) Validate() error {
	var missing []string

	if c.URL == "" {
		missing = append(missing, EnvURL)
	}

	if c.User == "" {
		missing = append(missing, EnvUser)
	}

	if c.Password == "" {
		missing = append(missing, EnvPassword)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	return nil
}
