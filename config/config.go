// Package config reads the handler's YAML configuration file.
package config

import (
	"net/url"
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the handler looks for its configuration.
const DefaultPath = "/etc/sentry-coredump.yaml"

type Config struct {
	// Dsn is the Sentry project to report to.
	Dsn string `yaml:"dsn"`

	// OpaqueTypeResolutionOff stops gdb from looking up the definitions of
	// opaque types, which is slow on large binaries.
	OpaqueTypeResolutionOff bool `yaml:"set-opaque-type-resolution-off"`

	// IncludeVariables captures locals and arguments of every frame.
	IncludeVariables bool `yaml:"include-variables"`

	// ExtensionScript is a Go plugin that can alter events before they are sent.
	ExtensionScript string `yaml:"extension-script"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading config: %w", err)
	}
	return Parse(b)
}

// Parse decodes a YAML configuration document.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, xerrors.Errorf("parsing config: %w", err)
	}
	if c.Dsn == "" {
		return nil, xerrors.New("config: dsn is required")
	}
	return &c, nil
}

// Redacted returns a copy of c with the DSN's secret key masked.
func (c Config) Redacted() Config {
	u, err := url.Parse(c.Dsn)
	if err != nil || u.User == nil {
		return c
	}
	if _, hasSecret := u.User.Password(); hasSecret {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
		c.Dsn = u.String()
	}
	return c
}
