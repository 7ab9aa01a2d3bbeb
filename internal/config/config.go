// Package config collects the settings of the gqlink CLI. Values come from
// defaults, then the environment, then command-line flags; later sources
// win.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hanpama/gqlink/internal/tokenstore"
)

// Environment variables read by FromEnv.
const (
	EnvEndpoint     = "GRAPHQL_URL"
	EnvTokenDB      = "GQLINK_TOKEN_DB"
	EnvTimeout      = "GQLINK_TIMEOUT"
	EnvOTelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTelService  = "OTEL_SERVICE_NAME"
)

var ErrNoEndpoint = errors.New("config: no GraphQL endpoint (set " + EnvEndpoint + " or -endpoint)")

type Config struct {
	Endpoint string
	// TokenDB is the SQLite file holding the token slot.
	TokenDB  string
	TokenKey string
	// Location is the path the host application is currently on.
	Location string
	LogLevel string
	// Timeout bounds one operation. Zero means no bound.
	Timeout time.Duration

	OTelEndpoint string
	OTelService  string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.TokenDB = defaultTokenDB()
	c.TokenKey = tokenstore.DefaultKey
	c.Location = "/"
	c.LogLevel = "warn"
	c.Timeout = 30 * time.Second
	c.OTelService = "gqlink"
}

func defaultTokenDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gqlink.db"
	}
	return filepath.Join(dir, "gqlink", "token.db")
}

// FromEnv overlays values found through lookup (usually os.LookupEnv).
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpoint); ok {
		c.Endpoint = v
	}
	if v, ok := lookup(EnvTokenDB); ok {
		c.TokenDB = v
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvOTelEndpoint); ok {
		c.OTelEndpoint = v
	}
	if v, ok := lookup(EnvOTelService); ok {
		c.OTelService = v
	}
	return nil
}

// RegisterFlags binds c's fields to fs, using the current values as
// defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "GraphQL endpoint URL")
	fs.StringVar(&c.TokenDB, "token.db", c.TokenDB, "SQLite file holding the token")
	fs.StringVar(&c.TokenKey, "token.key", c.TokenKey, "Storage key of the token")
	fs.StringVar(&c.Location, "location", c.Location, "Current application path")
	fs.StringVar(&c.LogLevel, "log.level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Per-operation timeout")
	fs.StringVar(&c.OTelEndpoint, "otel.endpoint", c.OTelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&c.OTelService, "otel.service", c.OTelService, "OpenTelemetry service name")
}

// Load applies defaults and the environment.
func Load(lookup func(string) (string, bool)) (*Config, error) {
	c := &Config{}
	c.LoadDefaults()
	if err := c.FromEnv(lookup); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings needed to run operations.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	return nil
}
