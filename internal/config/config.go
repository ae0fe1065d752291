// Package config loads cdcsync configuration from YAML, JSON or CUE files
// and the environment, and builds the reconciler collaborators from it.
package config

import (
	"fmt"
	"time"

	"github.com/HENNGE/lambda-container-example/internal/index"
	"github.com/HENNGE/lambda-container-example/internal/mapping"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// Environment variables read by FromEnv.
const (
	EnvAppID      = "ALGOLIA_APP_ID"
	EnvAPIKey     = "ALGOLIA_API_KEY"
	EnvIndexName  = "ALGOLIA_INDEX_NAME"
	EnvRuntimeAPI = "AWS_LAMBDA_RUNTIME_API"
	EnvReplica    = "CDCSYNC_REPLICA"
)

// Mapping modes.
const (
	ModePassthrough = "passthrough"
	ModeFields      = "fields"
)

// Config is the whole cdcsync configuration.
type Config struct {
	Keys    Keys    `json:"keys" yaml:"keys"`
	Mapping Mapping `json:"mapping" yaml:"mapping"`
	Exclude Exclude `json:"exclude" yaml:"exclude"`
	Index   Index   `json:"index" yaml:"index"`
	Replica Replica `json:"replica" yaml:"replica"`
	Server  Server  `json:"server" yaml:"server"`

	// RuntimeAPI is the Lambda runtime host; environment only.
	RuntimeAPI string `json:"-" yaml:"-"`
}

// Keys names the key attributes of stream records.
type Keys struct {
	Hash  string `json:"hash,omitempty" yaml:"hash,omitempty"`
	Range string `json:"range,omitempty" yaml:"range,omitempty"`
}

// Mapping selects the entity mapper.
type Mapping struct {
	// Mode is "passthrough" (default) or "fields".
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	// Omit lists attributes dropped in passthrough mode. Defaults to the
	// key attributes.
	Omit []string `json:"omit,omitempty" yaml:"omit,omitempty"`

	// HashField and RangeField receive the key components in fields mode.
	HashField  string          `json:"hash_field,omitempty" yaml:"hash_field,omitempty"`
	RangeField string          `json:"range_field,omitempty" yaml:"range_field,omitempty"`
	Fields     []mapping.Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Exclude holds exclusion rule expressions.
type Exclude struct {
	Origins []string `json:"origins,omitempty" yaml:"origins,omitempty"`
	Keys    []string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// Index configures the search index downstream. Credentials come from
// the environment.
type Index struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	BatchSize int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Timeout   string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	AppID  string `json:"-" yaml:"-"`
	APIKey string `json:"-" yaml:"-"`
}

// Enabled reports whether any index setting was provided.
func (i Index) Enabled() bool {
	return i.Name != "" || i.AppID != "" || i.APIKey != ""
}

// Replica configures the SQLite replica downstream.
type Replica struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Server configures the HTTP server.
type Server struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Keys:    Keys{Hash: reconcile.DefaultHashKey, Range: reconcile.DefaultRangeKey},
		Mapping: Mapping{Mode: ModePassthrough},
		Index:   Index{Timeout: "30s"},
		Server:  Server{Addr: ":8080"},
	}
}

// FromEnv overlays environment settings. getenv is usually os.Getenv.
func (c *Config) FromEnv(getenv func(string) string) {
	c.Index.AppID = getenv(EnvAppID)
	c.Index.APIKey = getenv(EnvAPIKey)
	if name := getenv(EnvIndexName); name != "" {
		c.Index.Name = name
	}
	if path := getenv(EnvReplica); path != "" {
		c.Replica.Path = path
	}
	c.RuntimeAPI = getenv(EnvRuntimeAPI)
}

// Validate checks settings that do not depend on the environment.
func (c *Config) Validate() error {
	if c.Keys.Hash == "" || c.Keys.Range == "" {
		return fmt.Errorf("keys: hash and range attribute names are required")
	}
	if c.Keys.Hash == c.Keys.Range {
		return fmt.Errorf("keys: hash and range must differ")
	}
	switch c.Mapping.Mode {
	case ModePassthrough:
		if len(c.Mapping.Fields) > 0 {
			return fmt.Errorf("mapping: fields require mode %q", ModeFields)
		}
	case ModeFields:
		if len(c.Mapping.Fields) == 0 {
			return fmt.Errorf("mapping: mode %q needs at least one field", ModeFields)
		}
	default:
		return fmt.Errorf("mapping: unknown mode %q", c.Mapping.Mode)
	}
	if _, err := c.timeout(); err != nil {
		return err
	}
	if c.Index.BatchSize < 0 {
		return fmt.Errorf("index: batch_size must be positive")
	}
	return nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Index.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Index.Timeout)
	if err != nil {
		return 0, fmt.Errorf("index: timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("index: timeout must not be negative")
	}
	return d, nil
}

// IndexConfig returns the index client configuration.
func (c *Config) IndexConfig() (index.Config, error) {
	d, err := c.timeout()
	if err != nil {
		return index.Config{}, err
	}
	return index.Config{
		AppID:     c.Index.AppID,
		APIKey:    c.Index.APIKey,
		IndexName: c.Index.Name,
		BaseURL:   c.Index.BaseURL,
		BatchSize: c.Index.BatchSize,
		Timeout:   d,
	}, nil
}
