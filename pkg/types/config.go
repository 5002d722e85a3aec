package types

import (
	"github.com/cockroachdb/errors"
)

// Config holds backend selection, backend parameters and the declared
// element models.
type Config struct {
	Backend  string      `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string      `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	Redis    RedisConfig `json:"redis" yaml:"redis,omitempty" mapstructure:"redis"`
	LogLevel string      `json:"log_level" yaml:"log_level,omitempty" mapstructure:"log_level"`
	Models   []ModelSpec `json:"models" yaml:"models,omitempty" mapstructure:"models"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr,omitempty" mapstructure:"addr"`
	Password string `json:"password" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db,omitempty" mapstructure:"db"`
}

// ModelSpec declares an element model in configuration.
type ModelSpec struct {
	Name       string          `json:"name" yaml:"name" mapstructure:"name"`
	Key        string          `json:"key" yaml:"key,omitempty" mapstructure:"key"`
	Dynamic    bool            `json:"dynamic" yaml:"dynamic,omitempty" mapstructure:"dynamic"`
	Attributes []AttributeSpec `json:"attributes" yaml:"attributes,omitempty" mapstructure:"attributes"`
	Counters   []string        `json:"counters" yaml:"counters,omitempty" mapstructure:"counters"`
	Sets       []string        `json:"sets" yaml:"sets,omitempty" mapstructure:"sets"`
	Lists      []string        `json:"lists" yaml:"lists,omitempty" mapstructure:"lists"`
}

// AttributeSpec declares one attribute of a ModelSpec. Type is one of the
// attribute kind names (string, integer, boolean, guid, enum, datetime).
type AttributeSpec struct {
	Name    string   `json:"name" yaml:"name" mapstructure:"name"`
	Type    string   `json:"type" yaml:"type" mapstructure:"type"`
	Indexed bool     `json:"indexed" yaml:"indexed,omitempty" mapstructure:"indexed"`
	Default any      `json:"default" yaml:"default,omitempty" mapstructure:"default"`
	Values  []string `json:"values" yaml:"values,omitempty" mapstructure:"values"`
}

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config validation errors.
var (
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
	ErrRedisAddrEmpty  = errors.New("redis backend requires an address")
	ErrModelNameEmpty  = errors.New("model name must not be empty")
	ErrLogLevelUnknown = errors.New("unknown log level")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendSQLite: true,
	BackendRedis:  true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return errors.Wrapf(ErrBackendUnknown, "backend %q", c.Backend)
	}
	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return ErrRedisAddrEmpty
	}
	if !knownLogLevels[c.LogLevel] {
		return errors.Wrapf(ErrLogLevelUnknown, "log level %q", c.LogLevel)
	}
	for _, m := range c.Models {
		if m.Name == "" {
			return ErrModelNameEmpty
		}
	}
	return nil
}
