package config

import (
	"errors"
	"fmt"
	"time"
)

// Configuration defaults.
const (
	DefaultListenAddress   = ":8080"
	DefaultMaxConcurrent   = 200
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRedisKey        = "rdap:conformance"
)

// Conformance source kinds.
const (
	ConformanceSourceStatic = "static"
	ConformanceSourceFile   = "file"
	ConformanceSourceRedis  = "redis"
)

// Sentinel validation errors.
var (
	ErrNilConfig            = errors.New("configuration is required")
	ErrInvalidMaxConcurrent = errors.New("admission maxConcurrent must be positive")
	ErrMissingFilePath      = errors.New("conformance file source requires a path")
	ErrMissingRedisAddress  = errors.New("conformance redis source requires an address")
	ErrUnknownSource        = errors.New("unknown conformance source")
)

// GatewayConfig is the root configuration for the RDAP gateway.
type GatewayConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Admission   AdmissionConfig   `yaml:"admission"`
	Conformance ConformanceConfig `yaml:"conformance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	BasePath        string   `yaml:"basePath,omitempty"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty"`
}

// AdmissionConfig configures the concurrent request limit.
type AdmissionConfig struct {
	// MaxConcurrent is the maximum number of requests allowed to
	// execute concurrently. Requests beyond the limit receive an
	// immediate 509 response.
	MaxConcurrent int `yaml:"maxConcurrent"`
}

// ConformanceConfig configures where the conformance list is loaded
// from at startup.
type ConformanceConfig struct {
	// Source is one of "static", "file" or "redis".
	Source string      `yaml:"source"`
	File   string      `yaml:"file,omitempty"`
	Redis  RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the Redis backing store.
type RedisConfig struct {
	Address  string   `yaml:"address"`
	Password string   `yaml:"password,omitempty"`
	DB       int      `yaml:"db,omitempty"`
	Key      string   `yaml:"key,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	Output string `yaml:"output,omitempty"`
}

// DefaultConfig returns a configuration populated with defaults.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Address:         DefaultListenAddress,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Admission: AdmissionConfig{
			MaxConcurrent: DefaultMaxConcurrent,
		},
		Conformance: ConformanceConfig{
			Source: ConformanceSourceStatic,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyDefaults fills unset fields with defaults.
func (c *GatewayConfig) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultListenAddress
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Admission.MaxConcurrent == 0 {
		c.Admission.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Conformance.Source == "" {
		c.Conformance.Source = ConformanceSourceStatic
	}
	if c.Conformance.Redis.Key == "" {
		c.Conformance.Redis.Key = DefaultRedisKey
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for consistency.
func (c *GatewayConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Admission.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxConcurrent, c.Admission.MaxConcurrent)
	}
	switch c.Conformance.Source {
	case ConformanceSourceStatic:
	case ConformanceSourceFile:
		if c.Conformance.File == "" {
			return ErrMissingFilePath
		}
	case ConformanceSourceRedis:
		if c.Conformance.Redis.Address == "" {
			return ErrMissingRedisAddress
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Conformance.Source)
	}
	return nil
}
