package config

import (
	"time"

	"github.com/vietddude/dispatcher/internal/dispatch/retry"
	redisclient "github.com/vietddude/dispatcher/internal/infra/redis"
	"github.com/vietddude/dispatcher/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Dispatch DispatchConfig     `yaml:"dispatch"`
	Backends []BackendConfig    `yaml:"backends"`
	Health   HealthConfig       `yaml:"health"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	History  HistoryConfig      `yaml:"history"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DispatchConfig holds the default chain and retry policy.
type DispatchConfig struct {
	DefaultOrder []string      `yaml:"default_order"` // empty = declaration order of backends
	Kinds        []string      `yaml:"kinds"`         // task kinds exported as metric labels, others = "other"
	MaxRetries   int           `yaml:"max_retries"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"` // 0 = uncapped
}

// Policy converts the config into a retry policy.
func (c DispatchConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.BaseDelay,
		MaxDelay:   c.MaxDelay,
	}.Normalize()
}

// BackendType selects the transport of a backend.
type BackendType string

const (
	BackendHTTP  BackendType = "http"
	BackendGRPC  BackendType = "grpc"
	BackendKafka BackendType = "kafka"
)

// BackendConfig holds settings for one execution backend.
type BackendConfig struct {
	ID      string            `yaml:"id"`
	Type    BackendType       `yaml:"type"`
	Enabled *bool             `yaml:"enabled"` // nil = enabled
	Timeout time.Duration     `yaml:"timeout"`
	URL     string            `yaml:"url"`     // http: endpoint, grpc: target
	Headers map[string]string `yaml:"headers"` // http only
	Method  string            `yaml:"method"`  // grpc full method, e.g. /tasks.v1.Executor/Run
	Brokers string            `yaml:"brokers"` // kafka, comma separated
	Topic   string            `yaml:"topic"`   // kafka

	// MaxResponseBytes caps an http response body, 0 = 4 MiB.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// IsEnabled reports the initial enabled flag.
func (b BackendConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// HealthConfig holds thresholds for the health report and the snapshot cadence.
type HealthConfig struct {
	DegradedBelow    float64       `yaml:"degraded_below"`
	CriticalBelow    float64       `yaml:"critical_below"`
	MinAttempts      int64         `yaml:"min_attempts"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"` // redis snapshots, 0 = disabled
}

// HistoryConfig holds execution history settings.
type HistoryConfig struct {
	RetentionPeriod time.Duration `yaml:"retention_period"` // 0 = infinite
}
