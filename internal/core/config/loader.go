package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/dispatcher/internal/dispatch/retry"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills defaults and validates it.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *AppConfig) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}

	if c.Dispatch.MaxRetries == 0 {
		c.Dispatch.MaxRetries = retry.DefaultMaxRetries
	}
	if c.Dispatch.BaseDelay == 0 {
		c.Dispatch.BaseDelay = retry.DefaultBaseDelay
	}

	if len(c.Dispatch.DefaultOrder) == 0 {
		for _, b := range c.Backends {
			c.Dispatch.DefaultOrder = append(c.Dispatch.DefaultOrder, b.ID)
		}
	}

	for i := range c.Backends {
		if c.Backends[i].Timeout == 0 {
			c.Backends[i].Timeout = 30 * time.Second
		}
	}

	if c.Health.DegradedBelow == 0 {
		c.Health.DegradedBelow = 0.8
	}
	if c.Health.CriticalBelow == 0 {
		c.Health.CriticalBelow = 0.3
	}
	if c.Health.MinAttempts == 0 {
		c.Health.MinAttempts = 10
	}
	if c.Health.SnapshotInterval == 0 && c.Redis.URL != "" {
		c.Health.SnapshotInterval = 30 * time.Second
	}
}

// Validate checks backend definitions and the default order.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Dispatch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_retries must not be negative"))
	}
	if c.Dispatch.BaseDelay < 0 || c.Dispatch.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("dispatch delays must not be negative"))
	}

	known := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if b.ID == "" {
			errs = append(errs, fmt.Errorf("backends[%d]: id is required", i))
			continue
		}
		if known[b.ID] {
			errs = append(errs, fmt.Errorf("backend %s: duplicate id", b.ID))
		}
		known[b.ID] = true

		switch b.Type {
		case BackendHTTP:
			if b.URL == "" {
				errs = append(errs, fmt.Errorf("backend %s: url is required", b.ID))
			}
			if b.MaxResponseBytes < 0 {
				errs = append(errs, fmt.Errorf("backend %s: max_response_bytes must not be negative", b.ID))
			}
		case BackendGRPC:
			if b.URL == "" || b.Method == "" {
				errs = append(errs, fmt.Errorf("backend %s: url and method are required", b.ID))
			}
		case BackendKafka:
			if b.Brokers == "" || b.Topic == "" {
				errs = append(errs, fmt.Errorf("backend %s: brokers and topic are required", b.ID))
			}
		default:
			errs = append(errs, fmt.Errorf("backend %s: unknown type %q", b.ID, b.Type))
		}
	}

	for _, id := range c.Dispatch.DefaultOrder {
		if !known[id] {
			errs = append(errs, fmt.Errorf("dispatch.default_order: unknown backend %s", id))
		}
	}

	return errors.Join(errs...)
}
