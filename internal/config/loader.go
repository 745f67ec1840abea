// Package config loads bridge configuration from an optional YAML file and
// environment variables. Environment values override file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings of the calendar bridge.
type Config struct {
	HTTPPort         int
	Storage          string
	SQLiteDSN        string
	SyncInterval     time.Duration
	MaxConnections   int
	MaxEventDuration time.Duration
	AllowedDomains   []string
	BlockedDomains   []string
	// FailedJobThreshold is the failed sync job count beyond which the system
	// health degrades to unhealthy.
	FailedJobThreshold int
}

// fileConfig mirrors the YAML structure for unmarshalling.
type fileConfig struct {
	HTTPPort int    `yaml:"http_port"`
	Storage  string `yaml:"storage"`
	SQLite   struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sqlite"`
	Sync struct {
		Interval string `yaml:"interval"`
	} `yaml:"sync"`
	Limits struct {
		MaxConnections     int    `yaml:"max_connections"`
		MaxEventDuration   string `yaml:"max_event_duration"`
		FailedJobThreshold int    `yaml:"failed_job_threshold"`
	} `yaml:"limits"`
	Domains struct {
		Allowed []string `yaml:"allowed"`
		Blocked []string `yaml:"blocked"`
	} `yaml:"domains"`
}

// Load builds the configuration from defaults, the YAML file named by
// BRIDGE_CONFIG (if set), and BRIDGE_* environment variables, in that order.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		Storage:            "memory",
		SQLiteDSN:          "file:calendarbridge.db?_pragma=foreign_keys(1)",
		SyncInterval:       15 * time.Minute,
		MaxConnections:     5,
		MaxEventDuration:   24 * time.Hour,
		FailedJobThreshold: 5,
	}

	if path := strings.TrimSpace(os.Getenv("BRIDGE_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Storage != "memory" && cfg.Storage != "sqlite" {
		return Config{}, fmt.Errorf("config: unknown storage backend %q", cfg.Storage)
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	// Expand ${VAR} references before parsing so secrets can stay in the environment.
	expanded := os.ExpandEnv(string(data))

	var raw fileConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if raw.HTTPPort > 0 {
		cfg.HTTPPort = raw.HTTPPort
	}
	if raw.Storage != "" {
		cfg.Storage = raw.Storage
	}
	if raw.SQLite.DSN != "" {
		cfg.SQLiteDSN = raw.SQLite.DSN
	}
	if raw.Sync.Interval != "" {
		interval, err := time.ParseDuration(raw.Sync.Interval)
		if err != nil || interval <= 0 {
			return fmt.Errorf("config: invalid sync.interval %q", raw.Sync.Interval)
		}
		cfg.SyncInterval = interval
	}
	if raw.Limits.MaxConnections > 0 {
		cfg.MaxConnections = raw.Limits.MaxConnections
	}
	if raw.Limits.MaxEventDuration != "" {
		max, err := time.ParseDuration(raw.Limits.MaxEventDuration)
		if err != nil || max <= 0 {
			return fmt.Errorf("config: invalid limits.max_event_duration %q", raw.Limits.MaxEventDuration)
		}
		cfg.MaxEventDuration = max
	}
	if raw.Limits.FailedJobThreshold > 0 {
		cfg.FailedJobThreshold = raw.Limits.FailedJobThreshold
	}
	if len(raw.Domains.Allowed) > 0 {
		cfg.AllowedDomains = raw.Domains.Allowed
	}
	if len(raw.Domains.Blocked) > 0 {
		cfg.BlockedDomains = raw.Domains.Blocked
	}

	return nil
}

func applyEnv(cfg *Config) error {
	invalid := make([]string, 0, 2)

	if value := strings.TrimSpace(os.Getenv("BRIDGE_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BRIDGE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_STORAGE")); value != "" {
		cfg.Storage = value
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_SQLITE_DSN")); value != "" {
		cfg.SQLiteDSN = value
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_SYNC_INTERVAL")); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "BRIDGE_SYNC_INTERVAL")
		} else {
			cfg.SyncInterval = interval
		}
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_MAX_CONNECTIONS")); value != "" {
		max, err := strconv.Atoi(value)
		if err != nil || max <= 0 {
			invalid = append(invalid, "BRIDGE_MAX_CONNECTIONS")
		} else {
			cfg.MaxConnections = max
		}
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_MAX_EVENT_DURATION")); value != "" {
		max, err := time.ParseDuration(value)
		if err != nil || max <= 0 {
			invalid = append(invalid, "BRIDGE_MAX_EVENT_DURATION")
		} else {
			cfg.MaxEventDuration = max
		}
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_FAILED_JOB_THRESHOLD")); value != "" {
		threshold, err := strconv.Atoi(value)
		if err != nil || threshold <= 0 {
			invalid = append(invalid, "BRIDGE_FAILED_JOB_THRESHOLD")
		} else {
			cfg.FailedJobThreshold = threshold
		}
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_ALLOWED_DOMAINS")); value != "" {
		cfg.AllowedDomains = splitDomains(value)
	}

	if value := strings.TrimSpace(os.Getenv("BRIDGE_BLOCKED_DOMAINS")); value != "" {
		cfg.BlockedDomains = splitDomains(value)
	}

	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func splitDomains(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
