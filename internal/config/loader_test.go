package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearBridgeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BRIDGE_CONFIG",
		"BRIDGE_HTTP_PORT",
		"BRIDGE_STORAGE",
		"BRIDGE_SQLITE_DSN",
		"BRIDGE_SYNC_INTERVAL",
		"BRIDGE_MAX_CONNECTIONS",
		"BRIDGE_MAX_EVENT_DURATION",
		"BRIDGE_FAILED_JOB_THRESHOLD",
		"BRIDGE_ALLOWED_DOMAINS",
		"BRIDGE_BLOCKED_DOMAINS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearBridgeEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPPort != 8080 {
			t.Fatalf("port = %d", cfg.HTTPPort)
		}
		if cfg.Storage != "memory" {
			t.Fatalf("storage = %s", cfg.Storage)
		}
		if cfg.SyncInterval != 15*time.Minute {
			t.Fatalf("interval = %v", cfg.SyncInterval)
		}
		if cfg.MaxConnections != 5 || cfg.FailedJobThreshold != 5 {
			t.Fatalf("limits = %d/%d", cfg.MaxConnections, cfg.FailedJobThreshold)
		}
		if cfg.MaxEventDuration != 24*time.Hour {
			t.Fatalf("max event duration = %v", cfg.MaxEventDuration)
		}
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		clearBridgeEnv(t)
		path := writeConfigFile(t, `
http_port: 9090
storage: sqlite
sqlite:
  dsn: file:/tmp/test.db
sync:
  interval: 5m
limits:
  max_connections: 3
  max_event_duration: 8h
  failed_job_threshold: 2
domains:
  allowed:
    - example.com
  blocked:
    - spam.example
`)
		t.Setenv("BRIDGE_CONFIG", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.Storage != "sqlite" {
			t.Fatalf("cfg = %+v", cfg)
		}
		if cfg.SQLiteDSN != "file:/tmp/test.db" {
			t.Fatalf("dsn = %s", cfg.SQLiteDSN)
		}
		if cfg.SyncInterval != 5*time.Minute || cfg.MaxConnections != 3 {
			t.Fatalf("cfg = %+v", cfg)
		}
		if cfg.MaxEventDuration != 8*time.Hour || cfg.FailedJobThreshold != 2 {
			t.Fatalf("cfg = %+v", cfg)
		}
		if len(cfg.AllowedDomains) != 1 || cfg.AllowedDomains[0] != "example.com" {
			t.Fatalf("allowed = %v", cfg.AllowedDomains)
		}
		if len(cfg.BlockedDomains) != 1 || cfg.BlockedDomains[0] != "spam.example" {
			t.Fatalf("blocked = %v", cfg.BlockedDomains)
		}
	})

	t.Run("environment variables in the file are expanded", func(t *testing.T) {
		clearBridgeEnv(t)
		t.Setenv("TEST_BRIDGE_DSN", "file:/var/lib/bridge.db")
		path := writeConfigFile(t, "storage: sqlite\nsqlite:\n  dsn: ${TEST_BRIDGE_DSN}\n")
		t.Setenv("BRIDGE_CONFIG", path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.SQLiteDSN != "file:/var/lib/bridge.db" {
			t.Fatalf("dsn = %s", cfg.SQLiteDSN)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearBridgeEnv(t)
		path := writeConfigFile(t, "http_port: 9090\n")
		t.Setenv("BRIDGE_CONFIG", path)
		t.Setenv("BRIDGE_HTTP_PORT", "7070")
		t.Setenv("BRIDGE_SYNC_INTERVAL", "1m")
		t.Setenv("BRIDGE_ALLOWED_DOMAINS", "Example.COM, partner.example ,")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("port = %d", cfg.HTTPPort)
		}
		if cfg.SyncInterval != time.Minute {
			t.Fatalf("interval = %v", cfg.SyncInterval)
		}
		want := []string{"example.com", "partner.example"}
		if len(cfg.AllowedDomains) != len(want) {
			t.Fatalf("allowed = %v", cfg.AllowedDomains)
		}
		for i, domain := range want {
			if cfg.AllowedDomains[i] != domain {
				t.Fatalf("allowed = %v", cfg.AllowedDomains)
			}
		}
	})

	t.Run("invalid environment values are reported", func(t *testing.T) {
		clearBridgeEnv(t)
		t.Setenv("BRIDGE_HTTP_PORT", "not-a-port")

		if _, err := Load(); err == nil {
			t.Fatalf("expected an error for invalid port")
		}
	})

	t.Run("unknown storage backend is rejected", func(t *testing.T) {
		clearBridgeEnv(t)
		t.Setenv("BRIDGE_STORAGE", "postgres")

		if _, err := Load(); err == nil {
			t.Fatalf("expected an error for unknown storage")
		}
	})

	t.Run("invalid sync interval in the file is rejected", func(t *testing.T) {
		clearBridgeEnv(t)
		path := writeConfigFile(t, "sync:\n  interval: soon\n")
		t.Setenv("BRIDGE_CONFIG", path)

		if _, err := Load(); err == nil {
			t.Fatalf("expected an error for invalid interval")
		}
	})
}
