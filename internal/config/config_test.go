package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("LLM_ADAPTER", "")
	t.Setenv("SCHEDULER_CONCURRENCY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.ListenAddr)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DSN() != cfg.DatabasePath {
		t.Fatalf("unexpected database defaults: %+v", cfg)
	}
	if cfg.LLMAdapter != "monitoring" {
		t.Fatalf("expected monitoring adapter, got %q", cfg.LLMAdapter)
	}
	if cfg.SchedulerConcurrency != 4 || cfg.SchedulerMaxAttempts != 3 {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clientdash.yaml")
	content := "port: \"9000\"\ndatabase_driver: postgres\ndatabase_url: postgres://file\nllm_adapter: simulated\nscheduler_enabled: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("LLM_ADAPTER", "")
	t.Setenv("SCHEDULER_ENABLED", "")
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("expected :9000, got %q", cfg.ListenAddr)
	}
	if cfg.DSN() != "postgres://env" {
		t.Fatalf("env should override file, got %q", cfg.DSN())
	}
	if cfg.LLMAdapter != "simulated" || !cfg.SchedulerEnabled {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SCHEDULER_CONCURRENCY", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
