package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %q, want sqlite when no DSN is set", cfg.DBDriver)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("port = %d", cfg.HTTPPort)
	}
	if !cfg.AutomationEnabled {
		t.Fatalf("automation should default on")
	}
}

func TestAutoDriverPrefersPostgresWithDSN(t *testing.T) {
	t.Setenv("CRM_POSTGRES_DSN", "postgres://localhost/crm")
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("driver = %q, want postgres", cfg.DBDriver)
	}
}

func TestPostgresDriverRequiresDSN(t *testing.T) {
	t.Setenv("CRM_DB_DRIVER", "postgres")
	if _, err := New(); err == nil {
		t.Fatalf("expected error for postgres driver without DSN")
	}
}

func TestRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CRM_DB_DRIVER", "oracle")
	if _, err := New(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRejectsNonPositivePollInterval(t *testing.T) {
	t.Setenv("CRM_POLL_INTERVAL_MS", "0")
	if _, err := New(); err == nil {
		t.Fatalf("expected error for zero poll interval")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CRM_HTTP_PORT", "9090")
	t.Setenv("CRM_BATCH_SIZE", "25")
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.HTTPPort != 9090 || cfg.BatchSize != 25 {
		t.Fatalf("overrides not applied: port=%d batch=%d", cfg.HTTPPort, cfg.BatchSize)
	}
	if cfg.GetHTTPAddr() != ":9090" {
		t.Fatalf("addr = %q", cfg.GetHTTPAddr())
	}
}
