package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "compensation.db" {
		t.Errorf("Expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Expected 5s busy timeout, got %v", cfg.Database.BusyTimeout)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected :8080, got %q", cfg.Server.Addr)
	}
	if !cfg.Server.EnableMetrics {
		t.Error("Expected metrics to be enabled by default")
	}
	if cfg.PlanFile != "" {
		t.Errorf("Expected no plan file, got %q", cfg.PlanFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/comp.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_BUSY_TIMEOUT", "250ms")
	t.Setenv("SERVER_ENABLE_METRICS", "false")
	t.Setenv("PLAN_FILE", "plan.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/comp.db" {
		t.Errorf("Expected overridden path, got %q", cfg.Database.Path)
	}
	if cfg.Database.MaxOpenConns != 4 {
		t.Errorf("Expected 4 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.BusyTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms busy timeout, got %v", cfg.Database.BusyTimeout)
	}
	if cfg.Server.EnableMetrics {
		t.Error("Expected metrics to be disabled")
	}
	if cfg.PlanFile != "plan.yaml" {
		t.Errorf("Expected plan.yaml, got %q", cfg.PlanFile)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("Expected an error for an invalid duration")
	}
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("Expected default of 5 idle conns, got %d", cfg.Database.MaxIdleConns)
	}
}
