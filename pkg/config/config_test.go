package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, yamlContent string) {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Change to temp directory so Load() finds config.yaml
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	writeTestConfig(t, `
port: "8090"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
analysis:
  batch_size: 25
`)

	os.Unsetenv("PGHOST")
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ANALYSIS_BATCH_SIZE", "10")
	t.Setenv("ANALYSIS_TRIGGER_SECRET", "test-secret")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("expected Port=9090 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Analysis.BatchSize != 10 {
		t.Errorf("expected BatchSize=10 (from env), got %d", cfg.Analysis.BatchSize)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host from YAML, got %s", cfg.Database.Host)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_AnalysisDefaults(t *testing.T) {
	writeTestConfig(t, `
env: "test"
`)

	for _, key := range []string{
		"ANALYSIS_BATCH_SIZE", "ANALYSIS_COOLDOWN_DAYS", "ANALYSIS_MIN_STRENGTH",
		"ANALYSIS_MAX_CONNECTIONS", "ANALYSIS_WORKERS",
	} {
		os.Unsetenv(key)
	}
	t.Setenv("ANALYSIS_TRIGGER_SECRET", "test-secret")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Analysis.BatchSize != 50 {
		t.Errorf("expected default BatchSize=50, got %d", cfg.Analysis.BatchSize)
	}
	if cfg.Analysis.CooldownDays != 7 {
		t.Errorf("expected default CooldownDays=7, got %d", cfg.Analysis.CooldownDays)
	}
	if cfg.Analysis.MinStrength != 0.40 {
		t.Errorf("expected default MinStrength=0.40, got %f", cfg.Analysis.MinStrength)
	}
	if cfg.Analysis.MaxConnections != 8 {
		t.Errorf("expected default MaxConnections=8, got %d", cfg.Analysis.MaxConnections)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("expected default Workers=4, got %d", cfg.Analysis.Workers)
	}
	if cfg.Patterns.WindowDays != 730 {
		t.Errorf("expected default Patterns.WindowDays=730, got %d", cfg.Patterns.WindowDays)
	}
}

func TestLoad_MissingTriggerSecret(t *testing.T) {
	writeTestConfig(t, `
env: "test"
`)

	os.Unsetenv("ANALYSIS_TRIGGER_SECRET")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected Load() to fail without ANALYSIS_TRIGGER_SECRET")
	}
}

func TestConnectionString(t *testing.T) {
	dbCfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "phenom",
		Password: "secret",
		Database: "phenom_engine",
		SSLMode:  "disable",
	}

	want := "host=localhost port=5432 user=phenom password=secret dbname=phenom_engine sslmode=disable"
	if got := dbCfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
