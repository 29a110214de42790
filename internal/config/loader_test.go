package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	configContent := `
api:
  base_id: appTESTBASE000001
  token: keyTESTTOKEN
  timeout_seconds: 15
  min_request_interval_ms: 250
  max_retries: 2

jobs:
  test_job:
    table: Invoices
    filter: "AND({Status}='Open')"
    max_records: 50
    expansion:
      expand_tables: [Clients, Projects]
      max_depth: 3

expansion:
  max_depth: 2

output:
  format: jsonl
  destination: out/records.jsonl

logging:
  level: debug
  format: text
  output: stderr
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify API config
	if cfg.API.BaseID != "appTESTBASE000001" {
		t.Errorf("expected base_id 'appTESTBASE000001', got %s", cfg.API.BaseID)
	}
	if cfg.API.Token != "keyTESTTOKEN" {
		t.Errorf("expected token 'keyTESTTOKEN', got %s", cfg.API.Token)
	}
	if cfg.API.TimeoutSeconds != 15 {
		t.Errorf("expected timeout_seconds 15, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.MinRequestIntervalMS != 250 {
		t.Errorf("expected min_request_interval_ms 250, got %d", cfg.API.MinRequestIntervalMS)
	}
	if cfg.API.Endpoint != "https://api.airtable.com" {
		t.Errorf("expected default endpoint to survive, got %s", cfg.API.Endpoint)
	}

	// Verify job config
	if len(cfg.Jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(cfg.Jobs))
	}
	job, exists := cfg.Jobs["test_job"]
	if !exists {
		t.Error("expected 'test_job' to exist")
	}
	if job.Table != "Invoices" {
		t.Errorf("expected table 'Invoices', got %s", job.Table)
	}
	if job.Expansion == nil || len(job.Expansion.ExpandTables) != 2 {
		t.Errorf("expected 2 expand_tables on job, got %+v", job.Expansion)
	}
	if job.Expansion.MaxDepth != 3 {
		t.Errorf("expected job max_depth 3, got %d", job.Expansion.MaxDepth)
	}

	// Verify global expansion config
	if cfg.Expansion.MaxDepth != 2 {
		t.Errorf("expected global max_depth 2, got %d", cfg.Expansion.MaxDepth)
	}

	// Verify output config
	if cfg.Output.Format != "jsonl" {
		t.Errorf("expected output format 'jsonl', got %s", cfg.Output.Format)
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level 'debug', got %s", cfg.Logging.Level)
	}
}

func TestLoadWithEnvVars(t *testing.T) {
	// Set environment variables for test
	os.Setenv("TEST_AT_BASE", "appENVBASE0000001")
	os.Setenv("TEST_AT_TOKEN", "patENVTOKEN")
	defer func() {
		os.Unsetenv("TEST_AT_BASE")
		os.Unsetenv("TEST_AT_TOKEN")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-env.yaml")

	configContent := `
api:
  base_id: ${TEST_AT_BASE}
  token: ${TEST_AT_TOKEN}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.API.BaseID != "appENVBASE0000001" {
		t.Errorf("expected base_id 'appENVBASE0000001', got %s", cfg.API.BaseID)
	}
	if cfg.API.Token != "patENVTOKEN" {
		t.Errorf("expected token 'patENVTOKEN', got %s", cfg.API.Token)
	}
}

func TestExpandEnvVar(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "test-value"},
		{"$TEST_VAR", "test-value"},
		{"prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"${NONEXISTENT}", "${NONEXISTENT}"}, // Unset vars remain unchanged
		{"no-vars-here", "no-vars-here"},
	}

	for _, tt := range tests {
		result := expandEnvVar(tt.input)
		if result != tt.expected {
			t.Errorf("expandEnvVar(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestGetJob(t *testing.T) {
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"existing_job": {
				Table: "Invoices",
			},
		},
	}

	// Test existing job
	job, err := cfg.GetJob("existing_job")
	if err != nil {
		t.Errorf("unexpected error getting existing job: %v", err)
	}
	if job.Table != "Invoices" {
		t.Errorf("expected table 'Invoices', got %s", job.Table)
	}

	// Test non-existing job
	_, err = cfg.GetJob("nonexistent_job")
	if err == nil {
		t.Error("expected error for non-existing job")
	}
}

func TestListJobs(t *testing.T) {
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"job_a": {},
			"job_b": {},
			"job_c": {},
		},
	}

	jobs := cfg.ListJobs()
	if len(jobs) != 3 {
		t.Errorf("expected 3 jobs, got %d", len(jobs))
	}

	// Check all jobs are present (order may vary)
	jobSet := make(map[string]bool)
	for _, j := range jobs {
		jobSet[j] = true
	}
	for _, expected := range []string{"job_a", "job_b", "job_c"} {
		if !jobSet[expected] {
			t.Errorf("expected job %q to be in list", expected)
		}
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestApplyOverrides(t *testing.T) {
	// Start with a default config
	cfg := DefaultConfig()

	// Verify defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Expansion.MaxDepth != 2 {
		t.Errorf("expected default max_depth 2, got %d", cfg.Expansion.MaxDepth)
	}
	if cfg.Expansion.IncludeOriginalIDs != false {
		t.Error("expected default include_original_ids to be false")
	}

	// Apply some overrides
	cfg.ApplyOverrides("debug", "json", 4, true)

	// Verify overrides were applied
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug' after override, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json' after override, got %s", cfg.Logging.Format)
	}
	if cfg.Expansion.MaxDepth != 4 {
		t.Errorf("expected max_depth 4 after override, got %d", cfg.Expansion.MaxDepth)
	}
	if cfg.Expansion.IncludeOriginalIDs != true {
		t.Error("expected include_original_ids to be true after override")
	}
}

func TestApplyOverridesZeroValues(t *testing.T) {
	// Start with a custom config
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
		},
		Expansion: ExpansionConfig{
			MaxDepth:           3,
			IncludeOriginalIDs: false,
		},
	}

	// Apply zero values (should NOT override)
	cfg.ApplyOverrides("", "", 0, false)

	// Verify original values are preserved
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level 'warn' to be preserved, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json' to be preserved, got %s", cfg.Logging.Format)
	}
	if cfg.Expansion.MaxDepth != 3 {
		t.Errorf("expected max_depth 3 to be preserved, got %d", cfg.Expansion.MaxDepth)
	}
	if cfg.Expansion.IncludeOriginalIDs != false {
		t.Error("expected include_original_ids to remain false")
	}
}

func TestApplyJobOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Expansion.ExpandTables = []string{"Clients"}
	cfg.Jobs = map[string]JobConfig{
		"deep_job": {
			Table:     "Invoices",
			Expansion: &ExpansionConfig{MaxDepth: 3},
		},
	}

	// CLI depth beats both job and global settings
	expansion := cfg.ApplyJobOverrides("deep_job", 5, false)
	if expansion.MaxDepth != 5 {
		t.Errorf("expected CLI max_depth 5, got %d", expansion.MaxDepth)
	}
	if len(expansion.ExpandTables) != 1 || expansion.ExpandTables[0] != "Clients" {
		t.Errorf("expected inherited expand_tables [Clients], got %v", expansion.ExpandTables)
	}

	// Zero CLI values leave the job-level setting in place
	expansion = cfg.ApplyJobOverrides("deep_job", 0, false)
	if expansion.MaxDepth != 3 {
		t.Errorf("expected job max_depth 3, got %d", expansion.MaxDepth)
	}
}
