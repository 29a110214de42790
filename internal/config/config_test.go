package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test API defaults
	if cfg.API.Endpoint != "https://api.airtable.com" {
		t.Errorf("expected endpoint 'https://api.airtable.com', got %s", cfg.API.Endpoint)
	}
	if cfg.API.TimeoutSeconds != 30 {
		t.Errorf("expected timeout_seconds 30, got %d", cfg.API.TimeoutSeconds)
	}
	if cfg.API.MinRequestIntervalMS != 200 {
		t.Errorf("expected min_request_interval_ms 200, got %d", cfg.API.MinRequestIntervalMS)
	}
	if cfg.API.MaxRetries != 3 {
		t.Errorf("expected max_retries 3, got %d", cfg.API.MaxRetries)
	}

	// Test expansion defaults
	if cfg.Expansion.MaxDepth != 2 {
		t.Errorf("expected max_depth 2, got %d", cfg.Expansion.MaxDepth)
	}
	if cfg.Expansion.IncludeOriginalIDs {
		t.Error("expected include_original_ids false by default")
	}

	// Test output defaults
	if cfg.Output.Format != "json" {
		t.Errorf("expected output format 'json', got %s", cfg.Output.Format)
	}
	if cfg.Output.Destination != "stdout" {
		t.Errorf("expected output destination 'stdout', got %s", cfg.Output.Destination)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected logging format 'text', got %s", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected logging output 'stderr', got %s", cfg.Logging.Output)
	}
}

func TestGetJobExpansionFallback(t *testing.T) {
	global := ExpansionConfig{
		ExpandTables: []string{"Clients"},
		MaxDepth:     2,
	}

	// No job-specific block: global wins wholesale
	job := JobConfig{Table: "Invoices"}
	got := job.GetJobExpansion(global)
	if got.MaxDepth != 2 {
		t.Errorf("expected inherited max_depth 2, got %d", got.MaxDepth)
	}
	if len(got.ExpandTables) != 1 || got.ExpandTables[0] != "Clients" {
		t.Errorf("expected inherited expand_tables [Clients], got %v", got.ExpandTables)
	}
}

func TestGetJobExpansionMerge(t *testing.T) {
	global := ExpansionConfig{
		ExpandTables:       []string{"Clients"},
		MaxDepth:           2,
		IncludeOriginalIDs: false,
	}

	job := JobConfig{
		Table: "Invoices",
		Expansion: &ExpansionConfig{
			ExpandTables:       []string{"Clients", "Projects"},
			MaxDepth:           3,
			IncludeOriginalIDs: true,
		},
	}

	got := job.GetJobExpansion(global)
	if got.MaxDepth != 3 {
		t.Errorf("expected job max_depth 3, got %d", got.MaxDepth)
	}
	if len(got.ExpandTables) != 2 {
		t.Errorf("expected 2 expand_tables, got %v", got.ExpandTables)
	}
	if !got.IncludeOriginalIDs {
		t.Error("expected include_original_ids true from job")
	}

	// Partial job block keeps unset values from global
	partial := JobConfig{
		Table:     "Invoices",
		Expansion: &ExpansionConfig{MaxDepth: 4},
	}
	got = partial.GetJobExpansion(global)
	if got.MaxDepth != 4 {
		t.Errorf("expected job max_depth 4, got %d", got.MaxDepth)
	}
	if len(got.ExpandTables) != 1 || got.ExpandTables[0] != "Clients" {
		t.Errorf("expected inherited expand_tables [Clients], got %v", got.ExpandTables)
	}
}

func TestGetJobOutputMerge(t *testing.T) {
	global := OutputConfig{Format: "json", Destination: "stdout", Pretty: false}

	job := JobConfig{
		Table:  "Invoices",
		Output: &OutputConfig{Format: "jsonl", Destination: "out/invoices.jsonl"},
	}

	got := job.GetJobOutput(global)
	if got.Format != "jsonl" {
		t.Errorf("expected format 'jsonl', got %s", got.Format)
	}
	if got.Destination != "out/invoices.jsonl" {
		t.Errorf("expected job destination, got %s", got.Destination)
	}

	// No job block: global wins
	plain := JobConfig{Table: "Invoices"}
	got = plain.GetJobOutput(global)
	if got.Format != "json" || got.Destination != "stdout" {
		t.Errorf("expected inherited output config, got %+v", got)
	}
}

func TestConfigJobsMap(t *testing.T) {
	// Test that jobs can be stored as a map
	cfg := &Config{
		Jobs: map[string]JobConfig{
			"expand_open_invoices": {
				Table:  "Invoices",
				Filter: "AND({Status}='Open')",
			},
			"expand_clients": {
				Table:     "Clients",
				RecordIDs: []string{"recAAA111BBB222CC"},
			},
		},
	}

	if len(cfg.Jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(cfg.Jobs))
	}

	job, exists := cfg.Jobs["expand_open_invoices"]
	if !exists {
		t.Error("expected 'expand_open_invoices' job to exist")
	}
	if job.Table != "Invoices" {
		t.Errorf("expected table 'Invoices', got %s", job.Table)
	}
}
