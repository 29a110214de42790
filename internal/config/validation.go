package config

import (
	"fmt"
	"strings"
)

// maxDepthLimit is the inclusive upper bound for expansion depth. Every hop
// is at least one API call per linked record, so deep expansions get
// expensive fast; five levels has been enough for every schema seen so far.
const maxDepthLimit = 5

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// It runs before any network call is made.
func (c *Config) Validate() error {
	var errors ValidationErrors

	// Validate API connection settings
	if err := c.validateAPI(); err != nil {
		errors = append(errors, err...)
	}

	// Validate global expansion defaults
	if err := c.validateExpansion("expansion", &c.Expansion, false); err != nil {
		errors = append(errors, err...)
	}

	// Validate jobs
	if len(c.Jobs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "jobs",
			Message: "at least one job must be defined",
		})
	}
	for name, job := range c.Jobs {
		if err := c.validateJob(name, &job); err != nil {
			errors = append(errors, err...)
		}
	}

	// Validate output settings
	if err := c.validateOutput("output", &c.Output); err != nil {
		errors = append(errors, err...)
	}

	// Validate logging settings
	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	if c.API.BaseID == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_id",
			Message: "base_id is required",
		})
	}

	if c.API.Token == "" {
		errors = append(errors, ValidationError{
			Field:   "api.token",
			Message: "token is required (use ${AIRTABLE_API_KEY} to read it from the environment)",
		})
	} else if strings.Contains(c.API.Token, "${") {
		// Substitution left the reference in place, so the variable is unset
		errors = append(errors, ValidationError{
			Field:   "api.token",
			Message: fmt.Sprintf("token references an unset environment variable: %s", c.API.Token),
		})
	}

	if c.API.Endpoint != "" && !strings.HasPrefix(c.API.Endpoint, "http://") && !strings.HasPrefix(c.API.Endpoint, "https://") {
		errors = append(errors, ValidationError{
			Field:   "api.endpoint",
			Message: "endpoint must be an http(s) URL",
		})
	}

	if c.API.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.API.MinRequestIntervalMS < 0 {
		errors = append(errors, ValidationError{
			Field:   "api.min_request_interval_ms",
			Message: "min_request_interval_ms cannot be negative",
		})
	}

	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errors = append(errors, ValidationError{
			Field:   "api.max_retries",
			Message: "max_retries must be between 0 and 10",
		})
	}

	return errors
}

func (c *Config) validateJob(name string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("jobs.%s", name)

	if job.Table == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: "table is required",
		})
	}

	// Root selection: explicit ids or a list query, not both
	if len(job.RecordIDs) > 0 && job.Filter != "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".record_ids",
			Message: "record_ids and filter are mutually exclusive root selections",
		})
	}

	for i, id := range job.RecordIDs {
		if id == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.record_ids[%d]", prefix, i),
				Message: "record id cannot be empty",
			})
		}
	}

	if job.MaxRecords < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_records",
			Message: "max_records cannot be negative",
		})
	}

	// Validate the job's own expansion block if present
	if job.Expansion != nil {
		if err := c.validateExpansion(prefix+".expansion", job.Expansion, true); err != nil {
			errors = append(errors, err...)
		}
	}

	// The effective selector (job merged over global) must name at least
	// one table, otherwise no link field can ever qualify
	effective := job.GetJobExpansion(c.Expansion)
	if len(effective.ExpandTables) == 0 && len(effective.ExpandFields) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".expansion.expand_tables",
			Message: "expand_tables must list at least one target table (set per job or globally)",
		})
	}

	// Validate the job's own output block if present
	if job.Output != nil {
		if err := c.validateOutput(prefix+".output", job.Output); err != nil {
			errors = append(errors, err...)
		}
	}

	return errors
}

// validateExpansion checks one expansion block. Job-level blocks may leave
// max_depth at zero to inherit the global value; the global block may not.
func (c *Config) validateExpansion(prefix string, exp *ExpansionConfig, isJobLevel bool) ValidationErrors {
	var errors ValidationErrors

	if len(exp.ExpandFields) > 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".expand_fields",
			Message: "expand_fields is no longer supported; list the target tables in expand_tables instead",
		})
	}

	for i, table := range exp.ExpandTables {
		if table == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.expand_tables[%d]", prefix, i),
				Message: "table name cannot be empty",
			})
		}
	}

	if exp.MaxDepth == 0 && isJobLevel {
		// Inherits the global depth
		return errors
	}

	if exp.MaxDepth < 1 || exp.MaxDepth > maxDepthLimit {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_depth",
			Message: fmt.Sprintf("max_depth must be between 1 and %d", maxDepthLimit),
		})
	}

	return errors
}

func (c *Config) validateOutput(prefix string, out *OutputConfig) ValidationErrors {
	var errors ValidationErrors

	validFormats := map[string]bool{"json": true, "jsonl": true, "": true}
	if !validFormats[out.Format] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".format",
			Message: "format must be 'json' or 'jsonl'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
