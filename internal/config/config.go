// Package config provides configuration structures and loading for airlink.
package config

// Config represents the complete application configuration.
type Config struct {
	API       APIConfig            `yaml:"api" mapstructure:"api"`
	Jobs      map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Expansion ExpansionConfig      `yaml:"expansion" mapstructure:"expansion"`
	Output    OutputConfig         `yaml:"output" mapstructure:"output"`
	Logging   LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// APIConfig represents the Airtable REST API connection configuration.
// The token is passed through to the client untouched; secret management
// happens outside this tool (env vars, wrapper scripts).
type APIConfig struct {
	BaseID               string `yaml:"base_id" mapstructure:"base_id"`
	Token                string `yaml:"token" mapstructure:"token"`
	Endpoint             string `yaml:"endpoint" mapstructure:"endpoint"` // override for proxies/tests
	TimeoutSeconds       int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MinRequestIntervalMS int    `yaml:"min_request_interval_ms" mapstructure:"min_request_interval_ms"`
	MaxRetries           int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// JobConfig represents an expansion job configuration.
// Root records come from an explicit id list or from a list query
// (filter/view/max_records); the two selection modes are exclusive.
type JobConfig struct {
	Table      string           `yaml:"table" mapstructure:"table"`
	RecordIDs  []string         `yaml:"record_ids" mapstructure:"record_ids"`
	Filter     string           `yaml:"filter" mapstructure:"filter"` // filterByFormula expression
	View       string           `yaml:"view" mapstructure:"view"`
	MaxRecords int              `yaml:"max_records" mapstructure:"max_records"`
	Expansion  *ExpansionConfig `yaml:"expansion,omitempty" mapstructure:"expansion"`
	Output     *OutputConfig    `yaml:"output,omitempty" mapstructure:"output"`
}

// ExpansionConfig represents linked record expansion settings.
//
// ExpandTables is the canonical selector: link fields are followed when
// their target table is listed. ExpandFields is the retired field-name
// selector; it is parsed only so validation can reject it with a pointer
// to the replacement.
type ExpansionConfig struct {
	ExpandTables       []string `yaml:"expand_tables" mapstructure:"expand_tables"`
	ExpandFields       []string `yaml:"expand_fields" mapstructure:"expand_fields"`
	MaxDepth           int      `yaml:"max_depth" mapstructure:"max_depth"`
	IncludeOriginalIDs bool     `yaml:"include_original_ids" mapstructure:"include_original_ids"`
}

// OutputConfig represents expanded record output settings.
type OutputConfig struct {
	Format      string `yaml:"format" mapstructure:"format"`           // json or jsonl
	Destination string `yaml:"destination" mapstructure:"destination"` // stdout or file path
	Pretty      bool   `yaml:"pretty" mapstructure:"pretty"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:             "https://api.airtable.com",
			TimeoutSeconds:       30,
			MinRequestIntervalMS: 200,
			MaxRetries:           3,
		},
		Expansion: ExpansionConfig{
			MaxDepth:           2,
			IncludeOriginalIDs: false,
		},
		Output: OutputConfig{
			Format:      "json",
			Destination: "stdout",
			Pretty:      true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetJobExpansion returns the expansion config for a job by name, falling back to global if not set.
func (c *Config) GetJobExpansion(jobName string) ExpansionConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Expansion
	}
	return job.GetJobExpansion(c.Expansion)
}

// GetJobOutput returns the output config for a job by name, falling back to global if not set.
func (c *Config) GetJobOutput(jobName string) OutputConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Output
	}
	return job.GetJobOutput(c.Output)
}

// GetJobExpansion returns the expansion config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobExpansion(global ExpansionConfig) ExpansionConfig {
	if jc.Expansion == nil {
		return global
	}

	// Merge job-specific with global defaults
	result := global
	if len(jc.Expansion.ExpandTables) > 0 {
		result.ExpandTables = jc.Expansion.ExpandTables
	}
	if len(jc.Expansion.ExpandFields) > 0 {
		result.ExpandFields = jc.Expansion.ExpandFields
	}
	if jc.Expansion.MaxDepth > 0 {
		result.MaxDepth = jc.Expansion.MaxDepth
	}
	result.IncludeOriginalIDs = jc.Expansion.IncludeOriginalIDs || global.IncludeOriginalIDs
	return result
}

// GetJobOutput returns the output config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobOutput(global OutputConfig) OutputConfig {
	if jc.Output == nil {
		return global
	}

	// Merge job-specific with global defaults
	result := global
	if jc.Output.Format != "" {
		result.Format = jc.Output.Format
	}
	if jc.Output.Destination != "" {
		result.Destination = jc.Output.Destination
	}
	result.Pretty = jc.Output.Pretty || global.Pretty
	return result
}
