package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/expand"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/render"
	schemapkg "github.com/tablemateio/airlink/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and job setup",
	Long: `Validate checks the configuration file and runs preflight checks
against the base metadata without expanding any records.

Checks performed:
  - Configuration syntax and required fields
  - API connectivity (one base metadata request)
  - Root table existence for each job
  - Expansion target table existence
  - Unreachable expansion targets (warning)
  - Retired expand_fields selector rejection

Example:
  airlink validate --config airlink.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.MaxDepth, overrides.IncludeOriginalIDs)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting validation checks...")

	client, err := airtable.NewClient(&cfg.API, log)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	resolver, err := schemapkg.NewResolver(client, log)
	if err != nil {
		return err
	}

	base, err := resolver.Resolve(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch base metadata: %w", err)
	}

	fmt.Printf("\n=== Configuration Validation ===\n")
	fmt.Printf("Config file: %s\n", GetConfigFile())
	fmt.Printf("Base:        %s (%d tables)\n", cfg.API.BaseID, base.Len())
	fmt.Printf("Jobs found:  %d\n\n", len(cfg.Jobs))

	if err := cfg.Validate(); err != nil {
		fmt.Println(render.Failure("❌ Configuration invalid:"))
		fmt.Printf("%v\n", err)
		return fmt.Errorf("configuration validation failed")
	}

	jobNames := cfg.ListJobs()
	sort.Strings(jobNames)

	hasErrors := false
	for _, jobName := range jobNames {
		jobCfg, err := cfg.GetJob(jobName)
		if err != nil {
			fmt.Printf("%s\n\n", render.Failure("❌ %v", err))
			hasErrors = true
			continue
		}

		expansion := jobCfg.GetJobExpansion(cfg.Expansion)

		fmt.Printf("--- Job: %s ---\n", jobName)
		fmt.Printf("Root table:    %s\n", jobCfg.Table)
		fmt.Printf("Expand tables: %s\n", formatTableList(expansion.ExpandTables))

		opts := expand.Options{
			ExpandTables:       expansion.ExpandTables,
			MaxDepth:           expansion.MaxDepth,
			IncludeOriginalIDs: expansion.IncludeOriginalIDs,
		}
		if err := opts.Validate(); err != nil {
			fmt.Printf("%s\n\n", render.Failure("❌ Invalid expansion options: %v", err))
			hasErrors = true
			continue
		}

		checker, err := expand.NewPreflightChecker(base, log)
		if err != nil {
			return err
		}
		if err := checker.RunAllChecks(jobCfg.Table, expansion.ExpandTables); err != nil {
			fmt.Printf("%s\n\n", render.Failure("❌ Preflight checks failed: %v", err))
			hasErrors = true
			continue
		}

		fmt.Printf("%s\n\n", render.Success("✅ All checks passed"))
	}

	fmt.Println("=== Validation Complete ===")
	if hasErrors {
		return fmt.Errorf("validation failed for one or more jobs")
	}

	fmt.Println(render.Success("✅ All jobs validated successfully"))
	return nil
}

// formatTableList renders a table name list for display.
func formatTableList(tables []string) string {
	if len(tables) == 0 {
		return "(none)"
	}
	return strings.Join(tables, ", ")
}
