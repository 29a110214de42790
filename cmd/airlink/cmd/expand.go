package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/expand"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/output"
	"github.com/tablemateio/airlink/internal/record"
	"github.com/tablemateio/airlink/internal/render"
)

var (
	expandJob    string
	expandIDs    []string
	expandMatch  string
	expandInput  string
	expandOut    string
	expandFormat string
	expandPretty bool
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand linked records for a configured job",
	Long: `Execute a linked record expansion for the specified job.

Root records are selected per the job configuration (explicit ids,
filter formula, or view) and every configured link field is resolved
into nested record objects, depth-bounded and cycle-safe. The expanded
documents are written to the configured destination.

Root selection can be overridden on the command line:
  --ids    expand exactly these record ids
  --match  expand records where Field=Value
  --input  read root records from a JSON file ("-" for stdin)

The three overrides are mutually exclusive.

Example:
  airlink expand --config airlink.yaml --job client_export
  airlink expand --job client_export --ids recAAA0000000001,recBBB0000000002
  airlink expand --job client_export --match "Status=active" --out clients.json`,
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().StringVarP(&expandJob, "job", "j", "", "Job name to run (required)")
	expandCmd.Flags().StringSliceVar(&expandIDs, "ids", nil, "Expand exactly these record ids (comma-separated or repeated)")
	expandCmd.Flags().StringVar(&expandMatch, "match", "", "Expand records matching Field=Value")
	expandCmd.Flags().StringVar(&expandInput, "input", "", "Read root records from a JSON file instead of the API (\"-\" for stdin)")
	expandCmd.Flags().StringVarP(&expandOut, "out", "o", "", "Override output destination (file path or \"stdout\")")
	expandCmd.Flags().StringVar(&expandFormat, "format", "", "Override output format (json, jsonl)")
	expandCmd.Flags().BoolVar(&expandPretty, "pretty", false, "Indent json output")
	expandCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobCfg, err := cfg.GetJob(expandJob)
	if err != nil {
		return err
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.MaxDepth, overrides.IncludeOriginalIDs)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyRootSelection(jobCfg); err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Infow("Starting expansion operation",
		"job", expandJob,
		"config", GetConfigFile(),
		"version", Version,
	)

	client, err := airtable.NewClient(&cfg.API, log)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	runner, err := expand.NewRunner(cfg, expandJob, jobCfg, client, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// CLI flags beat job-specific expansion settings.
	runner.UpdateExpansionConfig(cfg.ApplyJobOverrides(expandJob, overrides.MaxDepth, overrides.IncludeOriginalIDs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - finishing current fetch...")
		cancel()
	}()

	var result *expand.Result
	if expandInput != "" {
		roots, err := readInputRecords(expandInput)
		if err != nil {
			return err
		}
		result, err = runner.ExpandRecords(ctx, roots)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Expansion cancelled by user")
				return nil
			}
			return fmt.Errorf("expansion failed: %w", err)
		}
	} else {
		result, err = runner.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Expansion cancelled by user")
				return nil
			}
			return fmt.Errorf("expansion failed: %w", err)
		}
	}

	outCfg := jobCfg.GetJobOutput(cfg.Output)
	if expandOut != "" {
		outCfg.Destination = expandOut
	}
	if expandFormat != "" {
		outCfg.Format = expandFormat
	}
	if expandPretty {
		outCfg.Pretty = true
	}

	writer, err := output.NewWriter(outCfg, log)
	if err != nil {
		return err
	}
	writeStats, err := writer.Write(result.Records)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	// The summary would corrupt piped output, so it only prints when the
	// records went to a file.
	if writeStats.Destination != "stdout" {
		fmt.Printf("\n=== Expansion Complete ===\n")
		fmt.Printf("Job:             %s\n", result.JobName)
		fmt.Printf("Run ID:          %s\n", result.RunID)
		fmt.Printf("Duration:        %s\n", result.Duration)
		fmt.Printf("Root Records:    %d\n", result.Stats.RootRecords)
		fmt.Printf("Records Fetched: %d\n", result.Stats.RecordsFetched)
		fmt.Printf("Fields Expanded: %d\n", result.Stats.FieldsExpanded)
		fmt.Printf("Cycles Skipped:  %d\n", result.Stats.CyclesSkipped)
		fmt.Printf("Fetch Failures:  %d\n", result.Stats.FetchFailures)
		fmt.Printf("Output:          %s (%d bytes, %s)\n", writeStats.Destination, writeStats.Bytes, writeStats.Format)
		fmt.Printf("Success:         %v\n", result.Success)
	}

	if !result.Success {
		fmt.Fprintln(os.Stderr, render.Failure("❌ Schema resolution failed; records were written unexpanded: %v", result.SchemaErr))
		return fmt.Errorf("expansion degraded: %v", result.SchemaErr)
	}
	if result.Stats.FetchFailures > 0 {
		fmt.Fprintln(os.Stderr, render.Warn("⚠️  %d fetches failed; raw ids were kept in place", result.Stats.FetchFailures))
	}

	return nil
}

// applyRootSelection rewrites the job's root selection from the CLI
// override flags. Overrides replace the configured selection entirely;
// mixing them would make the effective query ambiguous.
func applyRootSelection(jobCfg *config.JobConfig) error {
	set := 0
	if len(expandIDs) > 0 {
		set++
	}
	if expandMatch != "" {
		set++
	}
	if expandInput != "" {
		set++
	}
	if set > 1 {
		return fmt.Errorf("--ids, --match, and --input are mutually exclusive")
	}

	switch {
	case len(expandIDs) > 0:
		jobCfg.RecordIDs = expandIDs
		jobCfg.Filter = ""
		jobCfg.View = ""
	case expandMatch != "":
		field, value, ok := strings.Cut(expandMatch, "=")
		if !ok || field == "" {
			return fmt.Errorf("--match wants Field=Value, got %q", expandMatch)
		}
		formula, err := airtable.FieldEquals(field, value)
		if err != nil {
			return fmt.Errorf("invalid --match field: %w", err)
		}
		jobCfg.RecordIDs = nil
		jobCfg.Filter = formula
		jobCfg.View = ""
	}
	return nil
}

// readInputRecords loads root records from a JSON array file, or stdin
// when path is "-". The documents use the same flat {id, fields...}
// shape the writer emits.
func readInputRecords(path string) ([]*record.Record, error) {
	var reader io.Reader
	if path == "-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var records []*record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse input records: %w", err)
	}
	return records, nil
}
