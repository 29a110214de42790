package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/expand"
	"github.com/tablemateio/airlink/internal/graph"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/render"
	"github.com/tablemateio/airlink/internal/schema"
)

var planJob string

// outputWriter allows tests to capture output
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets the output writer to stdout
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the link tree and worst-case fetch plan for a job",
	Long: `Plan shows what an expansion run would do without fetching any
linked records. Only the base metadata and the root record count are
read.

The plan shows:
  - The link tree reachable from the job's root table, cycles marked
  - The breadth-first layers a run would walk
  - Worst-case fetch counts and estimated duration under the rate limit
  - Configuration summary

Example:
  airlink plan --config airlink.yaml --job client_export`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planJob, "job", "j", "", "Job name to plan (required)")
	planCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.MaxDepth, overrides.IncludeOriginalIDs)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	jobCfg, err := cfg.GetJob(planJob)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	client, err := airtable.NewClient(&cfg.API, log)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	resolver, err := schema.NewResolver(client, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	base, err := resolver.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve base schema: %w", err)
	}

	rootTable, ok := base.ResolveTable(jobCfg.Table)
	if !ok {
		return fmt.Errorf("root table %q not found in base", jobCfg.Table)
	}

	g, err := graph.BuildFromSchema(base, rootTable.ID)
	if err != nil {
		return fmt.Errorf("failed to build link graph: %w", err)
	}

	printLinkTree(cfg, jobCfg, base, g)

	estimator := expand.NewEstimator(client, cfg, jobCfg, base, log)
	result, err := estimator.Estimate(ctx)
	if err != nil {
		return fmt.Errorf("estimation failed: %w", err)
	}

	estimator.DisplayExecutionPlan(result)
	return nil
}

// printLinkTree draws the reachable-table tree next to a short job
// summary column.
func printLinkTree(cfg *config.Config, jobCfg *config.JobConfig, base *schema.BaseSchema, g *graph.Graph) {
	label := func(id string) string {
		if t, ok := base.TableByID(id); ok {
			return t.Name
		}
		return id
	}

	expansion := jobCfg.GetJobExpansion(cfg.Expansion)
	targets := "(none)"
	if len(expansion.ExpandTables) > 0 {
		targets = strings.Join(expansion.ExpandTables, ", ")
	}

	summaryLines := []string{
		"[ Job Summary ]",
		strings.Repeat("-", 15),
		fmt.Sprintf("Root Table:    %s", jobCfg.Table),
		fmt.Sprintf("Base Tables:   %d", base.Len()),
		fmt.Sprintf("Link Fields:   %d", g.EdgeCount()),
		"",
		"[ Expansion ]",
		strings.Repeat("-", 13),
		fmt.Sprintf("Targets:       %s", targets),
		fmt.Sprintf("Max Depth:     %d", expansion.MaxDepth),
		fmt.Sprintf("Original IDs:  %v", expansion.IncludeOriginalIDs),
	}

	printHeader("Link Tree: %s", planJob)
	tree := render.Tree(g, label)
	fmt.Fprint(outputWriter, highlightLoops(render.SideBySide(tree, summaryLines, 4)))
}

// highlightLoops colors the cycle markers. Coloring happens after
// layout so ANSI escape bytes never skew the column math.
func highlightLoops(s string) string {
	return strings.ReplaceAll(s, "↺", render.Warn("↺"))
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	fmt.Fprint(outputWriter, render.Header(format, args...))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprint(outputWriter, render.Section(title))
}
