package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/config"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in the configuration",
	Long:  `Display all expansion jobs defined in the configuration file with their root selection and expansion settings.`,
	RunE:  runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobNames := cfg.ListJobs()
	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", GetConfigFile())
		return nil
	}

	sort.Strings(jobNames)

	cmd.Printf("Jobs defined in %s:\n\n", GetConfigFile())
	for i, name := range jobNames {
		job := cfg.Jobs[name]
		expansion := job.GetJobExpansion(cfg.Expansion)
		out := job.GetJobOutput(cfg.Output)

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Table:         %s\n", job.Table)
		cmd.Printf("   Selection:     %s\n", describeSelection(&job))
		if job.MaxRecords > 0 {
			cmd.Printf("   Max Records:   %d\n", job.MaxRecords)
		}
		cmd.Printf("   Expand Tables: %s\n", formatTableList(expansion.ExpandTables))
		cmd.Printf("   Max Depth:     %d\n", expansion.MaxDepth)
		if expansion.IncludeOriginalIDs {
			cmd.Printf("   Original IDs:  kept\n")
		}
		if job.Expansion != nil {
			cmd.Printf("   Expansion:     Custom (job-specific)\n")
		}
		cmd.Printf("   Output:        %s -> %s\n", orDefault(out.Format, "json"), orDefault(out.Destination, "stdout"))
		cmd.Printf("\n")
	}

	cmd.Printf("Total: %d job(s)\n", len(jobNames))
	return nil
}

// describeSelection summarizes how a job picks its root records.
func describeSelection(job *config.JobConfig) string {
	switch {
	case len(job.RecordIDs) > 0:
		return fmt.Sprintf("%d explicit record id(s)", len(job.RecordIDs))
	case job.Filter != "":
		return fmt.Sprintf("filter %s", job.Filter)
	case job.View != "":
		return fmt.Sprintf("view %q", job.View)
	default:
		return "all records"
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
