package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/render"
	schemapkg "github.com/tablemateio/airlink/internal/schema"
)

var (
	schemaTable     string
	schemaLinksOnly bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the base schema with link targets resolved",
	Long: `Fetch the base metadata and print every table with its fields.

Link fields show the table they point at, resolved to display names.
Use --table to show a single table and --links-only to hide everything
that is not a link field.

Example:
  airlink schema --config airlink.yaml --table Clients --links-only`,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaTable, "table", "", "Show only this table (name or id)")
	schemaCmd.Flags().BoolVar(&schemaLinksOnly, "links-only", false, "Show only link fields")

	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("failed to resolve base schema: %w", err)
	}

	tables := base.Tables()
	if schemaTable != "" {
		t, ok := base.ResolveTable(schemaTable)
		if !ok {
			return fmt.Errorf("table %q not found in base", schemaTable)
		}
		tables = []*schemapkg.Table{t}
	}

	printHeader("Base Schema: %s", cfg.API.BaseID)
	for _, t := range tables {
		fmt.Fprintln(outputWriter)
		printSection(fmt.Sprintf("%s (%s)", t.Name, t.ID))
		printTableFields(base, t)
	}
	return nil
}

// printTableFields lists a table's fields with aligned columns. Link
// fields carry an arrow to their resolved target table.
func printTableFields(base *schemapkg.BaseSchema, t *schemapkg.Table) {
	fields := t.Fields
	if schemaLinksOnly {
		fields = t.LinkFields()
	}
	if len(fields) == 0 {
		fmt.Fprintln(outputWriter, "  (none)")
		return
	}

	nameWidth := 0
	for _, f := range fields {
		if w := render.Width(f.Name); w > nameWidth {
			nameWidth = w
		}
	}

	for _, f := range fields {
		line := fmt.Sprintf("  %s  %s", render.PadRight(f.Name, nameWidth), f.Type)
		if f.IsLink() {
			target := f.Options.LinkedTableID
			if linked, ok := base.TableByID(target); ok {
				target = linked.Name
			}
			line += fmt.Sprintf(" -> %s", target)
		}
		fmt.Fprintln(outputWriter, line)
	}
}
