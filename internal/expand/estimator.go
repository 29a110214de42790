package expand

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/graph"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/schema"
)

// assumedLinksPerField is the fan-out the worst case model assumes for
// every qualifying link field. Real bases rarely average more.
const assumedLinksPerField = 2

// LayerEstimate describes one breadth-first layer of the planned walk.
type LayerEstimate struct {
	Depth            int
	Tables           []string // table ids first reached at this depth
	LinkFields       int      // qualifying link fields leaving this layer's tables
	WorstCaseFetches int64    // upper bound on record fetches at this depth
}

// EstimateResult holds dry-run estimation results.
type EstimateResult struct {
	RootTable            string // display name of the root table
	RootCount            int
	MaxDepth             int
	Layers               []LayerEstimate
	WorstCaseFetches     int64
	AssumedLinksPerField int
	RateInterval         time.Duration
	EstimatedDuration    time.Duration
	CycleInfo            *graph.CycleInfo // nil when the base links acyclically
	Config               *config.Config
	JobConfig            *config.JobConfig
}

// Estimator models what an expansion run would fetch without fetching
// any linked record. Counting the roots issues the same list query the
// run would; everything past that is arithmetic over the schema.
//
// A table may appear at several depths of the model, matching how a run
// keeps fetching newly reached records of a table it has seen before.
// Records already inlined resolve as placeholders instead, so the model
// is an upper bound.
type Estimator struct {
	client       StoreClient
	cfg          *config.Config
	jobCfg       *config.JobConfig
	base         *schema.BaseSchema
	logger       *logger.Logger
	expansionCfg config.ExpansionConfig // Effective expansion config (job-specific or global)
}

// NewEstimator creates a new estimator.
func NewEstimator(client StoreClient, cfg *config.Config, jobCfg *config.JobConfig, base *schema.BaseSchema, log *logger.Logger) *Estimator {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Estimator{
		client:       client,
		cfg:          cfg,
		jobCfg:       jobCfg,
		base:         base,
		logger:       log,
		expansionCfg: jobCfg.GetJobExpansion(cfg.Expansion),
	}
}

// Estimate calculates root counts and per-layer fetch bounds.
//
// AL-P4-F3-T1: root record count
// AL-P4-F3-T2: per-layer reach
// AL-P4-F3-T3: worst case fetch bound
func (e *Estimator) Estimate(ctx context.Context) (*EstimateResult, error) {
	rootTable, ok := e.base.ResolveTable(e.jobCfg.Table)
	if !ok {
		return nil, fmt.Errorf("root table %q not found in base", e.jobCfg.Table)
	}

	result := &EstimateResult{
		RootTable:            rootTable.Name,
		MaxDepth:             e.expansionCfg.MaxDepth,
		AssumedLinksPerField: assumedLinksPerField,
		RateInterval:         time.Duration(e.cfg.API.MinRequestIntervalMS) * time.Millisecond,
		Config:               e.cfg,
		JobConfig:            e.jobCfg,
	}

	// AL-P4-F3-T1: root record count
	rootCount, err := e.countRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count root records: %w", err)
	}
	result.RootCount = rootCount

	// AL-P4-F3-T2: per-layer reach through qualifying link fields
	targets := resolveTargets(e.base, e.expansionCfg.ExpandTables)
	result.Layers = e.qualifyingLayers(rootTable.ID, targets, e.expansionCfg.MaxDepth)

	// AL-P4-F3-T3: worst case fetch bound
	frontier := int64(rootCount)
	for i := 1; i < len(result.Layers); i++ {
		fetched := frontier * int64(result.Layers[i-1].LinkFields) * assumedLinksPerField
		result.Layers[i].WorstCaseFetches = fetched
		result.WorstCaseFetches += fetched
		frontier = fetched
	}
	if result.RateInterval > 0 {
		result.EstimatedDuration = time.Duration(result.WorstCaseFetches) * result.RateInterval
	}

	// Cycle shape of the whole base, for the plan display
	g, err := graph.BuildFromSchema(e.base, rootTable.ID)
	if err != nil {
		return nil, err
	}
	result.CycleInfo = g.DetectIncompleteProcessing()

	return result, nil
}

// countRoots counts the records the job would select. An explicit id
// list is counted locally; a filtered job issues the run's list query.
func (e *Estimator) countRoots(ctx context.Context) (int, error) {
	if len(e.jobCfg.RecordIDs) > 0 {
		distinct := make(map[string]bool, len(e.jobCfg.RecordIDs))
		for _, id := range e.jobCfg.RecordIDs {
			distinct[id] = true
		}
		return len(distinct), nil
	}

	records, err := e.client.ListRecords(ctx, e.jobCfg.Table, airtable.ListQuery{
		Filter:     e.jobCfg.Filter,
		View:       e.jobCfg.View,
		MaxRecords: e.jobCfg.MaxRecords,
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// qualifyingLayers walks the table graph breadth first, following only
// link fields whose target table is selected, the same fields the run
// would follow.
func (e *Estimator) qualifyingLayers(rootID string, targets map[string]bool, maxDepth int) []LayerEstimate {
	countFields := func(tableID string) int {
		table, ok := e.base.TableByID(tableID)
		if !ok {
			return 0
		}
		n := 0
		for _, field := range table.LinkFields() {
			if targets[field.Options.LinkedTableID] {
				n++
			}
		}
		return n
	}

	layers := []LayerEstimate{{Depth: 0, Tables: []string{rootID}, LinkFields: countFields(rootID)}}
	frontier := []string{rootID}

	for depth := 1; depth <= maxDepth; depth++ {
		seen := make(map[string]bool)
		var next []string
		for _, tableID := range frontier {
			table, ok := e.base.TableByID(tableID)
			if !ok {
				continue
			}
			for _, field := range table.LinkFields() {
				target := field.Options.LinkedTableID
				if !targets[target] || seen[target] {
					continue
				}
				seen[target] = true
				next = append(next, target)
			}
		}
		if len(next) == 0 {
			break
		}

		layer := LayerEstimate{Depth: depth, Tables: next}
		for _, tableID := range next {
			layer.LinkFields += countFields(tableID)
		}
		layers = append(layers, layer)
		frontier = next
	}

	return layers
}

// tableLabel maps a table id to its display name for plan output.
func (e *Estimator) tableLabel(id string) string {
	if table, ok := e.base.TableByID(id); ok {
		return table.Name
	}
	return id
}

// DisplayExecutionPlan prints the dry-run execution plan.
//
// AL-P4-F3-T4: display execution plan
func (e *Estimator) DisplayExecutionPlan(result *EstimateResult) {
	fmt.Printf("\n=== Dry-Run Expansion Plan ===\n\n")

	// Root selection
	fmt.Printf("Root Table: %s\n", result.RootTable)
	fmt.Printf("  Matching records: %d\n", result.RootCount)
	if len(e.jobCfg.RecordIDs) > 0 {
		fmt.Printf("  Selection: %d explicit record ids\n", len(e.jobCfg.RecordIDs))
	} else if e.jobCfg.Filter != "" {
		fmt.Printf("  Selection: filter %s\n", e.jobCfg.Filter)
	} else {
		fmt.Printf("  Selection: all records\n")
	}
	fmt.Println()

	// Layer walk
	fmt.Printf("Expansion Layers (breadth-first):\n")
	for _, layer := range result.Layers {
		names := make([]string, len(layer.Tables))
		for i, id := range layer.Tables {
			names[i] = e.tableLabel(id)
		}

		if layer.Depth == 0 {
			fmt.Printf("  0. %s (%d roots, %d qualifying link fields)\n",
				strings.Join(names, ", "), result.RootCount, layer.LinkFields)
			continue
		}
		fmt.Printf("  %d. %s (worst case ~%d fetches)\n",
			layer.Depth, strings.Join(names, ", "), layer.WorstCaseFetches)
	}
	if len(result.Layers) == 1 && result.Layers[0].LinkFields == 0 {
		fmt.Printf("  No link field on %s points at a selected table.\n", result.RootTable)
	}
	fmt.Println()

	// Cycle check
	fmt.Printf("Cycle Check:\n")
	if result.CycleInfo == nil {
		fmt.Printf("  No link cycles in the base.\n")
	} else {
		for _, line := range strings.Split(result.CycleInfo.Describe(e.tableLabel), "\n") {
			fmt.Printf("  %s\n", line)
		}
		fmt.Printf("  Cycles are broken at run time with placeholder ids.\n")
	}
	fmt.Println()

	// Config summary (show job-specific or global)
	fmt.Printf("Configuration Summary:\n")
	fmt.Printf("  Expand tables: %s", strings.Join(e.expansionCfg.ExpandTables, ", "))
	if e.jobCfg.Expansion != nil && len(e.jobCfg.Expansion.ExpandTables) > 0 {
		fmt.Print(" (job-specific)")
	}
	fmt.Println()
	fmt.Printf("  Max depth: %d", e.expansionCfg.MaxDepth)
	if e.jobCfg.Expansion != nil && e.jobCfg.Expansion.MaxDepth > 0 {
		fmt.Print(" (job-specific)")
	}
	fmt.Println()
	fmt.Printf("  Include original ids: %v\n", e.expansionCfg.IncludeOriginalIDs)
	fmt.Printf("  Assumed links per field: %d\n", result.AssumedLinksPerField)
	fmt.Printf("  Worst case fetches: ~%d\n", result.WorstCaseFetches)
	if result.RateInterval > 0 {
		fmt.Printf("  Rate limit interval: %s\n", result.RateInterval)
		fmt.Printf("  Estimated duration at rate limit: ~%s\n", result.EstimatedDuration.Round(time.Second))
	}

	fmt.Println("\n=== End of Dry-Run ===")
	fmt.Println("\nℹ️  No linked records were fetched. Use 'expand' command to execute.")
}
