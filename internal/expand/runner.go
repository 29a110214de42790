package expand

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/record"
	"github.com/tablemateio/airlink/internal/schema"
)

// StoreClient is the API surface one run drives: record fetches for the
// engine, list queries for root selection, and the base metadata read.
type StoreClient interface {
	RecordFetcher
	ListRecords(ctx context.Context, table string, q airtable.ListQuery) ([]*record.Record, error)
	GetBaseSchema(ctx context.Context) ([]airtable.TableSchema, error)
}

// rootFetchChunk caps how many record ids share one RECORD_ID() OR
// formula; larger chunks push filterByFormula past URL length limits.
const rootFetchChunk = 50

// Result contains the outcome of one expansion run.
type Result struct {
	JobName     string
	RunID       string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Records     []*record.Record // Expanded roots in input order
	Stats       *Stats
	SchemaErr   error // Set when metadata failed and roots were returned unexpanded
	Success     bool  // False when the run fell back to unexpanded roots
}

// rootSelector produces the run's root records.
type rootSelector func(ctx context.Context, log *logger.Logger) ([]*record.Record, error)

// Runner coordinates one expansion job: it resolves the schema, runs
// preflight checks, selects the root records, drives the engine, and
// assembles the result.
//
// AL-P4-F1: run orchestration
type Runner struct {
	config    *config.Config
	jobConfig *config.JobConfig
	jobName   string
	client    StoreClient
	resolver  *schema.Resolver
	engine    *Engine
	logger    *logger.Logger

	expansionCfg config.ExpansionConfig // Effective expansion config (job-specific or global)
}

// NewRunner creates a runner for one job.
func NewRunner(cfg *config.Config, jobName string, jobCfg *config.JobConfig, client StoreClient, log *logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if jobCfg == nil {
		return nil, fmt.Errorf("job config is nil")
	}
	if client == nil {
		return nil, fmt.Errorf("store client is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	resolver, err := schema.NewResolver(client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema resolver: %w", err)
	}

	engine, err := NewEngine(client, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	engine.SetObserver(NewLoggingObserver(log))

	return &Runner{
		config:       cfg,
		jobConfig:    jobCfg,
		jobName:      jobName,
		client:       client,
		resolver:     resolver,
		engine:       engine,
		logger:       log,
		expansionCfg: jobCfg.GetJobExpansion(cfg.Expansion),
	}, nil
}

// Options materializes the run options from the effective expansion
// config. Each call mints a fresh run id.
func (r *Runner) Options() Options {
	return Options{
		ExpandTables:       r.expansionCfg.ExpandTables,
		MaxDepth:           r.expansionCfg.MaxDepth,
		IncludeOriginalIDs: r.expansionCfg.IncludeOriginalIDs,
		RunID:              uuid.New().String(),
	}
}

// Run executes the job: roots are selected per the job config, expanded,
// and returned with run statistics.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	return r.run(ctx, r.fetchRoots)
}

// ExpandRecords expands caller-supplied records against the job's
// configuration, the path taken for file and stdin input. Records
// without a table are treated as rows of the job's table.
func (r *Runner) ExpandRecords(ctx context.Context, roots []*record.Record) (*Result, error) {
	labeled := make([]*record.Record, len(roots))
	for i, rec := range roots {
		if rec.Table == "" {
			c := rec.Clone()
			c.Table = r.jobConfig.Table
			rec = c
		}
		labeled[i] = rec
	}

	return r.run(ctx, func(ctx context.Context, log *logger.Logger) ([]*record.Record, error) {
		log.Infof("Expanding %d supplied records as %s rows", len(labeled), r.jobConfig.Table)
		return labeled, nil
	})
}

func (r *Runner) run(ctx context.Context, selectRoots rootSelector) (*Result, error) {
	opts := r.Options()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		JobName:   r.jobName,
		RunID:     opts.RunID,
		StartedAt: time.Now(),
	}
	log := r.logger.WithJob(r.jobName).WithRun(opts.RunID)

	log.Infow("Starting expansion run",
		"table", r.jobConfig.Table,
		"expand_tables", opts.ExpandTables,
		"max_depth", opts.MaxDepth,
		"include_original_ids", opts.IncludeOriginalIDs,
	)

	// AL-P3-F4-T2: a metadata failure downgrades the run instead of
	// killing it; the roots still ship, just unexpanded.
	base, err := r.resolver.Resolve(ctx)
	if err != nil {
		log.Warnf("Schema resolution failed, returning roots unexpanded: %v", err)
		roots, rootsErr := selectRoots(ctx, log)
		if rootsErr != nil {
			return nil, rootsErr
		}
		result.Records = roots
		result.SchemaErr = err
		result.Stats = &Stats{RunID: opts.RunID, RootRecords: len(roots)}
		return r.finish(result, log), nil
	}

	checker, err := NewPreflightChecker(base, log)
	if err != nil {
		return nil, err
	}
	if err := checker.RunAllChecks(r.jobConfig.Table, opts.ExpandTables); err != nil {
		return nil, fmt.Errorf("preflight failed: %w", err)
	}

	roots, err := selectRoots(ctx, log)
	if err != nil {
		return nil, err
	}

	expanded, stats, err := r.engine.Expand(ctx, roots, base, opts)
	if err != nil {
		return nil, err
	}

	result.Records = expanded
	result.Stats = stats
	result.Success = true
	return r.finish(result, log), nil
}

// finish stamps the timing fields and logs the outcome.
func (r *Runner) finish(result *Result, log *logger.Logger) *Result {
	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	if result.SchemaErr != nil {
		log.Warnw("Expansion run fell back to unexpanded roots",
			"duration", result.Duration,
			"roots", len(result.Records),
		)
		return result
	}

	log.Infow("Expansion run completed",
		"duration", result.Duration,
		"roots", result.Stats.RootRecords,
		"records_fetched", result.Stats.RecordsFetched,
		"fetch_failures", result.Stats.FetchFailures,
		"fields_expanded", result.Stats.FieldsExpanded,
		"cycles_skipped", result.Stats.CyclesSkipped,
	)
	return result
}

// fetchRoots selects the run's roots from the job config: explicit ids
// via chunked RECORD_ID() formulas, otherwise one filtered list query.
//
// AL-P4-F1-T2: root selection
func (r *Runner) fetchRoots(ctx context.Context, log *logger.Logger) ([]*record.Record, error) {
	job := r.jobConfig
	if len(job.RecordIDs) > 0 {
		return r.fetchRootsByID(ctx, log)
	}

	records, err := r.client.ListRecords(ctx, job.Table, airtable.ListQuery{
		Filter:     job.Filter,
		View:       job.View,
		MaxRecords: job.MaxRecords,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list root records: %w", err)
	}

	log.Infof("Selected %d root records from %s", len(records), job.Table)
	return records, nil
}

// fetchRootsByID fetches an explicit id list with OR'd RECORD_ID()
// formulas, then restores the configured order. Ids the store does not
// return are logged and dropped; expansion still runs for the rest.
func (r *Runner) fetchRootsByID(ctx context.Context, log *logger.Logger) ([]*record.Record, error) {
	ids := r.jobConfig.RecordIDs

	byID := make(map[string]*record.Record, len(ids))
	for start := 0; start < len(ids); start += rootFetchChunk {
		end := start + rootFetchChunk
		if end > len(ids) {
			end = len(ids)
		}

		records, err := r.client.ListRecords(ctx, r.jobConfig.Table, airtable.ListQuery{
			Filter: airtable.AnyRecordID(ids[start:end]),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch root records (chunk %d-%d): %w", start, end, err)
		}
		for _, rec := range records {
			byID[rec.ID] = rec
		}
	}

	roots := make([]*record.Record, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	var missing []string
	for _, id := range ids {
		if seen[id] {
			log.Debugf("Duplicate root id %s ignored", id)
			continue
		}
		seen[id] = true

		rec, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		roots = append(roots, rec)
	}

	if len(missing) > 0 {
		log.Warnf("%d of %d requested root records not found: %v", len(missing), len(ids), missing)
	}
	log.Infof("Selected %d root records from %s by id", len(roots), r.jobConfig.Table)
	return roots, nil
}

// GetJobName returns the job name.
func (r *Runner) GetJobName() string {
	return r.jobName
}

// GetJobConfig returns the job configuration.
func (r *Runner) GetJobConfig() *config.JobConfig {
	return r.jobConfig
}

// GetExpansionConfig returns the effective expansion configuration.
func (r *Runner) GetExpansionConfig() config.ExpansionConfig {
	return r.expansionCfg
}

// UpdateExpansionConfig replaces the effective expansion configuration.
// This should be called after applying CLI overrides.
func (r *Runner) UpdateExpansionConfig(cfg config.ExpansionConfig) {
	r.expansionCfg = cfg
}
