// Package expand implements the linked record expansion engine: schema
// driven discovery of reference fields, depth bounded recursive fetching
// of the records they point at, and cycle safe merging of the results
// back into the parent record shape.
package expand

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/record"
	"github.com/tablemateio/airlink/internal/schema"
)

// RecordFetcher is the record half of the API client. It is the only
// I/O the engine performs.
type RecordFetcher interface {
	GetRecord(ctx context.Context, table, id string) (*record.Record, error)
}

// Stats counts what one expansion run did.
type Stats struct {
	RunID          string        // Correlates the run's log lines and trace events
	RootRecords    int           // Records supplied to the run
	RecordsFetched int64         // Successful record fetches
	FetchFailures  int64         // Fetches that failed and fell back to the raw id
	FieldsExpanded int64         // Fields rewritten with expanded children
	CyclesSkipped  int64         // References left as bare ids to break cycles
	VisitedRecords int           // Distinct records touched, roots included
	Duration       time.Duration // Wall time of the engine walk
}

// Engine performs depth bounded recursive expansion of linked record
// fields. One Engine serves any number of sequential runs; all per-run
// state lives on the call.
//
// AL-P3-F2: recursive expansion engine
type Engine struct {
	fetcher  RecordFetcher
	logger   *logger.Logger
	observer Observer
}

// NewEngine creates an expansion engine on top of a record fetcher.
func NewEngine(fetcher RecordFetcher, log *logger.Logger) (*Engine, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("record fetcher is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{
		fetcher:  fetcher,
		logger:   log,
		observer: NopObserver{},
	}, nil
}

// SetObserver installs a trace observer. A nil observer restores the
// default no-op one.
func (e *Engine) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	e.observer = obs
}

// expansion carries the per-run state of one top-level Expand call.
type expansion struct {
	engine  *Engine
	base    *schema.BaseSchema
	opts    Options
	targets map[string]bool
	visited *visitSet
	stats   *Stats
	logger  *logger.Logger
}

// Expand expands the link fields of the given root records up to
// opts.MaxDepth hops and returns new record values; the inputs are never
// mutated. Fetch failures are isolated per reference, so the only errors
// returned are invalid options and a missing schema.
func (e *Engine) Expand(ctx context.Context, roots []*record.Record, base *schema.BaseSchema, opts Options) ([]*record.Record, *Stats, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	if base == nil {
		return nil, nil, fmt.Errorf("base schema is nil")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	start := time.Now()
	run := &expansion{
		engine:  e,
		base:    base,
		opts:    opts,
		targets: resolveTargets(base, opts.ExpandTables),
		visited: newVisitSet(),
		stats:   &Stats{RunID: opts.RunID, RootRecords: len(roots)},
		logger:  e.logger.WithRun(opts.RunID),
	}

	run.observe(Event{Type: EventSchemaResolved, Count: base.Len()})

	// AL-P3-F1-T1: roots count as expanded before any recursion, so a
	// back link to a root becomes a placeholder instead of a refetch.
	for _, root := range roots {
		run.visited.Mark(run.tableKey(root.Table), root.ID)
	}

	out := run.expandRecords(ctx, roots, opts.MaxDepth)

	run.stats.VisitedRecords = run.visited.Len()
	run.stats.Duration = time.Since(start)
	return out, run.stats, nil
}

// resolveTargets canonicalizes the configured table selectors. Unknown
// entries are dropped here; preflight reports them before a run starts.
func resolveTargets(base *schema.BaseSchema, selectors []string) map[string]bool {
	targets := make(map[string]bool, len(selectors))
	for _, sel := range selectors {
		if id, ok := base.CanonicalTableID(sel); ok {
			targets[id] = true
		}
	}
	return targets
}

// tableKey canonicalizes a table reference for visit bookkeeping. A
// table missing from the schema keeps its raw reference; the walk still
// terminates, there are just no link fields to follow on it.
func (x *expansion) tableKey(tableRef string) string {
	if id, ok := x.base.CanonicalTableID(tableRef); ok {
		return id
	}
	return tableRef
}

// expandRecords is the recursive core. depthRemaining counts link hops
// still allowed; zero returns the records untouched.
//
// AL-P3-F2-T1: depth bound is a hard stop, not a hint
func (x *expansion) expandRecords(ctx context.Context, records []*record.Record, depthRemaining int) []*record.Record {
	if depthRemaining <= 0 {
		return records
	}

	out := make([]*record.Record, len(records))
	for i, rec := range records {
		out[i] = x.expandRecord(ctx, rec, depthRemaining)
	}
	return out
}

// expandRecord walks one record's link fields in schema order.
//
// AL-P3-F2-T2: selector matching against the link target table
func (x *expansion) expandRecord(ctx context.Context, rec *record.Record, depthRemaining int) *record.Record {
	table, ok := x.base.ResolveTable(rec.Table)
	if !ok {
		// Table absent from the schema: nothing is known about its links
		return rec
	}

	out := rec
	cloned := false

	for _, field := range table.LinkFields() {
		targetTable := field.Options.LinkedTableID
		if !x.targets[targetTable] {
			continue
		}

		value, present := rec.Get(field.Name)
		if !present {
			continue
		}

		// AL-P3-F2-T3: a field qualifies only while it still reads as
		// an id list; expanded content from an earlier run is left alone
		ids, ok := record.ReferenceIDs(value)
		if !ok || len(ids) == 0 {
			continue
		}

		children := x.expandReferences(ctx, targetTable, ids, depthRemaining)

		// The caller keeps its record value; merges land on a copy
		if !cloned {
			out = rec.Clone()
			cloned = true
		}
		mergeField(out, field.Name, children, ids, x.opts.IncludeOriginalIDs)
		x.stats.FieldsExpanded++
		x.observe(Event{
			Type:     EventFieldMerged,
			Table:    table.ID,
			RecordID: rec.ID,
			Field:    field.Name,
			Depth:    depthRemaining,
			Count:    len(children),
		})
	}

	return out
}

// expandReferences resolves one field's identifier list. Each entry
// becomes an expanded child record, or stays a bare id when the record
// was already expanded this run or its fetch failed. Source order and
// duplicates are preserved.
func (x *expansion) expandReferences(ctx context.Context, targetTable string, ids []string, depthRemaining int) []interface{} {
	children := make([]interface{}, 0, len(ids))

	for _, id := range ids {
		// AL-P3-F1-T1: mark before recursing. Marking afterwards lets a
		// mutual reference refetch its partner inside one depth level.
		if !x.visited.Mark(targetTable, id) {
			x.stats.CyclesSkipped++
			x.observe(Event{
				Type:     EventCycleSkipped,
				Table:    targetTable,
				RecordID: id,
				Depth:    depthRemaining,
			})
			children = append(children, id)
			continue
		}

		x.observe(Event{
			Type:     EventFetchAttempted,
			Table:    targetTable,
			RecordID: id,
			Depth:    depthRemaining,
		})

		child, err := x.engine.fetcher.GetRecord(ctx, targetTable, id)
		if err != nil {
			// AL-P3-F4-T1: one bad reference never aborts its siblings;
			// the raw id stays in place
			x.stats.FetchFailures++
			x.logger.Warnf("Failed to fetch %s/%s, keeping raw id: %v", targetTable, id, err)
			x.observe(Event{
				Type:     EventFetchFailed,
				Table:    targetTable,
				RecordID: id,
				Depth:    depthRemaining,
				Err:      err,
			})
			children = append(children, id)
			continue
		}
		x.stats.RecordsFetched++

		expanded := x.expandRecords(ctx, []*record.Record{child}, depthRemaining-1)
		children = append(children, expanded[0])
	}

	return children
}

func (x *expansion) observe(event Event) {
	event.RunID = x.opts.RunID
	x.engine.observer.Observe(event)
}
