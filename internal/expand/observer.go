package expand

import (
	"github.com/tablemateio/airlink/internal/logger"
)

// EventType names a trace point in the expansion walk.
type EventType string

const (
	// EventSchemaResolved fires once per run, after the base metadata
	// backing the walk has been indexed.
	EventSchemaResolved EventType = "schema_resolved"

	// EventFetchAttempted fires before each record fetch.
	EventFetchAttempted EventType = "fetch_attempted"

	// EventFetchFailed fires when a record fetch fails. The reference
	// stays behind as its raw id.
	EventFetchFailed EventType = "fetch_failed"

	// EventFieldMerged fires after expanded children are written back
	// onto a field.
	EventFieldMerged EventType = "field_merged"

	// EventCycleSkipped fires when a reference is left as a bare id
	// because its record was already expanded this run.
	EventCycleSkipped EventType = "cycle_skipped"
)

// Event is one trace notification from the expansion walk.
type Event struct {
	Type     EventType
	RunID    string
	Table    string // canonical table id at the trace point
	RecordID string
	Field    string
	Depth    int   // remaining hops at the trace point
	Count    int   // tables indexed or children merged, by event type
	Err      error // set for EventFetchFailed
}

// Observer receives trace events from the expansion walk. It runs inline
// with the recursion, so implementations must be cheap and must not
// block.
//
// AL-P3-F5-T1: injectable trace observer
type Observer interface {
	Observe(event Event)
}

// NopObserver discards every event.
type NopObserver struct{}

// Observe implements Observer.
func (NopObserver) Observe(Event) {}

// LoggingObserver writes trace events to the debug log, which is how the
// CLI surfaces a verbose walk without touching the engine.
type LoggingObserver struct {
	logger *logger.Logger
}

// NewLoggingObserver creates an observer that logs every trace event.
func NewLoggingObserver(log *logger.Logger) *LoggingObserver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &LoggingObserver{logger: log}
}

// Observe implements Observer.
func (o *LoggingObserver) Observe(event Event) {
	log := o.logger.WithRun(event.RunID)

	switch event.Type {
	case EventSchemaResolved:
		log.Debugf("Schema resolved: %d tables", event.Count)
	case EventFetchAttempted:
		log.Debugf("Fetching %s/%s (depth %d)", event.Table, event.RecordID, event.Depth)
	case EventFetchFailed:
		log.Warnf("Fetch failed for %s/%s: %v", event.Table, event.RecordID, event.Err)
	case EventFieldMerged:
		log.Debugf("Merged %d children into field %q of %s/%s",
			event.Count, event.Field, event.Table, event.RecordID)
	case EventCycleSkipped:
		log.Debugf("Skipping %s/%s: already expanded this run", event.Table, event.RecordID)
	}
}
