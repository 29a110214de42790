package expand

import (
	"fmt"
	"strings"
)

// MaxDepthLimit bounds how many link hops a single run may follow. Every
// extra level multiplies record fetches against a rate limited API, so
// depth is capped rather than left to the config author's optimism.
const MaxDepthLimit = 5

// OriginalIDsSuffix is appended to a field name to hold the raw
// identifier list when IncludeOriginalIDs is set.
const OriginalIDsSuffix = "_ids"

// Options configures one expansion run. It is treated as immutable for
// the duration of the run.
type Options struct {
	// ExpandTables selects the tables whose records get inlined: a link
	// field qualifies when the table it points at is listed here.
	// Entries may be table ids or display names.
	ExpandTables []string

	// MaxDepth is the inclusive bound on link hops followed from a root
	// record. Minimum 1, maximum MaxDepthLimit.
	MaxDepth int

	// IncludeOriginalIDs keeps the raw identifier list of every
	// expanded field under a "<field>_ids" key next to the expanded
	// value.
	IncludeOriginalIDs bool

	// RunID correlates the trace events and log lines of one run. It is
	// assigned automatically when left empty.
	RunID string
}

// OptionsError reports invalid expansion options. Option problems are
// rejected before any remote call is made.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("invalid expansion options: %s: %s", e.Field, e.Message)
}

// Validate checks the options for structural problems.
func (o Options) Validate() error {
	if len(o.ExpandTables) == 0 {
		return &OptionsError{Field: "expand_tables", Message: "at least one target table is required"}
	}
	for i, table := range o.ExpandTables {
		if strings.TrimSpace(table) == "" {
			return &OptionsError{Field: "expand_tables", Message: fmt.Sprintf("entry %d is empty", i)}
		}
	}
	if o.MaxDepth < 1 {
		return &OptionsError{Field: "max_depth", Message: "must be at least 1"}
	}
	if o.MaxDepth > MaxDepthLimit {
		return &OptionsError{Field: "max_depth", Message: fmt.Sprintf("must not exceed %d", MaxDepthLimit)}
	}
	return nil
}
