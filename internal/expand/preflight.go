package expand

import (
	"fmt"

	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/schema"
)

// PreflightError represents a preflight check failure.
//
// AL-P4-F2: preflight check error reporting
type PreflightError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *PreflightError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// PreflightChecker verifies that a job's table selections line up with
// the base schema before any record is fetched. All checks are pure
// lookups against already resolved metadata.
type PreflightChecker struct {
	base   *schema.BaseSchema
	logger *logger.Logger
}

// NewPreflightChecker creates a preflight checker for a resolved schema.
func NewPreflightChecker(base *schema.BaseSchema, log *logger.Logger) (*PreflightChecker, error) {
	if base == nil {
		return nil, fmt.Errorf("base schema is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &PreflightChecker{
		base:   base,
		logger: log,
	}, nil
}

// RunAllChecks runs every preflight check for a job: the root table and
// all selected target tables must exist, and targets nothing links to
// are flagged.
func (p *PreflightChecker) RunAllChecks(rootTable string, expandTables []string) error {
	p.logger.Info("Running preflight checks...")

	if err := p.ValidateRootTable(rootTable); err != nil {
		return err
	}

	if err := p.ValidateTargetTables(expandTables); err != nil {
		return err
	}

	p.WarnUnlinkedTargets(expandTables)

	p.logger.Info("All preflight checks PASSED")
	return nil
}

// ValidateRootTable checks that the job's root table exists in the base.
func (p *PreflightChecker) ValidateRootTable(rootTable string) error {
	p.logger.Debug("Checking root table...")

	if rootTable == "" {
		return &PreflightError{
			Check:   "ROOT_TABLE_CHECK",
			Message: "no root table configured",
		}
	}

	if _, ok := p.base.ResolveTable(rootTable); !ok {
		return &PreflightError{
			Check:   "ROOT_TABLE_CHECK",
			Message: "root table not found in base",
			Tables:  []string{rootTable},
		}
	}

	p.logger.Debugf("Root table check PASSED (%s)", rootTable)
	return nil
}

// ValidateTargetTables checks that every expand_tables entry resolves to
// a table in the base.
func (p *PreflightChecker) ValidateTargetTables(expandTables []string) error {
	p.logger.Debug("Checking target tables...")

	var missing []string
	for _, target := range expandTables {
		if _, ok := p.base.ResolveTable(target); !ok {
			missing = append(missing, target)
		}
	}

	if len(missing) > 0 {
		return &PreflightError{
			Check:   "TARGET_TABLE_CHECK",
			Message: "expand_tables entries not found in base",
			Tables:  missing,
		}
	}

	p.logger.Debugf("Target table check PASSED (%d tables)", len(expandTables))
	return nil
}

// WarnUnlinkedTargets warns about selected tables that no link field in
// the base points at. Selecting them is legal but expands nothing.
func (p *PreflightChecker) WarnUnlinkedTargets(expandTables []string) {
	p.logger.Debug("Checking link coverage of targets...")

	linkedTo := make(map[string]bool)
	for _, table := range p.base.Tables() {
		for _, field := range table.LinkFields() {
			linkedTo[field.Options.LinkedTableID] = true
		}
	}

	var unlinked []string
	for _, target := range expandTables {
		id, ok := p.base.CanonicalTableID(target)
		if ok && !linkedTo[id] {
			unlinked = append(unlinked, target)
		}
	}

	if len(unlinked) > 0 {
		p.logger.Warnf("No link field in the base points at %v; these targets will never be expanded", unlinked)
	} else {
		p.logger.Debug("Link coverage check complete (all targets reachable)")
	}
}

// SetLogger sets a custom logger for the preflight checker.
func (p *PreflightChecker) SetLogger(log *logger.Logger) {
	p.logger = log
}
