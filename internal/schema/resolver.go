package schema

import (
	"context"
	"fmt"

	"github.com/tablemateio/airlink/internal/airtable"
	"github.com/tablemateio/airlink/internal/logger"
)

// Fetcher is the metadata half of the API client.
type Fetcher interface {
	GetBaseSchema(ctx context.Context) ([]airtable.TableSchema, error)
}

// Resolver fetches and indexes base metadata. Resolve is called once
// per expansion run and its result reused for the whole run; nothing is
// cached across runs, so schema edits are picked up by the next one.
type Resolver struct {
	fetcher Fetcher
	logger  *logger.Logger
}

// NewResolver creates a Resolver backed by the given metadata fetcher.
func NewResolver(fetcher Fetcher, log *logger.Logger) (*Resolver, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  log,
	}, nil
}

// Resolve fetches the base metadata and indexes it.
func (r *Resolver) Resolve(ctx context.Context) (*BaseSchema, error) {
	tables, err := r.fetcher.GetBaseSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base schema: %w", err)
	}

	s := NewBaseSchema(tables)
	r.logger.Debugw("Base schema resolved",
		"tables", s.Len(),
		"link_fields", s.LinkFieldCount(),
	)
	return s, nil
}
