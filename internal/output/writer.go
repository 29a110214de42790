// Package output writes expanded records to their configured destination.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tablemateio/airlink/internal/config"
	"github.com/tablemateio/airlink/internal/logger"
	"github.com/tablemateio/airlink/internal/record"
)

// Formats accepted by the writer.
const (
	FormatJSON  = "json"  // one array holding every record
	FormatJSONL = "jsonl" // one record per line
)

// WriteStats summarizes a completed write.
type WriteStats struct {
	Records     int
	Bytes       int64
	Destination string
	Format      string
}

// Writer serializes expanded records per the output configuration.
// Pretty applies to the json format only; jsonl lines stay compact so
// they remain one record per line.
type Writer struct {
	cfg    config.OutputConfig
	logger *logger.Logger
}

// NewWriter creates a writer for the given output settings.
func NewWriter(cfg config.OutputConfig, log *logger.Logger) (*Writer, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	switch cfg.Format {
	case "", FormatJSON, FormatJSONL:
	default:
		return nil, fmt.Errorf("unsupported output format %q", cfg.Format)
	}
	return &Writer{cfg: cfg, logger: log}, nil
}

// Write serializes the records to the configured destination.
func (w *Writer) Write(records []*record.Record) (*WriteStats, error) {
	out, closeFn, err := w.open()
	if err != nil {
		return nil, err
	}

	stats, werr := w.WriteTo(out, records)
	if cerr := closeFn(); werr == nil && cerr != nil {
		werr = fmt.Errorf("failed to close output file: %w", cerr)
	}
	if werr != nil {
		return nil, werr
	}

	w.logger.Infow("Wrote expanded records",
		"records", stats.Records,
		"bytes", stats.Bytes,
		"destination", stats.Destination,
		"format", stats.Format,
	)
	return stats, nil
}

// WriteTo serializes the records to an explicit writer.
func (w *Writer) WriteTo(out io.Writer, records []*record.Record) (*WriteStats, error) {
	if records == nil {
		// A run with no roots still emits a valid empty document
		records = []*record.Record{}
	}

	cw := &countingWriter{w: out}
	format := w.cfg.Format
	if format == "" {
		format = FormatJSON
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(cw)
		if w.cfg.Pretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(records); err != nil {
			return nil, fmt.Errorf("failed to encode records: %w", err)
		}
	case FormatJSONL:
		enc := json.NewEncoder(cw)
		for i, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return nil, fmt.Errorf("failed to encode record %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	return &WriteStats{
		Records:     len(records),
		Bytes:       cw.n,
		Destination: w.destinationLabel(),
		Format:      format,
	}, nil
}

// open resolves the destination. The returned close func is a no-op for
// stdout.
func (w *Writer) open() (io.Writer, func() error, error) {
	dest := w.cfg.Destination
	if dest == "" || dest == "stdout" || dest == "-" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return f, f.Close, nil
}

func (w *Writer) destinationLabel() string {
	dest := w.cfg.Destination
	if dest == "" || dest == "stdout" || dest == "-" {
		return "stdout"
	}
	return dest
}

// countingWriter tracks bytes passed through to the destination.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
