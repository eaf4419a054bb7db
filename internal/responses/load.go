package responses

import (
	"context"
	"fmt"
	"time"

	"github.com/garyellow/chatai/internal/logger"
	"github.com/garyellow/chatai/internal/source"
	"github.com/garyellow/chatai/internal/stringutil"
)

// Reasons a row is left out of the table.
const (
	ReasonMalformed     = "malformed"
	ReasonEmptyInput    = "empty_input"
	ReasonEmptyResponse = "empty_response"
)

// Recorder receives load metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordRowSkipped(reason string)
	SetTableEntries(n int)
	RecordTableLoad(duration float64)
}

// LoadStats summarizes a load.
type LoadStats struct {
	Rows       int // data rows seen, header excluded
	Loaded     int // rows accepted, duplicates included
	Skipped    int // rows dropped as malformed or empty
	Duplicates int // accepted rows that replaced an earlier trigger's response
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	recorder Recorder
}

// WithRecorder reports skipped rows, table size and load time to r.
func WithRecorder(r Recorder) LoadOption {
	return func(o *loadOptions) {
		o.recorder = r
	}
}

// Load reads every row of src into a Table. Malformed and empty rows are
// skipped with a warning. A duplicate trigger keeps the position of its first
// occurrence and the response of its last. Errors reading the source itself
// are returned; the caller must not serve without a table.
func Load(ctx context.Context, src source.Source, log *logger.Logger, opts ...LoadOption) (*Table, LoadStats, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	log = log.WithField("source", src.String())

	var stats LoadStats
	b := NewBuilder()
	skip := func(row source.Row, reason string) {
		stats.Skipped++
		entry := log.WithFields(map[string]any{"row": row.Position, "reason": reason})
		if row.Err != nil {
			entry = entry.WithError(row.Err)
		}
		entry.Warn("Skipping row")
		if o.recorder != nil {
			o.recorder.RecordRowSkipped(reason)
		}
	}

	err := src.Scan(ctx, func(row source.Row) error {
		stats.Rows++
		switch {
		case row.Err != nil:
			skip(row, ReasonMalformed)
		case stringutil.Normalize(row.Input) == "":
			skip(row, ReasonEmptyInput)
		case row.Response == "":
			skip(row, ReasonEmptyResponse)
		default:
			stats.Loaded++
			if !b.Add(row.Input, row.Response) {
				stats.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("load responses: %w", err)
	}

	table := b.Build()
	elapsed := time.Since(start)

	if o.recorder != nil {
		o.recorder.SetTableEntries(table.Len())
		o.recorder.RecordTableLoad(elapsed.Seconds())
	}

	if table.Len() == 0 {
		log.Warn("Response table is empty; every message will get the fallback response")
	}
	log.WithFields(map[string]any{
		"entries":     table.Len(),
		"rows":        stats.Rows,
		"skipped":     stats.Skipped,
		"duplicates":  stats.Duplicates,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Response table loaded")

	return table, stats, nil
}
