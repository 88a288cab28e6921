//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// LoaderConfig holds the inputs of a load run.
type LoaderConfig struct {
	Sources warehouse.Sources
	Insert  warehouse.InsertOptions

	// SkipCopy runs only the transformations over already staged data.
	SkipCopy bool
}

// Loader bulk-copies the raw data into staging and transforms it into the
// star schema.
type Loader struct {
	runner  *Runner
	dialect warehouse.Dialect
	cfg     LoaderConfig
}

// NewLoader creates a loader for the given dialect.
func NewLoader(runner *Runner, dialect warehouse.Dialect, cfg LoaderConfig) *Loader {
	return &Loader{runner: runner, dialect: dialect, cfg: cfg}
}

// CopyAll loads events_stg then songs_stg from object storage.
func (l *Loader) CopyAll(ctx context.Context) (*Report, error) {
	steps, err := warehouse.CopyStatements(l.dialect, l.cfg.Sources)
	if err != nil {
		return &Report{}, fmt.Errorf("failed to prepare copy statements: %w", err)
	}
	return l.runner.Run(ctx, steps, AbortOnError)
}

// InsertAll runs the five transformations, dimensions before the fact
// table.
func (l *Loader) InsertAll(ctx context.Context) (*Report, error) {
	return l.runner.Run(ctx, warehouse.InsertStatements(l.cfg.Insert), AbortOnError)
}

// Run copies then transforms. No transformation runs if a copy fails.
func (l *Loader) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if !l.cfg.SkipCopy {
		copied, err := l.CopyAll(ctx)
		report.merge(copied)
		if err != nil {
			return report, err
		}
	}

	inserted, err := l.InsertAll(ctx)
	report.merge(inserted)
	return report, err
}
