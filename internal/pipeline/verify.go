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
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// DefaultTimeSample is the number of time_dim rows spot-checked.
const DefaultTimeSample = 100

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Role  warehouse.Role
	Rows  int64
}

// CheckResult is the outcome of one integrity check.
type CheckResult struct {
	Check      warehouse.Check
	Violations int64
}

// Passed reports whether the check found nothing.
func (c CheckResult) Passed() bool {
	return c.Violations == 0
}

// TimeMismatch is a time_dim row whose parts disagree with its start_time.
type TimeMismatch struct {
	Got  warehouse.TimeRow
	Want warehouse.TimeRow
}

// VerifyReport is the result of a verification run.
type VerifyReport struct {
	RowCounts      []TableCount
	Checks         []CheckResult
	TimeSampled    int
	TimeMismatches []TimeMismatch
	Duration       time.Duration
}

// Violations counts failed checks and mismatching time rows.
func (r *VerifyReport) Violations() int {
	n := len(r.TimeMismatches)
	for _, c := range r.Checks {
		if !c.Passed() {
			n++
		}
	}
	return n
}

// OK reports whether the warehouse passed every check.
func (r *VerifyReport) OK() bool {
	return r.Violations() == 0
}

// Verifier inspects a loaded warehouse without modifying it.
type Verifier struct {
	db     *sql.DB
	schema *warehouse.Schema
	log    zerolog.Logger

	// SampleSize bounds the time_dim spot-check; zero disables it.
	SampleSize int
}

// NewVerifier creates a verifier for schema.
func NewVerifier(db *sql.DB, schema *warehouse.Schema, log zerolog.Logger) *Verifier {
	return &Verifier{db: db, schema: schema, log: log, SampleSize: DefaultTimeSample}
}

// Run counts rows, executes the integrity checks and spot-checks time_dim.
func (v *Verifier) Run(ctx context.Context) (*VerifyReport, error) {
	start := time.Now()
	report := &VerifyReport{}

	for _, t := range v.schema.Tables() {
		n, err := v.count(ctx, warehouse.RowCountSQL(t.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to count rows of %s: %w", t.Name, err)
		}
		report.RowCounts = append(report.RowCounts, TableCount{Table: t.Name, Role: t.Role, Rows: n})
	}

	for _, check := range v.schema.IntegrityChecks() {
		n, err := v.count(ctx, check.SQL)
		if err != nil {
			return nil, fmt.Errorf("check %s failed: %w", check.Name, err)
		}
		result := CheckResult{Check: check, Violations: n}
		if !result.Passed() {
			v.log.Warn().Str("check", check.Name).Int64("violations", n).Msg(check.Description)
		}
		report.Checks = append(report.Checks, result)
	}

	if v.SampleSize > 0 {
		if err := v.sampleTime(ctx, report); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(start)
	v.log.Info().
		Int("violations", report.Violations()).
		Dur("duration", report.Duration).
		Msg("Verification finished")
	return report, nil
}

func (v *Verifier) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := v.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (v *Verifier) sampleTime(ctx context.Context, report *VerifyReport) error {
	rows, err := v.db.QueryContext(ctx, warehouse.TimeSampleSQL(v.SampleSize))
	if err != nil {
		return fmt.Errorf("failed to sample %s: %w", warehouse.TimeDim, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ms int64
		var got warehouse.TimeRow
		if err := rows.Scan(&ms, &got.Hour, &got.Day, &got.Week, &got.Month, &got.Year, &got.Weekday); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", warehouse.TimeDim, err)
		}
		want := warehouse.TimeParts(ms)
		got.StartTime = want.StartTime

		report.TimeSampled++
		if got != want {
			v.log.Warn().Time("start_time", want.StartTime).Msg("time_dim row does not match its start_time")
			report.TimeMismatches = append(report.TimeMismatches, TimeMismatch{Got: got, Want: want})
		}
	}
	return rows.Err()
}
