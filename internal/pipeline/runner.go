//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline executes the ordered statement sequences that provision
// and load the warehouse.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// sqlStateUndefinedTable is raised for references to a missing relation.
const sqlStateUndefinedTable = "42P01"

// ErrorPolicy decides what happens when a step fails.
type ErrorPolicy int

const (
	// AbortOnError stops the sequence at the first failing step.
	AbortOnError ErrorPolicy = iota

	// IgnoreUndefinedTable skips steps failing because a table does not
	// exist and aborts on anything else.
	IgnoreUndefinedTable
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case IgnoreUndefinedTable:
		return "ignore-undefined-table"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// tolerates reports whether err can be skipped under the policy.
func (p ErrorPolicy) tolerates(err error) bool {
	if p != IgnoreUndefinedTable {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUndefinedTable
}

// StepError is returned when a step fails and the policy does not allow
// the sequence to continue.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepResult records the outcome of one statement.
type StepResult struct {
	Name         string
	RowsAffected int64
	Duration     time.Duration

	// Skipped is set when the error policy tolerated a failure.
	Skipped bool
}

// Report collects the results of one or more sequences.
type Report struct {
	Steps    []StepResult
	Duration time.Duration
}

// TotalRows sums the rows affected by every step.
func (r *Report) TotalRows() int64 {
	var n int64
	for _, s := range r.Steps {
		n += s.RowsAffected
	}
	return n
}

// merge appends the steps of other to r.
func (r *Report) merge(other *Report) {
	if other == nil {
		return
	}
	r.Steps = append(r.Steps, other.Steps...)
	r.Duration += other.Duration
}

// Runner executes statements one at a time on a single connection.
type Runner struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunner creates a runner over db. Step progress is written to log.
func NewRunner(db *sql.DB, log zerolog.Logger) *Runner {
	return &Runner{db: db, log: log}
}

// Run executes steps in order. Each step runs in its own transaction that
// commits before the next step starts, so a failure leaves every earlier
// step in place. The report holds the steps that completed, including on
// error.
func (r *Runner) Run(ctx context.Context, steps []warehouse.Statement, policy ErrorPolicy) (*Report, error) {
	report := &Report{}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := r.runStep(ctx, conn, step)
		if err != nil {
			if policy.tolerates(err) {
				r.log.Warn().
					Str("step", step.Name).
					Str("policy", policy.String()).
					Err(err).
					Msg("Step skipped")
				result.Skipped = true
				report.Steps = append(report.Steps, result)
				continue
			}
			r.log.Error().Str("step", step.Name).Err(err).Msg("Step failed")
			return report, &StepError{Step: step.Name, Err: err}
		}

		r.log.Info().
			Str("step", step.Name).
			Int64("rows", result.RowsAffected).
			Dur("duration", result.Duration).
			Msg("Step completed")
		report.Steps = append(report.Steps, result)
	}

	return report, nil
}

func (r *Runner) runStep(ctx context.Context, conn *sql.Conn, step warehouse.Statement) (StepResult, error) {
	result := StepResult{Name: step.Name}
	start := time.Now()

	r.log.Debug().Str("step", step.Name).Str("sql", step.SQL).Msg("Executing step")

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, step.SQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.log.Warn().Str("step", step.Name).Err(rbErr).Msg("Rollback failed")
		}
		result.Duration = time.Since(start)
		return result, err
	}

	if err := tx.Commit(); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("failed to commit: %w", err)
	}

	// Not every statement reports a count (DDL); zero is fine there.
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	result.Duration = time.Since(start)
	return result, nil
}
