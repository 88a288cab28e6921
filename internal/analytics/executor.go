package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Result holds the rows of one executed query, rendered as text.
type Result struct {
	Query    Query
	Columns  []string
	Rows     [][]string
	Duration time.Duration
}

// Summary collects the results of a run.
type Summary struct {
	Results  []Result
	Duration time.Duration
}

// AvgLatency returns the mean query duration.
func (s *Summary) AvgLatency() time.Duration {
	if len(s.Results) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range s.Results {
		total += r.Duration
	}
	return total / time.Duration(len(s.Results))
}

// Executor runs registered queries one after another.
type Executor struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewExecutor creates an executor over db.
func NewExecutor(db *sql.DB, log zerolog.Logger) *Executor {
	return &Executor{db: db, log: log}
}

// Run executes the named queries in order, or every registered query when
// names is empty. It stops at the first failure; the summary holds the
// queries that completed.
func (e *Executor) Run(ctx context.Context, names []string) (*Summary, error) {
	if len(names) == 0 {
		names = List()
	}

	queries := make([]Query, 0, len(names))
	for _, name := range names {
		q, err := Get(name)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}

	summary := &Summary{}
	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	for _, q := range queries {
		result, err := e.execute(ctx, q)
		if err != nil {
			e.log.Error().Str("query", q.Name).Err(err).Msg("Query failed")
			return summary, fmt.Errorf("query %s failed: %w", q.Name, err)
		}

		e.log.Info().
			Str("query", q.Name).
			Int("rows", len(result.Rows)).
			Float64("latency_ms", float64(result.Duration)/1e6).
			Msg("Query completed")
		summary.Results = append(summary.Results, result)
	}

	return summary, nil
}

func (e *Executor) execute(ctx context.Context, q Query) (Result, error) {
	result := Result{Query: q}
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, q.SQL)
	if err != nil {
		return result, err
	}
	defer rows.Close()

	result.Columns, err = rows.Columns()
	if err != nil {
		return result, err
	}

	values := make([]any, len(result.Columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return result, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = format(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
