//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// CopyFromer is satisfied by *pgx.Conn, pgx.Tx and *pgxpool.Pool.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyResult holds the number of rows written per table.
type CopyResult struct {
	Songs  int64
	Events int64
}

// CopyTo writes the data into songs_stg and events_stg with COPY FROM
// STDIN. Existing staging rows are kept. Redshift does not support COPY
// from a client, so this only works against PostgreSQL.
func (s *Staging) CopyTo(ctx context.Context, dst CopyFromer) (CopyResult, error) {
	var result CopyResult

	songRows := make([][]any, len(s.Songs))
	for i, song := range s.Songs {
		songRows[i] = song.values()
	}
	n, err := copyRows(ctx, dst, warehouse.SongsStaging, songRows)
	if err != nil {
		return result, err
	}
	result.Songs = n

	eventRows := make([][]any, len(s.Events))
	for i, e := range s.Events {
		eventRows[i] = e.values()
	}
	n, err = copyRows(ctx, dst, warehouse.EventsStaging, eventRows)
	if err != nil {
		return result, err
	}
	result.Events = n

	return result, nil
}

func copyRows(ctx context.Context, dst CopyFromer, table string, rows [][]any) (int64, error) {
	columns, err := stagingColumns(table)
	if err != nil {
		return 0, err
	}

	n, err := dst.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy into %s: %w", table, err)
	}

	logging.Info().
		Str("table", table).
		Int64("rows", n).
		Msg("Table complete")
	return n, nil
}

// stagingColumns returns the column names of a staging table as
// PostgreSQL stores them. The DDL leaves identifiers unquoted, so they are
// folded to lower case.
func stagingColumns(table string) ([]string, error) {
	t, ok := warehouse.NewSchema(warehouse.DialectPostgres).Lookup(table)
	if !ok || t.Role != warehouse.RoleStaging {
		return nil, fmt.Errorf("%s is not a staging table", table)
	}

	columns := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = strings.ToLower(c.Name)
	}
	return columns, nil
}
