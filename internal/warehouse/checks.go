//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"fmt"
	"time"
)

// Check is a read-only query returning a single count. A check passes
// when the count is zero.
type Check struct {
	Name        string
	Description string
	SQL         string
}

// RowCountSQL returns a query counting the rows of a table.
func RowCountSQL(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
}

// IntegrityChecks returns the referential and uniqueness checks of the
// loaded warehouse. Redshift does not enforce declared keys, so these are
// the only guard that the transformations kept them intact.
func (s *Schema) IntegrityChecks() []Check {
	var checks []Check

	for _, fk := range songplaysFact.ForeignKeys {
		checks = append(checks, Check{
			Name:        "orphan_" + fk.Column,
			Description: fmt.Sprintf("%s.%s without a matching %s row", SongplaysFact, fk.Column, fk.RefTable),
			SQL: fmt.Sprintf(`SELECT COUNT(*) FROM %s f
WHERE NOT EXISTS (SELECT 1 FROM %s d WHERE d.%s = f.%s)`,
				SongplaysFact, fk.RefTable, fk.RefColumn, fk.Column),
		})
	}

	for _, t := range s.Tables() {
		if t.Role != RoleDimension {
			continue
		}
		checks = append(checks, Check{
			Name:        "duplicate_" + t.PrimaryKey + "_in_" + t.Name,
			Description: fmt.Sprintf("%s values present more than once in %s", t.PrimaryKey, t.Name),
			SQL: fmt.Sprintf(`SELECT COUNT(*) FROM (
    SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1
) AS dup`, t.PrimaryKey, t.Name, t.PrimaryKey),
		})
	}

	return checks
}

// TimeSampleSQL selects up to limit time_dim rows for spot-checking.
// The epoch-millisecond column is reconstructed so rows can be compared
// with TimeParts.
func TimeSampleSQL(limit int) string {
	return fmt.Sprintf(`SELECT
    CAST(EXTRACT(epoch FROM start_time) AS BIGINT) * 1000,
    hour, day, week, month, year, weekday
FROM time_dim
ORDER BY start_time
LIMIT %d`, limit)
}

// TimeRow is one decomposed time_dim row.
type TimeRow struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// TimeParts decomposes an epoch-millisecond timestamp the way the time_dim
// insert does: milliseconds are truncated, the week is the ISO week, and
// weekday counts from Sunday = 0.
func TimeParts(ts int64) TimeRow {
	start := time.Unix(ts/1000, 0).UTC()
	_, week := start.ISOWeek()
	return TimeRow{
		StartTime: start,
		Hour:      start.Hour(),
		Day:       start.Day(),
		Week:      week,
		Month:     int(start.Month()),
		Year:      start.Year(),
		Weekday:   int(start.Weekday()),
	}
}
