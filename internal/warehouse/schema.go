//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse defines the star schema and the statements that
// provision and populate it. Nothing in this package talks to a database;
// it only renders SQL for the pipeline to execute.
package warehouse

import (
	"fmt"
	"strings"
)

// Role classifies a table within the star schema.
type Role string

const (
	RoleStaging   Role = "staging"
	RoleDimension Role = "dimension"
	RoleFact      Role = "fact"
)

// Dialect selects the SQL flavour tables are rendered in.
type Dialect string

const (
	// DialectRedshift renders IDENTITY columns and distribution/sort keys.
	DialectRedshift Dialect = "redshift"

	// DialectPostgres renders plain PostgreSQL DDL. It exists so the
	// transformation model can be exercised against a local Postgres.
	DialectPostgres Dialect = "postgres"
)

// ParseDialect converts a configuration value into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(s)) {
	case "", DialectRedshift:
		return DialectRedshift, nil
	case DialectPostgres:
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unknown dialect: %s", s)
	}
}

// Column describes a single table column.
type Column struct {
	Name     string
	Type     string
	NotNull  bool
	Identity bool
}

// ForeignKey links a column to the primary key of another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table describes one relation of the warehouse.
type Table struct {
	Name        string
	Role        Role
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKey

	// DistKey and SortKey only apply to the Redshift dialect.
	DistKey string
	SortKey string
}

// Statement is a named SQL statement executed as one unit.
type Statement struct {
	Name string
	SQL  string
}

// Table names.
const (
	EventsStaging = "events_stg"
	SongsStaging  = "songs_stg"
	UsersDim      = "users_dim"
	SongsDim      = "songs_dim"
	ArtistsDim    = "artists_dim"
	TimeDim       = "time_dim"
	SongplaysFact = "songplays_fact"
)

// Staging tables carry no constraints; they mirror the raw JSON records.
var eventsStaging = Table{
	Name: EventsStaging,
	Role: RoleStaging,
	Columns: []Column{
		{Name: "artist", Type: "VARCHAR"},
		{Name: "auth", Type: "VARCHAR"},
		{Name: "firstName", Type: "VARCHAR"},
		{Name: "gender", Type: "VARCHAR"},
		{Name: "itemInSession", Type: "SMALLINT"},
		{Name: "lastName", Type: "VARCHAR"},
		{Name: "length", Type: "FLOAT"},
		{Name: "level", Type: "VARCHAR"},
		{Name: "location", Type: "VARCHAR"},
		{Name: "method", Type: "VARCHAR"},
		{Name: "page", Type: "VARCHAR"},
		{Name: "registration", Type: "VARCHAR"},
		{Name: "sessionId", Type: "SMALLINT"},
		{Name: "song", Type: "VARCHAR"},
		{Name: "status", Type: "SMALLINT"},
		{Name: "ts", Type: "BIGINT"},
		{Name: "userAgent", Type: "VARCHAR"},
		{Name: "userId", Type: "SMALLINT"},
	},
}

var songsStaging = Table{
	Name: SongsStaging,
	Role: RoleStaging,
	Columns: []Column{
		{Name: "num_songs", Type: "SMALLINT"},
		{Name: "artist_id", Type: "VARCHAR"},
		{Name: "artist_latitude", Type: "FLOAT"},
		{Name: "artist_longitude", Type: "FLOAT"},
		{Name: "artist_location", Type: "VARCHAR"},
		{Name: "artist_name", Type: "VARCHAR"},
		{Name: "song_id", Type: "VARCHAR"},
		{Name: "title", Type: "VARCHAR"},
		{Name: "duration", Type: "FLOAT"},
		{Name: "year", Type: "SMALLINT"},
	},
}

var usersDim = Table{
	Name: UsersDim,
	Role: RoleDimension,
	Columns: []Column{
		{Name: "user_id", Type: "SMALLINT", NotNull: true},
		{Name: "first_name", Type: "VARCHAR"},
		{Name: "last_name", Type: "VARCHAR"},
		{Name: "gender", Type: "VARCHAR"},
		{Name: "level", Type: "VARCHAR"},
	},
	PrimaryKey: "user_id",
	DistKey:    "user_id",
	SortKey:    "user_id",
}

var songsDim = Table{
	Name: SongsDim,
	Role: RoleDimension,
	Columns: []Column{
		{Name: "song_id", Type: "VARCHAR", NotNull: true},
		{Name: "title", Type: "VARCHAR", NotNull: true},
		{Name: "artist_id", Type: "VARCHAR", NotNull: true},
		{Name: "year", Type: "SMALLINT"},
		{Name: "duration", Type: "FLOAT"},
	},
	PrimaryKey: "song_id",
	DistKey:    "song_id",
	SortKey:    "song_id",
}

var artistsDim = Table{
	Name: ArtistsDim,
	Role: RoleDimension,
	Columns: []Column{
		{Name: "artist_id", Type: "VARCHAR", NotNull: true},
		{Name: "artist_name", Type: "VARCHAR", NotNull: true},
		{Name: "location", Type: "VARCHAR"},
		{Name: "latitude", Type: "FLOAT"},
		{Name: "longitude", Type: "FLOAT"},
	},
	PrimaryKey: "artist_id",
	DistKey:    "artist_id",
	SortKey:    "artist_id",
}

// Every time_dim column is derived from start_time.
var timeDim = Table{
	Name: TimeDim,
	Role: RoleDimension,
	Columns: []Column{
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true},
		{Name: "hour", Type: "SMALLINT", NotNull: true},
		{Name: "day", Type: "SMALLINT", NotNull: true},
		{Name: "week", Type: "SMALLINT", NotNull: true},
		{Name: "month", Type: "SMALLINT", NotNull: true},
		{Name: "year", Type: "SMALLINT", NotNull: true},
		{Name: "weekday", Type: "SMALLINT", NotNull: true},
	},
	PrimaryKey: "start_time",
	DistKey:    "start_time",
	SortKey:    "start_time",
}

var songplaysFact = Table{
	Name: SongplaysFact,
	Role: RoleFact,
	Columns: []Column{
		{Name: "songplay_id", Type: "INT", Identity: true},
		{Name: "start_time", Type: "TIMESTAMP", NotNull: true},
		{Name: "user_id", Type: "SMALLINT"},
		{Name: "level", Type: "VARCHAR"},
		{Name: "song_id", Type: "VARCHAR"},
		{Name: "artist_id", Type: "VARCHAR"},
		{Name: "session_id", Type: "SMALLINT"},
		{Name: "location", Type: "VARCHAR"},
		{Name: "user_agent", Type: "VARCHAR"},
	},
	PrimaryKey: "songplay_id",
	ForeignKeys: []ForeignKey{
		{Column: "user_id", RefTable: UsersDim, RefColumn: "user_id"},
		{Column: "song_id", RefTable: SongsDim, RefColumn: "song_id"},
		{Column: "artist_id", RefTable: ArtistsDim, RefColumn: "artist_id"},
		{Column: "start_time", RefTable: TimeDim, RefColumn: "start_time"},
	},
	DistKey: "user_id",
	SortKey: "start_time",
}

// Schema renders the warehouse tables for one dialect.
type Schema struct {
	dialect Dialect
}

// NewSchema creates a schema renderer for the given dialect.
func NewSchema(dialect Dialect) *Schema {
	if dialect == "" {
		dialect = DialectRedshift
	}
	return &Schema{dialect: dialect}
}

// Dialect returns the dialect the schema renders.
func (s *Schema) Dialect() Dialect {
	return s.dialect
}

// Tables returns all tables in creation order.
func (s *Schema) Tables() []Table {
	return []Table{
		eventsStaging,
		songsStaging,
		usersDim,
		songsDim,
		artistsDim,
		timeDim,
		songplaysFact,
	}
}

// Lookup returns the table with the given name.
func (s *Schema) Lookup(name string) (Table, bool) {
	for _, t := range s.Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// CreateOrder returns the create statements with every referenced table
// created before the tables that reference it.
func (s *Schema) CreateOrder() []Statement {
	tables := s.Tables()
	stmts := make([]Statement, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, Statement{
			Name: "create_" + t.Name,
			SQL:  s.CreateStatement(t),
		})
	}
	return stmts
}

// DropOrder returns the drop statements. Staging tables and the fact
// table go first so no dimension is dropped while still referenced.
func (s *Schema) DropOrder() []Statement {
	order := []Table{
		eventsStaging,
		songsStaging,
		songplaysFact,
		usersDim,
		songsDim,
		artistsDim,
		timeDim,
	}
	stmts := make([]Statement, 0, len(order))
	for _, t := range order {
		stmts = append(stmts, Statement{
			Name: "drop_" + t.Name,
			SQL:  s.DropStatement(t),
		})
	}
	return stmts
}

// DropStatement renders a conditional DROP TABLE.
func (s *Schema) DropStatement(t Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", t.Name)
}

// CreateStatement renders a conditional CREATE TABLE.
func (s *Schema) CreateStatement(t Table) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)

	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, c := range t.Columns {
		lines = append(lines, "    "+s.columnDefinition(c))
	}
	if t.PrimaryKey != "" {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", t.PrimaryKey))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Column, fk.RefTable, fk.RefColumn))
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n)")

	if s.dialect == DialectRedshift {
		if t.DistKey != "" {
			fmt.Fprintf(&b, " DISTKEY (%s)", t.DistKey)
		}
		if t.SortKey != "" {
			fmt.Fprintf(&b, " SORTKEY (%s)", t.SortKey)
		}
	}
	b.WriteString(";")

	return b.String()
}

func (s *Schema) columnDefinition(c Column) string {
	def := c.Name + " " + c.Type
	if c.Identity {
		switch s.dialect {
		case DialectPostgres:
			def += " GENERATED BY DEFAULT AS IDENTITY"
		default:
			def += " IDENTITY(1,1)"
		}
	}
	if c.NotNull {
		def += " NOT NULL"
	}
	return def
}
