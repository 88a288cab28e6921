//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package analytics holds the song play reports run against the loaded
// star schema.
package analytics

import (
	"fmt"
	"sort"
	"sync"
)

// Query is a named report over the dimension and fact tables. The SQL is
// valid for both Redshift and PostgreSQL.
type Query struct {
	Name        string
	Description string
	SQL         string
}

var (
	registry = make(map[string]Query)
	mu       sync.RWMutex
)

// Register adds a query to the registry.
func Register(q Query) {
	mu.Lock()
	defer mu.Unlock()
	registry[q.Name] = q
}

// Get retrieves a query by name.
func Get(name string) (Query, error) {
	mu.RLock()
	defer mu.RUnlock()

	q, ok := registry[name]
	if !ok {
		return Query{}, fmt.Errorf("unknown query: %s", name)
	}
	return q, nil
}

// List returns all registered query names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered queries sorted by name.
func All() []Query {
	names := List()
	queries := make([]Query, 0, len(names))
	for _, name := range names {
		q, _ := Get(name)
		queries = append(queries, q)
	}
	return queries
}

func init() {
	Register(Query{
		Name:        "top_songs",
		Description: "Most played songs",
		SQL: `SELECT s.title, a.artist_name, COUNT(*) AS plays
FROM songplays_fact f
JOIN songs_dim s ON s.song_id = f.song_id
JOIN artists_dim a ON a.artist_id = f.artist_id
GROUP BY s.title, a.artist_name
ORDER BY plays DESC, s.title
LIMIT 10`,
	})

	Register(Query{
		Name:        "plays_by_hour",
		Description: "Song plays per hour of day",
		SQL: `SELECT t.hour, COUNT(*) AS plays
FROM songplays_fact f
JOIN time_dim t ON t.start_time = f.start_time
GROUP BY t.hour
ORDER BY t.hour`,
	})

	Register(Query{
		Name:        "plays_by_weekday",
		Description: "Song plays per day of week (0 = Sunday)",
		SQL: `SELECT t.weekday, COUNT(*) AS plays
FROM songplays_fact f
JOIN time_dim t ON t.start_time = f.start_time
GROUP BY t.weekday
ORDER BY t.weekday`,
	})

	Register(Query{
		Name:        "plays_by_level",
		Description: "Song plays of free and paid users",
		SQL: `SELECT f.level, COUNT(*) AS plays, COUNT(DISTINCT f.user_id) AS users
FROM songplays_fact f
GROUP BY f.level
ORDER BY f.level`,
	})

	Register(Query{
		Name:        "top_users",
		Description: "Users with the most song plays",
		SQL: `SELECT u.user_id, u.first_name, u.last_name, u.level, COUNT(*) AS plays
FROM songplays_fact f
JOIN users_dim u ON u.user_id = f.user_id
GROUP BY u.user_id, u.first_name, u.last_name, u.level
ORDER BY plays DESC, u.user_id
LIMIT 10`,
	})
}
