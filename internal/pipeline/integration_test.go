//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration

// End-to-end tests of provision, load and verify against PostgreSQL.
// Run with: go test -tags=integration ./internal/pipeline/...
// Uses the server named by PGEDGE_TEST_CONN, or a container when unset.

package pipeline_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dwh/internal/datagen"
	"github.com/pgEdge/pgedge-dwh/internal/db"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/testutil"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// exampleTs is a known event timestamp: Monday 2018-11-12 02:37:38.796 UTC.
const exampleTs = int64(1541990258796)

// Hand-written events are placed after exampleTs, well past the last
// generated event, so each lands in its own second.
const (
	downgradeTs  = exampleTs + 60_000
	playTs       = exampleTs + 120_000
	staleLevelTs = exampleTs + 180_000
	upgradeTs    = exampleTs + 240_000
	tiedLevelTs  = exampleTs + 300_000
	playerID     = int16(901)
	staleLevelID = int16(902)
	tiedLevelID  = int16(903)
	unknownSong  = "Not In The Catalog"
)

// loggedIn builds an event of user id. A non-nil song fills the song
// fields exactly as the catalog has them; otherwise a song missing from
// the catalog is used.
func loggedIn(id int16, page, level string, ts int64, song *datagen.Song) datagen.Event {
	first, last, gender := "Test", "User", "F"
	title, artist, length := unknownSong, unknownSong, 123.45
	if song != nil {
		title, artist, length = song.Title, song.ArtistName, song.Duration
	}
	return datagen.Event{
		Artist:    &artist,
		Auth:      "Logged In",
		FirstName: &first,
		Gender:    &gender,
		LastName:  &last,
		Length:    &length,
		Level:     level,
		Method:    "PUT",
		Page:      page,
		SessionID: 32001,
		Song:      &title,
		Status:    200,
		Ts:        ts,
		UserID:    &id,
	}
}

type fixture struct {
	conn   *sql.DB
	pool   *pgxpool.Pool
	runner *pipeline.Runner
	schema *warehouse.Schema
	data   *datagen.Staging
}

// setup provisions an empty warehouse and fills staging with generated data
// plus hand-written events: a logged-out event at exampleTs, a non-play
// event that names a catalog song, a play of the same song, a user whose
// newest event is not a play, and a user with two plays in the same
// millisecond at different levels.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	cluster := testutil.Cluster(t)

	conn, err := db.Connect(ctx, cluster)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	pool, err := db.ConnectPool(ctx, cluster)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &fixture{
		conn:   conn,
		pool:   pool,
		runner: pipeline.NewRunner(conn, zerolog.Nop()),
		schema: warehouse.NewSchema(warehouse.DialectPostgres),
	}

	_, err = pipeline.NewProvisioner(f.runner, f.schema).Run(ctx)
	require.NoError(t, err)

	cfg := datagen.DefaultStagingConfig()
	cfg.Events = 1500
	f.data, err = datagen.GenerateStaging(datagen.NewFakerWithSeed(2018), cfg)
	require.NoError(t, err)
	f.data.Events = append(f.data.Events, datagen.Event{
		Auth:      "Logged Out",
		Level:     "free",
		Method:    "GET",
		Page:      "Home",
		SessionID: 32000,
		Status:    200,
		Ts:        exampleTs,
	})

	song := &f.data.Songs[0]
	f.data.Events = append(f.data.Events,
		loggedIn(playerID, "Downgrade", "paid", downgradeTs, song),
		loggedIn(playerID, datagen.PageNextSong, "free", playTs, song),
		loggedIn(staleLevelID, datagen.PageNextSong, "free", staleLevelTs, nil),
		loggedIn(staleLevelID, "Upgrade", "paid", upgradeTs, song),
		loggedIn(tiedLevelID, datagen.PageNextSong, "free", tiedLevelTs, nil),
		loggedIn(tiedLevelID, datagen.PageNextSong, "paid", tiedLevelTs, nil),
	)

	_, err = f.data.CopyTo(ctx, pool)
	require.NoError(t, err)
	return f
}

func (f *fixture) load(t *testing.T, opts warehouse.InsertOptions) (*pipeline.Report, error) {
	t.Helper()
	loader := pipeline.NewLoader(f.runner, warehouse.DialectPostgres, pipeline.LoaderConfig{
		Insert:   opts,
		SkipCopy: true,
	})
	return loader.Run(context.Background())
}

func (f *fixture) count(t *testing.T, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

// expected derives the warehouse contents from the generated staging rows.
type expected struct {
	plays       int
	latestLevel map[int16]string
}

func (f *fixture) expected() expected {
	type key struct {
		title, artist string
		duration      float64
	}
	catalog := make(map[key]bool)
	for _, s := range f.data.Songs {
		catalog[key{s.Title, s.ArtistName, s.Duration}] = true
	}

	exp := expected{latestLevel: make(map[int16]string)}
	latestTs := make(map[int16]int64)
	for _, e := range f.data.Events {
		if e.Page != datagen.PageNextSong || e.UserID == nil {
			continue
		}
		// Ties on ts go to the higher level.
		last, seen := latestTs[*e.UserID]
		if !seen || e.Ts > last || (e.Ts == last && e.Level > exp.latestLevel[*e.UserID]) {
			latestTs[*e.UserID] = e.Ts
			exp.latestLevel[*e.UserID] = e.Level
		}
		if catalog[key{*e.Song, *e.Artist, *e.Length}] {
			exp.plays++
		}
	}
	return exp
}

func TestLoadBuildsStarSchema(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	exp := f.expected()

	report, err := f.load(t, warehouse.InsertOptions{})
	require.NoError(t, err)
	require.Len(t, report.Steps, 5)

	t.Run("referential integrity", func(t *testing.T) {
		verify, err := pipeline.NewVerifier(f.conn, f.schema, zerolog.Nop()).Run(ctx)
		require.NoError(t, err)
		for _, c := range verify.Checks {
			assert.True(t, c.Passed(), "%s: %d violations", c.Check.Name, c.Violations)
		}
		assert.Empty(t, verify.TimeMismatches)
		assert.True(t, verify.OK())
	})

	t.Run("songs and artists", func(t *testing.T) {
		assert.Equal(t, int64(len(f.data.Songs)), f.count(t, "SELECT COUNT(*) FROM songs_dim"))
		assert.Equal(t,
			f.count(t, "SELECT COUNT(DISTINCT artist_id) FROM songs_stg"),
			f.count(t, "SELECT COUNT(*) FROM artists_dim"))
	})

	t.Run("latest level per user", func(t *testing.T) {
		rows, err := f.pool.Query(ctx, "SELECT user_id, level FROM users_dim")
		require.NoError(t, err)
		defer rows.Close()

		got := make(map[int16]string)
		for rows.Next() {
			var id int16
			var level string
			require.NoError(t, rows.Scan(&id, &level))
			got[id] = level
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, exp.latestLevel, got)

		// Only plays decide the level, and a tie yields a single row.
		assert.Equal(t, "free", got[staleLevelID])
		assert.Equal(t, "paid", got[tiedLevelID])
		assert.Equal(t, int64(1), f.count(t, "SELECT COUNT(*) FROM users_dim WHERE user_id = $1", tiedLevelID))
	})

	t.Run("time decomposition", func(t *testing.T) {
		want := warehouse.TimeParts(exampleTs)
		var got warehouse.TimeRow
		err := f.pool.QueryRow(ctx,
			"SELECT start_time, hour, day, week, month, year, weekday FROM time_dim WHERE start_time = $1",
			want.StartTime,
		).Scan(&got.StartTime, &got.Hour, &got.Day, &got.Week, &got.Month, &got.Year, &got.Weekday)
		require.NoError(t, err)

		assert.True(t, want.StartTime.Equal(got.StartTime))
		assert.Equal(t, 2, got.Hour)
		assert.Equal(t, int(time.Monday), got.Weekday)
		assert.Equal(t, want.Week, got.Week)
		assert.Equal(t, want.Day, got.Day)
		assert.Equal(t, want.Month, got.Month)
		assert.Equal(t, want.Year, got.Year)
	})

	t.Run("only resolved NextSong plays", func(t *testing.T) {
		assert.Equal(t, int64(exp.plays), f.count(t, "SELECT COUNT(*) FROM songplays_fact"))
		assert.Zero(t, f.count(t,
			"SELECT COUNT(*) FROM songplays_fact WHERE song_id IS NULL OR artist_id IS NULL"))
		assert.Less(t, exp.plays, len(f.data.Events))
	})

	t.Run("non-play events with a resolvable song", func(t *testing.T) {
		query := "SELECT COUNT(*) FROM songplays_fact WHERE start_time = $1 AND user_id = $2"
		assert.Zero(t, f.count(t, query, warehouse.TimeParts(downgradeTs).StartTime, playerID))
		assert.Zero(t, f.count(t, query, warehouse.TimeParts(upgradeTs).StartTime, staleLevelID))
		// The same song played as NextSong does resolve.
		assert.Equal(t, int64(1), f.count(t, query, warehouse.TimeParts(playTs).StartTime, playerID))
	})
}

func TestReloadKeepsDimensionsAndAppendsFacts(t *testing.T) {
	f := setup(t)
	opts := warehouse.InsertOptions{CorrectArtistDedup: true}

	_, err := f.load(t, opts)
	require.NoError(t, err)

	tables := []string{warehouse.UsersDim, warehouse.SongsDim, warehouse.ArtistsDim, warehouse.TimeDim}
	before := make(map[string]int64)
	for _, tbl := range tables {
		before[tbl] = f.count(t, warehouse.RowCountSQL(tbl))
	}
	facts := f.count(t, warehouse.RowCountSQL(warehouse.SongplaysFact))
	require.Positive(t, facts)

	report, err := f.load(t, opts)
	require.NoError(t, err)
	for _, s := range report.Steps[:4] {
		assert.Zero(t, s.RowsAffected, s.Name)
	}

	for _, tbl := range tables {
		assert.Equal(t, before[tbl], f.count(t, warehouse.RowCountSQL(tbl)), tbl)
	}
	assert.Equal(t, 2*facts, f.count(t, warehouse.RowCountSQL(warehouse.SongplaysFact)))
}

func TestReloadWithHistoricalArtistExclusionFails(t *testing.T) {
	f := setup(t)

	_, err := f.load(t, warehouse.InsertOptions{})
	require.NoError(t, err)

	// artist_name never matches an artist_id, so every artist is inserted again.
	report, err := f.load(t, warehouse.InsertOptions{})
	require.Error(t, err)

	var stepErr *pipeline.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "insert_"+warehouse.ArtistsDim, stepErr.Step)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "23505", pgErr.Code)

	// users_dim and songs_dim ran before the failure.
	assert.Len(t, report.Steps, 2)
}
