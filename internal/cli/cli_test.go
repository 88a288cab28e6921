package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dwh/internal/analytics"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/sources"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

func init() {
	color.NoColor = true
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgedge-dwh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTablesCommandDDL(t *testing.T) {
	path := writeConfig(t, "schema:\n  dialect: redshift\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"tables", "--ddl", "--config", path, "--dialect", "postgres"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		tablesDDL = false
		dialect = ""
	})

	require.NoError(t, Execute())

	ddl := out.String()
	assert.Equal(t, 7, strings.Count(ddl, "CREATE TABLE IF NOT EXISTS"))
	// The flag overrides the file.
	assert.Contains(t, ddl, "GENERATED BY DEFAULT AS IDENTITY")
	assert.NotContains(t, ddl, "DISTKEY")
	assert.Less(t, strings.Index(ddl, "time_dim"), strings.Index(ddl, "songplays_fact"))
}

func TestPrintTables(t *testing.T) {
	var out bytes.Buffer
	printTables(&out, warehouse.NewSchema(warehouse.DialectRedshift))

	text := out.String()
	for _, name := range []string{"events_stg", "songs_stg", "users_dim", "songs_dim", "artists_dim", "time_dim", "songplays_fact"} {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, "DISTKEY user_id SORTKEY start_time")
	assert.Contains(t, text, "artist_id -> artists_dim")
}

func TestPrintStepReport(t *testing.T) {
	var out bytes.Buffer
	printStepReport(&out, &pipeline.Report{Steps: []pipeline.StepResult{
		{Name: "insert_users_dim", RowsAffected: 96, Duration: 1500 * time.Millisecond},
		{Name: "drop_songs_stg", Skipped: true},
	}})

	text := out.String()
	assert.Contains(t, text, "insert_users_dim")
	assert.Contains(t, text, "96")
	assert.Contains(t, text, "1.5s")
	assert.Contains(t, text, "skipped")

	out.Reset()
	printStepReport(&out, nil)
	assert.Empty(t, out.String())
}

func TestPrintVerifyReport(t *testing.T) {
	report := &pipeline.VerifyReport{
		RowCounts: []pipeline.TableCount{{Table: "users_dim", Role: warehouse.RoleDimension, Rows: 96}},
		Checks: []pipeline.CheckResult{
			{Check: warehouse.Check{Name: "orphan_user_id"}, Violations: 0},
			{Check: warehouse.Check{Name: "duplicate_artist_id_in_artists_dim"}, Violations: 3},
		},
		TimeSampled: 10,
	}

	var out bytes.Buffer
	printVerifyReport(&out, report)

	text := out.String()
	assert.Contains(t, text, "users_dim")
	assert.Contains(t, text, "PASS")
	assert.Contains(t, text, "FAIL")
	assert.Contains(t, text, "time_parts (10 sampled)")
}

func TestPrintSourcesReport(t *testing.T) {
	report := &sources.Report{Results: []sources.Result{
		{Name: "log_data", Kind: sources.KindPrefix, Location: warehouse.S3Location{Bucket: "udacity-dend", Key: "log_data"}},
		{Name: "song_data", Kind: sources.KindPrefix, Location: warehouse.S3Location{Bucket: "udacity-dend", Key: "song_data"}, Err: errors.New("no objects under prefix")},
	}}

	var out bytes.Buffer
	printSourcesReport(&out, report)

	text := out.String()
	assert.Contains(t, text, "s3://udacity-dend/log_data")
	assert.Contains(t, text, "FAIL no objects under prefix")
}

func TestQueryCommandList(t *testing.T) {
	path := writeConfig(t, "log_level: error\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"query", "--list", "--config", path})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		queryList = false
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "top_songs")
	assert.Contains(t, out.String(), "plays_by_hour")
}

func TestSeedCommandRequiresPostgres(t *testing.T) {
	path := writeConfig(t, `log_level: error
cluster:
  host: localhost
  dbname: dwh
  user: dwhuser
`)

	rootCmd.SetArgs([]string{"seed", "--config", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres dialect")
}

func TestPrintQueryResults(t *testing.T) {
	q, err := analytics.Get("plays_by_level")
	require.NoError(t, err)

	var out bytes.Buffer
	printQueryResults(&out, &analytics.Summary{
		Results: []analytics.Result{{
			Query:    q,
			Columns:  []string{"level", "plays", "users"},
			Rows:     [][]string{{"free", "5", "3"}, {"paid", "18", "7"}},
			Duration: 3 * time.Millisecond,
		}},
	})

	text := out.String()
	assert.Contains(t, text, "plays_by_level (3ms)")
	assert.Contains(t, text, "paid")
	assert.Contains(t, text, "18")
}
