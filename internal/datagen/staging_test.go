package datagen

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

func generate(t *testing.T, cfg StagingConfig) *Staging {
	t.Helper()
	data, err := GenerateStaging(NewFakerWithSeed(42), cfg)
	require.NoError(t, err)
	return data
}

func TestGenerateStagingShape(t *testing.T) {
	cfg := DefaultStagingConfig()
	data := generate(t, cfg)

	require.Len(t, data.Songs, cfg.Songs)
	require.Len(t, data.Events, cfg.Events)

	catalog := make(map[string]Song)
	for _, s := range data.Songs {
		catalog[s.Title+"|"+s.ArtistName] = s
	}

	var plays, resolved, loggedOut, other int
	prev := int64(0)
	for _, e := range data.Events {
		// Each event lands in a later second than the previous one.
		assert.Greater(t, e.Ts/1000, prev/1000)
		prev = e.Ts

		switch {
		case e.UserID == nil:
			loggedOut++
			assert.NotEqual(t, PageNextSong, e.Page)
			assert.Nil(t, e.Song)
		case e.Page == PageNextSong:
			plays++
			require.NotNil(t, e.Song)
			require.NotNil(t, e.Artist)
			require.NotNil(t, e.Length)
			if s, ok := catalog[*e.Song+"|"+*e.Artist]; ok && s.Duration == *e.Length {
				resolved++
			}
		default:
			other++
			assert.Nil(t, e.Song)
		}
	}

	assert.Positive(t, plays)
	assert.Positive(t, resolved)
	assert.Less(t, resolved, plays, "some plays reference songs outside the catalog")
	assert.Positive(t, loggedOut)
	assert.Positive(t, other)
}

func TestGenerateStagingDeterministic(t *testing.T) {
	cfg := DefaultStagingConfig()
	cfg.Events = 200

	a := generate(t, cfg)
	b := generate(t, cfg)
	assert.Equal(t, a, b)
}

func TestGenerateStagingArtistsConsistent(t *testing.T) {
	data := generate(t, DefaultStagingConfig())

	byID := make(map[string]Song)
	for _, s := range data.Songs {
		if first, ok := byID[s.ArtistID]; ok {
			assert.Equal(t, first.ArtistName, s.ArtistName)
			assert.Equal(t, first.ArtistLocation, s.ArtistLocation)
			assert.Equal(t, first.ArtistLatitude, s.ArtistLatitude)
		} else {
			byID[s.ArtistID] = s
		}
	}
}

func TestStagingConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StagingConfig)
	}{
		{"no users", func(c *StagingConfig) { c.Users = 0 }},
		{"too many users", func(c *StagingConfig) { c.Users = 40000 }},
		{"no artists", func(c *StagingConfig) { c.Artists = 0 }},
		{"no songs", func(c *StagingConfig) { c.Songs = 0 }},
		{"too many events", func(c *StagingConfig) { c.Events = MaxEvents + 1 }},
		{"bad ratio", func(c *StagingConfig) { c.UnknownSongRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultStagingConfig()
			tt.mutate(&cfg)
			_, err := GenerateStaging(NewFakerWithSeed(1), cfg)
			assert.Error(t, err)
		})
	}
}

type copyCall struct {
	table   pgx.Identifier
	columns []string
	rows    int
	widths  []int
}

type fakeCopier struct {
	calls []copyCall
	err   error
}

func (f *fakeCopier) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	call := copyCall{table: table, columns: columns}
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		call.rows++
		call.widths = append(call.widths, len(values))
	}
	f.calls = append(f.calls, call)
	return int64(call.rows), nil
}

func TestCopyTo(t *testing.T) {
	cfg := DefaultStagingConfig()
	cfg.Events = 100
	data := generate(t, cfg)

	dst := &fakeCopier{}
	result, err := data.CopyTo(context.Background(), dst)
	require.NoError(t, err)

	assert.Equal(t, int64(cfg.Songs), result.Songs)
	assert.Equal(t, int64(100), result.Events)

	require.Len(t, dst.calls, 2)
	assert.Equal(t, pgx.Identifier{warehouse.SongsStaging}, dst.calls[0].table)
	assert.Equal(t, pgx.Identifier{warehouse.EventsStaging}, dst.calls[1].table)

	// Column names are folded to lower case like the unquoted DDL.
	assert.Contains(t, dst.calls[1].columns, "firstname")
	assert.Contains(t, dst.calls[1].columns, "userid")

	for _, call := range dst.calls {
		for _, w := range call.widths {
			require.Equal(t, len(call.columns), w)
		}
	}
}

func TestCopyToError(t *testing.T) {
	data := generate(t, DefaultStagingConfig())
	boom := errors.New("copy failed")

	_, err := data.CopyTo(context.Background(), &fakeCopier{err: boom})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), warehouse.SongsStaging)
}

func TestStagingColumnsRejectsDimension(t *testing.T) {
	_, err := stagingColumns(warehouse.UsersDim)
	assert.Error(t, err)
}
