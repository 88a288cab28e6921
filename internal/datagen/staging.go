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
	"fmt"
	"strconv"
	"time"
)

// Song is one songs_stg row: a catalog entry with its artist denormalised.
type Song struct {
	NumSongs        int16
	ArtistID        string
	ArtistLatitude  *float64
	ArtistLongitude *float64
	ArtistLocation  string
	ArtistName      string
	SongID          string
	Title           string
	Duration        float64
	Year            int16
}

// Event is one events_stg row. Pointer fields are NULL for events that
// carry no song or no logged-in user.
type Event struct {
	Artist        *string
	Auth          string
	FirstName     *string
	Gender        *string
	ItemInSession int16
	LastName      *string
	Length        *float64
	Level         string
	Location      *string
	Method        string
	Page          string
	Registration  *string
	SessionID     int16
	Song          *string
	Status        int16
	Ts            int64
	UserAgent     *string
	UserID        *int16
}

// PageNextSong is the page of a song play event.
const PageNextSong = "NextSong"

// MaxEvents bounds the number of generated events.
const MaxEvents = 30000

// StagingConfig controls the size and shape of generated staging data.
type StagingConfig struct {
	Users   int
	Artists int
	Songs   int
	Events  int

	// Start is the timestamp of the first event.
	Start time.Time

	// UnknownSongRatio is the share of plays of songs missing from the
	// catalog. Those plays cannot be resolved to a song and artist.
	UnknownSongRatio float64

	// LoggedOutRatio is the share of sessions without a user.
	LoggedOutRatio float64
}

// DefaultStagingConfig returns a small data set covering November 2018,
// the month covered by the published event logs.
func DefaultStagingConfig() StagingConfig {
	return StagingConfig{
		Users:            50,
		Artists:          40,
		Songs:            120,
		Events:           2000,
		Start:            time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC),
		UnknownSongRatio: 0.15,
		LoggedOutRatio:   0.05,
	}
}

// Validate checks the configuration.
func (c StagingConfig) Validate() error {
	if c.Users < 1 || c.Users > 32767 {
		return fmt.Errorf("users must be between 1 and 32767")
	}
	if c.Artists < 1 {
		return fmt.Errorf("artists must be at least 1")
	}
	if c.Songs < 1 {
		return fmt.Errorf("songs must be at least 1")
	}
	// sessionId is a SMALLINT column and every session has at least one event.
	if c.Events < 0 || c.Events > MaxEvents {
		return fmt.Errorf("events must be between 0 and %d", MaxEvents)
	}
	if c.UnknownSongRatio < 0 || c.UnknownSongRatio > 1 || c.LoggedOutRatio < 0 || c.LoggedOutRatio > 1 {
		return fmt.Errorf("ratios must be between 0 and 1")
	}
	return nil
}

// Staging is a generated pair of staging data sets.
type Staging struct {
	Songs  []Song
	Events []Event
}

type artist struct {
	id        string
	name      string
	location  string
	latitude  *float64
	longitude *float64
}

type user struct {
	id           int16
	firstName    string
	lastName     string
	gender       string
	location     string
	userAgent    string
	registration string
	level        string
}

var (
	otherPages       = []string{"Home", "Logout", "Settings", "Help", "About", "Upgrade", "Downgrade", "Save Settings"}
	otherPageWeights = []int{40, 15, 10, 10, 5, 8, 4, 8}
)

// GenerateStaging produces catalog and event data. Event timestamps are
// strictly increasing with at least one second between events.
func GenerateStaging(f *Faker, cfg StagingConfig) (*Staging, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	artists := make([]artist, cfg.Artists)
	for i := range artists {
		a := artist{id: f.CatalogID("AR"), name: f.ArtistName()}
		if f.Chance(0.6) {
			a.location = f.Location()
		}
		if f.Chance(0.5) {
			lat, lon := f.Float64(-60, 70), f.Float64(-160, 160)
			a.latitude, a.longitude = &lat, &lon
		}
		artists[i] = a
	}

	songs := make([]Song, cfg.Songs)
	for i := range songs {
		a := Choose(f, artists)
		s := Song{
			NumSongs:        1,
			ArtistID:        a.id,
			ArtistLatitude:  a.latitude,
			ArtistLongitude: a.longitude,
			ArtistLocation:  a.location,
			ArtistName:      a.name,
			SongID:          f.CatalogID("SO"),
			Title:           f.SongTitle(),
			Duration:        f.Duration(),
		}
		if f.Chance(0.6) {
			s.Year = int16(f.Int(1960, 2018))
		}
		songs[i] = s
	}

	users := make([]user, cfg.Users)
	for i := range users {
		users[i] = user{
			id:           int16(i + 1),
			firstName:    f.FirstName(),
			lastName:     f.LastName(),
			gender:       f.Gender(),
			location:     f.Location(),
			userAgent:    f.UserAgent(),
			registration: strconv.FormatInt(cfg.Start.AddDate(0, -f.Int(1, 24), 0).UnixMilli(), 10),
			level:        Choose(f, []string{"free", "paid"}),
		}
	}

	events := make([]Event, 0, cfg.Events)
	ts := cfg.Start.UnixMilli()
	var sessionID int16

	for len(events) < cfg.Events {
		sessionID++
		length := f.Int(1, 12)

		var u *user
		if !f.Chance(cfg.LoggedOutRatio) {
			u = &users[f.Int(0, len(users)-1)]
			// Users occasionally change subscription between sessions.
			if f.Chance(0.05) {
				if u.level == "free" {
					u.level = "paid"
				} else {
					u.level = "free"
				}
			}
		}

		for item := 0; item < length && len(events) < cfg.Events; item++ {
			ts += int64(f.Int(1, 300))*1000 + int64(f.Int(0, 999))
			e := Event{
				ItemInSession: int16(item),
				SessionID:     sessionID,
				Ts:            ts,
				Status:        200,
				Method:        "GET",
			}

			if u == nil {
				e.Auth = "Logged Out"
				e.Level = "free"
				e.Page = Choose(f, []string{"Home", "Login", "About", "Help"})
				if e.Page == "Login" {
					e.Method = "PUT"
					e.Status = 307
				}
				events = append(events, e)
				continue
			}

			e.Auth = "Logged In"
			e.Level = u.level
			e.FirstName = &u.firstName
			e.LastName = &u.lastName
			e.Gender = &u.gender
			e.Location = &u.location
			e.UserAgent = &u.userAgent
			e.Registration = &u.registration
			uid := u.id
			e.UserID = &uid

			if f.Chance(0.8) {
				e.Page = PageNextSong
				e.Method = "PUT"
				if f.Chance(cfg.UnknownSongRatio) {
					artistName, title, dur := f.ArtistName(), f.SongTitle(), f.Duration()
					e.Artist, e.Song, e.Length = &artistName, &title, &dur
				} else {
					s := &songs[f.Int(0, len(songs)-1)]
					artistName, title, dur := s.ArtistName, s.Title, s.Duration
					e.Artist, e.Song, e.Length = &artistName, &title, &dur
				}
			} else {
				e.Page = ChooseWeighted(f, otherPages, otherPageWeights)
				if e.Page == "Logout" {
					e.Method = "PUT"
					e.Status = 307
				}
			}
			events = append(events, e)
		}
	}

	return &Staging{Songs: songs, Events: events}, nil
}

// values returns the row in events_stg column order.
func (e Event) values() []any {
	return []any{
		e.Artist, e.Auth, e.FirstName, e.Gender, e.ItemInSession, e.LastName,
		e.Length, e.Level, e.Location, e.Method, e.Page, e.Registration,
		e.SessionID, e.Song, e.Status, e.Ts, e.UserAgent, e.UserID,
	}
}

// values returns the row in songs_stg column order.
func (s Song) values() []any {
	return []any{
		s.NumSongs, s.ArtistID, s.ArtistLatitude, s.ArtistLongitude,
		s.ArtistLocation, s.ArtistName, s.SongID, s.Title, s.Duration, s.Year,
	}
}
