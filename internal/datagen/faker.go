//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package datagen generates synthetic staging data shaped like the event
// logs and song catalog the warehouse is loaded from.
package datagen

import (
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Faker provides fake data generation using gofakeit.
type Faker struct {
	faker *gofakeit.Faker
}

// NewFaker creates a new Faker with a random seed.
func NewFaker() *Faker {
	return &Faker{
		faker: gofakeit.New(uint64(time.Now().UnixNano())),
	}
}

// NewFakerWithSeed creates a new Faker with a specific seed for reproducibility.
func NewFakerWithSeed(seed uint64) *Faker {
	return &Faker{
		faker: gofakeit.New(seed),
	}
}

// Int generates a random integer between min and max (inclusive).
func (f *Faker) Int(min, max int) int {
	return f.faker.IntRange(min, max)
}

// Float64 generates a random float64 between min and max.
func (f *Faker) Float64(min, max float64) float64 {
	return f.faker.Float64Range(min, max)
}

// Chance returns true with probability p.
func (f *Faker) Chance(p float64) bool {
	return f.Float64(0, 1) < p
}

// FirstName generates a random first name.
func (f *Faker) FirstName() string {
	return f.faker.FirstName()
}

// LastName generates a random last name.
func (f *Faker) LastName() string {
	return f.faker.LastName()
}

// Gender returns M or F, the coding used by the event logs.
func (f *Faker) Gender() string {
	if f.faker.Gender() == "female" {
		return "F"
	}
	return "M"
}

// Location generates a "City, ST" location.
func (f *Faker) Location() string {
	return f.faker.City() + ", " + f.faker.StateAbr()
}

// UserAgent generates a browser user agent string.
func (f *Faker) UserAgent() string {
	return f.faker.UserAgent()
}

// ArtistName generates a band or artist name.
func (f *Faker) ArtistName() string {
	if f.faker.Bool() {
		return f.faker.Name()
	}
	return "The " + title(f.faker.Word()) + "s"
}

// SongTitle generates a short title.
func (f *Faker) SongTitle() string {
	words := strings.Fields(strings.TrimSuffix(f.faker.Sentence(f.Int(1, 4)), "."))
	for i, w := range words {
		words[i] = title(w)
	}
	return strings.Join(words, " ")
}

// CatalogID generates an identifier in the catalog style: a two-letter
// prefix followed by 16 uppercase alphanumerics.
func (f *Faker) CatalogID(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for i := 0; i < 16; i++ {
		b.WriteByte(idCharset[f.Int(0, len(idCharset)-1)])
	}
	return b.String()
}

// Duration generates a track length in seconds with five decimals.
func (f *Faker) Duration() float64 {
	return math.Round(f.Float64(30, 600)*1e5) / 1e5
}

// Choose returns a random element from the given slice.
func Choose[T any](f *Faker, items []T) T {
	if len(items) == 0 {
		var zero T
		return zero
	}
	return items[f.Int(0, len(items)-1)]
}

// ChooseWeighted returns a random element based on weights.
func ChooseWeighted[T any](f *Faker, items []T, weights []int) T {
	if len(items) == 0 || len(weights) == 0 {
		var zero T
		return zero
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	r := f.Int(1, totalWeight)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return items[i]
		}
	}

	return items[len(items)-1]
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
