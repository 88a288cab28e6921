package datagen

import (
	"math"
	"regexp"
	"testing"
)

func TestNewFakerWithSeed(t *testing.T) {
	seed := uint64(12345)
	f1 := NewFakerWithSeed(seed)
	f2 := NewFakerWithSeed(seed)

	// Same seed should produce same sequence
	for i := 0; i < 10; i++ {
		if v1, v2 := f1.CatalogID("SO"), f2.CatalogID("SO"); v1 != v2 {
			t.Errorf("Same seed produced different values: %s != %s", v1, v2)
		}
	}
}

func TestFakerCatalogID(t *testing.T) {
	f := NewFaker()
	pattern := regexp.MustCompile(`^AR[A-Z0-9]{16}$`)
	for i := 0; i < 20; i++ {
		if id := f.CatalogID("AR"); !pattern.MatchString(id) {
			t.Errorf("CatalogID returned %q", id)
		}
	}
}

func TestFakerGender(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 20; i++ {
		if g := f.Gender(); g != "M" && g != "F" {
			t.Errorf("Gender returned %q", g)
		}
	}
}

func TestFakerDuration(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		d := f.Duration()
		if d < 30 || d > 600 {
			t.Errorf("Duration out of range: %f", d)
		}
		if scaled := d * 1e5; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
			t.Errorf("Duration has more than five decimals: %v", d)
		}
	}
}

func TestFakerNonEmpty(t *testing.T) {
	f := NewFaker()
	values := map[string]string{
		"FirstName":  f.FirstName(),
		"LastName":   f.LastName(),
		"Location":   f.Location(),
		"UserAgent":  f.UserAgent(),
		"ArtistName": f.ArtistName(),
		"SongTitle":  f.SongTitle(),
	}
	for name, v := range values {
		if v == "" {
			t.Errorf("%s returned empty string", name)
		}
	}
}

func TestChance(t *testing.T) {
	f := NewFaker()
	for i := 0; i < 100; i++ {
		if f.Chance(0) {
			t.Fatal("Chance(0) returned true")
		}
		if !f.Chance(1.01) {
			t.Fatal("Chance above 1 returned false")
		}
	}
}

func TestChoose(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}
	for i := 0; i < 100; i++ {
		chosen := Choose(f, items)
		if chosen != "a" && chosen != "b" && chosen != "c" {
			t.Errorf("Choose returned unexpected value: %s", chosen)
		}
	}

	var empty []int
	if got := Choose(f, empty); got != 0 {
		t.Errorf("Choose on empty slice should return zero value, got: %d", got)
	}
}

func TestChooseWeighted(t *testing.T) {
	f := NewFaker()
	items := []string{"a", "b", "c"}
	weights := []int{1, 2, 7} // c should be chosen ~70% of the time

	counts := make(map[string]int)
	iterations := 1000

	for i := 0; i < iterations; i++ {
		chosen := ChooseWeighted(f, items, weights)
		counts[chosen]++
	}

	// c should be most common
	if counts["c"] < counts["a"] || counts["c"] < counts["b"] {
		t.Errorf("Weighted choice distribution unexpected: %v", counts)
	}
}

func TestChooseWeightedEmpty(t *testing.T) {
	f := NewFaker()
	var items []string
	var weights []int

	chosen := ChooseWeighted(f, items, weights)
	if chosen != "" {
		t.Errorf("ChooseWeighted on empty slices should return zero value, got: %s", chosen)
	}
}
