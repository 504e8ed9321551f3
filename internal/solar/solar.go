// Package solar computes sunrise and sunset instants for a date and a pair
// of coordinates. Two interchangeable providers exist: a built-in closed-form
// algorithm ("noaa") and one backed by the go-sunrise library ("library").
package solar

import (
	"fmt"
	"strings"
	"time"
)

type EventKind string

const (
	Sunrise EventKind = "sunrise"
	Sunset  EventKind = "sunset"
)

// Times holds the computed instants in UTC. A zero instant means the event
// does not occur on that date (polar day or polar night); callers must check
// HasRise/HasSet before using the values.
type Times struct {
	Rise time.Time
	Set  time.Time
}

func (t Times) HasRise() bool { return !t.Rise.IsZero() }
func (t Times) HasSet() bool  { return !t.Set.IsZero() }

// Calculator is the solar time contract. Implementations are pure: the same
// inputs always produce the same outputs, no clock reads, no I/O.
type Calculator interface {
	// SunTimes returns sunrise/sunset UTC instants for the given calendar
	// date at (lat, lon) in decimal degrees. An error is returned only for
	// out-of-range inputs; degenerate polar dates yield zero instants.
	SunTimes(year int, month time.Month, day int, lat, lon float64) (Times, error)
}

// New selects a provider by name. An empty name means "noaa".
func New(provider string) (Calculator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "noaa":
		return NOAA{}, nil
	case "library", "go-sunrise":
		return Library{}, nil
	default:
		return nil, fmt.Errorf("solar: unknown provider %q", provider)
	}
}

func validateCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("solar: latitude %.4f out of range [-90,90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("solar: longitude %.4f out of range [-180,180]", lon)
	}
	return nil
}
