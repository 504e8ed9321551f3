// Package geo holds the bot's single shared location and resolves timezone
// identifiers from coordinates.
package geo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zsefvlol/timezonemapper"
)

// ErrNoLocation is returned by location-dependent operations before the
// first successful /setlocation.
var ErrNoLocation = errors.New("geo: no location configured")

// Location is the process-wide observation point. Timezone is an IANA
// identifier resolved from the coordinates.
type Location struct {
	Lat      float64
	Lon      float64
	Timezone string
}

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("geo: latitude %.4f out of range [-90,90]", l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("geo: longitude %.4f out of range [-180,180]", l.Lon)
	}
	if l.Timezone == "" {
		return errors.New("geo: empty timezone identifier")
	}
	return nil
}

// TZ loads the location's IANA zone.
func (l Location) TZ() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f (%s)", l.Lat, l.Lon, l.Timezone)
}

// Resolve builds a Location from coordinates, mapping them to an IANA
// timezone. Coordinates that hit no zone polygon (open ocean) fall back to UTC.
func Resolve(lat, lon float64) (Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("geo: coordinates %.4f,%.4f out of range", lat, lon)
	}
	tz := timezonemapper.LatLngToTimezoneString(lat, lon)
	if tz == "" {
		tz = "UTC"
	}
	loc := Location{Lat: lat, Lon: lon, Timezone: tz}
	if _, err := loc.TZ(); err != nil {
		loc.Timezone = "UTC"
	}
	return loc, nil
}

// Holder is the owned, mutable singleton. All writers go through Set; readers
// get a copy so there is no shared mutable state outside this type.
type Holder struct {
	mu  sync.RWMutex
	loc *Location
}

func NewHolder() *Holder { return &Holder{} }

// Get returns the current location and whether one has been configured.
func (h *Holder) Get() (Location, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.loc == nil {
		return Location{}, false
	}
	return *h.loc, true
}

// Set overwrites the singleton. Returns an error for invalid coordinates.
func (h *Holder) Set(loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	cp := loc
	h.loc = &cp
	h.mu.Unlock()
	return nil
}
