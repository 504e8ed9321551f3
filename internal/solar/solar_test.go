package solar

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	z, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load zone %s: %v", name, err)
	}
	return z
}

func TestNOAASunTimesLondonSolstices(t *testing.T) {
	t.Parallel()
	london := mustZone(t, "Europe/London")

	tests := []struct {
		name       string
		year       int
		month      time.Month
		day        int
		riseAfter  string // local wall clock bounds, "15:04"
		riseBefore string
		setAfter   string
		setBefore  string
	}{
		{"summer solstice", 2024, time.June, 21, "04:30", "05:00", "21:00", "21:45"},
		{"winter solstice", 2024, time.December, 21, "07:45", "08:20", "15:40", "16:10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			times, err := NOAA{}.SunTimes(tc.year, tc.month, tc.day, 51.5074, -0.1278)
			if err != nil {
				t.Fatalf("SunTimes: %v", err)
			}
			if !times.HasRise() || !times.HasSet() {
				t.Fatalf("expected both events, got rise=%v set=%v", times.Rise, times.Set)
			}
			if !times.Rise.Before(times.Set) {
				t.Fatalf("rise %v not before set %v", times.Rise, times.Set)
			}

			check := func(what string, got time.Time, after, before string) {
				local := got.In(london).Format("15:04")
				if local < after || local > before {
					t.Errorf("%s = %s local, want within [%s, %s]", what, local, after, before)
				}
			}
			check("sunrise", times.Rise, tc.riseAfter, tc.riseBefore)
			check("sunset", times.Set, tc.setAfter, tc.setBefore)
		})
	}
}

func TestNOAASunTimesEquatorDayLength(t *testing.T) {
	t.Parallel()
	times, err := NOAA{}.SunTimes(2024, time.March, 20, 0, 0)
	if err != nil {
		t.Fatalf("SunTimes: %v", err)
	}
	day := times.Set.Sub(times.Rise)
	if day < 11*time.Hour+50*time.Minute || day > 12*time.Hour+25*time.Minute {
		t.Fatalf("equator day length = %v, want roughly 12h", day)
	}
}

func TestNOAASunTimesPolar(t *testing.T) {
	t.Parallel()
	// Longyearbyen: polar day in June, polar night in December.
	const lat, lon = 78.2232, 15.6267

	tests := []struct {
		name  string
		month time.Month
	}{
		{"polar day", time.June},
		{"polar night", time.December},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			times, err := NOAA{}.SunTimes(2024, tc.month, 21, lat, lon)
			if err != nil {
				t.Fatalf("SunTimes: %v", err)
			}
			if times.HasRise() || times.HasSet() {
				t.Fatalf("expected zero instants, got rise=%v set=%v", times.Rise, times.Set)
			}
		})
	}
}

func TestNOAASunTimesDeterministic(t *testing.T) {
	t.Parallel()
	a, err := NOAA{}.SunTimes(2024, time.August, 5, 55.7558, 37.6173)
	if err != nil {
		t.Fatalf("SunTimes: %v", err)
	}
	b, err := NOAA{}.SunTimes(2024, time.August, 5, 55.7558, 37.6173)
	if err != nil {
		t.Fatalf("SunTimes: %v", err)
	}
	if !a.Rise.Equal(b.Rise) || !a.Set.Equal(b.Set) {
		t.Fatalf("non-deterministic result: %+v vs %+v", a, b)
	}
}

func TestSunTimesInvalidCoords(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"lat too high", 91, 0},
		{"lat too low", -90.5, 0},
		{"lon too high", 0, 181},
		{"lon too low", 0, -180.01},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := (NOAA{}).SunTimes(2024, time.June, 21, tc.lat, tc.lon); err == nil {
				t.Fatalf("expected error for lat=%v lon=%v", tc.lat, tc.lon)
			}
			if _, err := (Library{}).SunTimes(2024, time.June, 21, tc.lat, tc.lon); err == nil {
				t.Fatalf("library: expected error for lat=%v lon=%v", tc.lat, tc.lon)
			}
		})
	}
}

func TestProviderParity(t *testing.T) {
	t.Parallel()
	locations := []struct {
		name     string
		lat, lon float64
	}{
		{"london", 51.5074, -0.1278},
		{"moscow", 55.7558, 37.6173},
		{"sydney", -33.8688, 151.2093},
	}

	const tolerance = 5 * time.Minute
	for _, loc := range locations {
		t.Run(loc.name, func(t *testing.T) {
			t.Parallel()
			a, err := NOAA{}.SunTimes(2024, time.April, 10, loc.lat, loc.lon)
			if err != nil {
				t.Fatalf("noaa: %v", err)
			}
			b, err := Library{}.SunTimes(2024, time.April, 10, loc.lat, loc.lon)
			if err != nil {
				t.Fatalf("library: %v", err)
			}
			if d := a.Rise.Sub(b.Rise).Abs(); d > tolerance {
				t.Errorf("sunrise differs by %v", d)
			}
			if d := a.Set.Sub(b.Set).Abs(); d > tolerance {
				t.Errorf("sunset differs by %v", d)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", "noaa", "NOAA", "library", "go-sunrise"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q): %v", name, err)
		}
	}
	if _, err := New("astrolabe"); err == nil {
		t.Error("expected error for unknown provider")
	}
}
