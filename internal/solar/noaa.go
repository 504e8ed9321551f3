package solar

import (
	"math"
	"time"
)

// NOAA is the built-in closed-form provider. It implements the standard
// sunrise equation (Julian date, solar mean anomaly, equation of center,
// hour angle) with an elevation threshold of -0.833 degrees to account for
// atmospheric refraction and the solar disk radius.
type NOAA struct{}

const (
	// degrees below the geometric horizon at which rise/set is observed
	horizonElevation = -0.833

	earthObliquity = 23.4397  // degrees
	perihelionArg  = 102.9372 // argument of perihelion, degrees

	j2000         = 2451545.0
	unixJulian    = 2440587.5 // Julian date of the Unix epoch
	secondsPerDay = 86400.0
)

func (NOAA) SunTimes(year int, month time.Month, day int, lat, lon float64) (Times, error) {
	if err := validateCoords(lat, lon); err != nil {
		return Times{}, err
	}

	jd := julianDay(year, month, day)
	n := jd - j2000 + 0.0008

	// Mean solar time at the observer's meridian (lon is east-positive).
	jStar := n - lon/360

	// Solar mean anomaly and equation of center.
	m := normDeg(357.5291 + 0.98560028*jStar)
	c := 1.9148*sinDeg(m) + 0.0200*sinDeg(2*m) + 0.0003*sinDeg(3*m)

	// Ecliptic longitude.
	lambda := normDeg(m + c + 180 + perihelionArg)

	// Solar transit (local true noon) as a Julian date.
	jTransit := j2000 + jStar + 0.0053*sinDeg(m) - 0.0069*sinDeg(2*lambda)

	// Declination of the sun.
	sinDecl := sinDeg(lambda) * sinDeg(earthObliquity)
	cosDecl := math.Cos(math.Asin(sinDecl))

	// Hour angle for the refraction-corrected horizon.
	latRad := lat * math.Pi / 180
	cosH := (sinDeg(horizonElevation) - math.Sin(latRad)*sinDecl) / (math.Cos(latRad) * cosDecl)

	// Polar day/night: the sun never crosses the horizon on this date.
	// The caller receives zero instants rather than an error.
	if cosH < -1 || cosH > 1 {
		return Times{}, nil
	}
	// Clamp guards against float error pushing cosH a hair outside [-1,1].
	cosH = math.Max(-1, math.Min(1, cosH))

	h := math.Acos(cosH) * 180 / math.Pi // degrees

	jRise := jTransit - h/360
	jSet := jTransit + h/360

	return Times{Rise: julianToTime(jRise), Set: julianToTime(jSet)}, nil
}

// julianDay returns the Julian date of local true noon candidates for the
// given civil date (i.e. the date at 12:00 UTC).
func julianDay(year int, month time.Month, day int) float64 {
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return float64(t.Unix())/secondsPerDay + unixJulian
}

func julianToTime(j float64) time.Time {
	sec := (j - unixJulian) * secondsPerDay
	return time.Unix(int64(sec), int64((sec-math.Trunc(sec))*1e9)).UTC()
}

func sinDeg(d float64) float64 { return math.Sin(d * math.Pi / 180) }

func normDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
