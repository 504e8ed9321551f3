package solar

import (
	"time"

	sunrise "github.com/nathan-osman/go-sunrise"
)

// Library computes solar times through github.com/nathan-osman/go-sunrise.
// It exists so the provider can be swapped without touching the scheduler;
// the library uses the same closed-form model as the NOAA provider and keeps
// the zero-instant convention for polar dates.
type Library struct{}

func (Library) SunTimes(year int, month time.Month, day int, lat, lon float64) (Times, error) {
	if err := validateCoords(lat, lon); err != nil {
		return Times{}, err
	}
	rise, set := sunrise.SunriseSunset(lat, lon, year, month, day)
	return Times{Rise: rise, Set: set}, nil
}
