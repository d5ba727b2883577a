package scheduler

import (
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
)

// workingDayScanLimit caps forward scans for the next working day so a
// policy with no working days cannot loop forever.
const workingDayScanLimit = 14

type Base struct {
	Name      string
	Latitude  float64
	Longitude float64
}

func (b Base) Location() geo.Location {
	return geo.Location{Latitude: b.Latitude, Longitude: b.Longitude, FormattedAddress: b.Name}
}

// Policy holds every threshold the engine applies. It is injected; nothing
// in this package hard-codes a limit.
type Policy struct {
	Base                           Base
	MaxServiceRadiusMiles          float64
	MaxDistanceFromAnchorMiles     float64
	MaxTravelTimeFromAnchorMinutes int
	MaxBookingsPerDay              int
	WorkStartHour                  int
	WorkEndHour                    int
	WorkingDays                    []time.Weekday
	DefaultTimeSlots               []booking.Clock
	MaxDaysToSuggest               int
	MinBookingGapMinutes           int
}

func DefaultPolicy() Policy {
	return Policy{
		Base:                           Base{Name: "Lowell, MA", Latitude: 42.6334, Longitude: -71.3162},
		MaxServiceRadiusMiles:          70,
		MaxDistanceFromAnchorMiles:     15,
		MaxTravelTimeFromAnchorMinutes: 30,
		MaxBookingsPerDay:              3,
		WorkStartHour:                  8,
		WorkEndHour:                    18,
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
		},
		DefaultTimeSlots: []booking.Clock{
			booking.MustClock("08:00"), booking.MustClock("11:30"), booking.MustClock("15:00"),
		},
		MaxDaysToSuggest:     14,
		MinBookingGapMinutes: 240,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MaxServiceRadiusMiles <= 0:
		return fmt.Errorf("max service radius must be > 0")
	case p.MaxDistanceFromAnchorMiles <= 0:
		return fmt.Errorf("max distance from anchor must be > 0")
	case p.MaxTravelTimeFromAnchorMinutes <= 0:
		return fmt.Errorf("max travel time from anchor must be > 0")
	case p.MaxBookingsPerDay < 1:
		return fmt.Errorf("max bookings per day must be >= 1")
	case p.WorkStartHour < 0 || p.WorkEndHour > 24 || p.WorkStartHour >= p.WorkEndHour:
		return fmt.Errorf("invalid work hours %d..%d", p.WorkStartHour, p.WorkEndHour)
	case len(p.WorkingDays) == 0:
		return fmt.Errorf("at least one working day is required")
	case len(p.DefaultTimeSlots) == 0:
		return fmt.Errorf("at least one default time slot is required")
	case p.MaxDaysToSuggest < 1:
		return fmt.Errorf("max days to suggest must be >= 1")
	case p.MinBookingGapMinutes < 0:
		return fmt.Errorf("min booking gap must be >= 0")
	}
	return nil
}

func (p Policy) IsWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	for _, d := range p.WorkingDays {
		if d == wd {
			return true
		}
	}
	return false
}

// NextWorkingDay returns the first working day on or after t, scanning at
// most workingDayScanLimit days.
func (p Policy) NextWorkingDay(t time.Time) (time.Time, bool) {
	d := booking.Day(t)
	for i := 0; i < workingDayScanLimit; i++ {
		if p.IsWorkingDay(d) {
			return d, true
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

func (p Policy) WorkStart() booking.Clock { return booking.Clock(p.WorkStartHour * 60) }
func (p Policy) WorkEnd() booking.Clock   { return booking.Clock(p.WorkEndHour * 60) }

// withinAnchorReach applies the anchor-proximity rule: exceeding either the
// distance or the travel-time limit is enough to fail.
func (p Policy) withinAnchorReach(d geo.DistanceResult) bool {
	return d.DistanceMiles <= p.MaxDistanceFromAnchorMiles &&
		d.DurationMinutes <= p.MaxTravelTimeFromAnchorMinutes
}
