package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
	"go.uber.org/zap"
)

// Distances is the slice of the oracle the engine depends on.
type Distances interface {
	Resolve(ctx context.Context, address string) (geo.Location, error)
	Between(ctx context.Context, a, b geo.Location) (geo.DistanceResult, error)
}

// Engine validates booking requests, proposes alternate dates and
// auto-schedules addresses. It is read-only against the store and safe for
// concurrent use; callers serialize the accept-then-persist step per date.
type Engine struct {
	Policy Policy
	Store  booking.Reader
	Oracle Distances
	Log    *zap.Logger
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func NewEngine(p Policy, store booking.Reader, oracle Distances, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Policy: p, Store: store, Oracle: oracle, Log: log, Now: time.Now}
}

func (e *Engine) today() time.Time {
	if e.Now == nil {
		return booking.Day(time.Now())
	}
	return booking.Day(e.Now())
}

// LoadDayState reads the date's bookings fresh from the store.
func (e *Engine) LoadDayState(ctx context.Context, date time.Time) (booking.DayState, error) {
	return LoadDayState(ctx, e.Store, date, e.Policy.MaxBookingsPerDay)
}

func LoadDayState(ctx context.Context, store booking.Reader, date time.Time, capacity int) (booking.DayState, error) {
	day := booking.Day(date)
	bs, err := store.ListByDate(ctx, day)
	if err != nil {
		return booking.DayState{}, fmt.Errorf("load bookings for %s: %w", booking.FormatDate(day), err)
	}
	return booking.NewDayState(day, bs, capacity), nil
}

// loadWindow reads [start, end] with one range query and groups the result
// into per-day states.
func (e *Engine) loadWindow(ctx context.Context, start, end time.Time) (map[time.Time]booking.DayState, error) {
	bs, err := e.Store.ListByRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load bookings %s..%s: %w", booking.FormatDate(start), booking.FormatDate(end), err)
	}
	byDay := make(map[time.Time][]booking.Booking)
	for _, b := range bs {
		d := booking.Day(b.Date)
		byDay[d] = append(byDay[d], b)
	}
	out := make(map[time.Time]booking.DayState)
	for d := booking.Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		out[d] = booking.NewDayState(d, byDay[d], e.Policy.MaxBookingsPerDay)
	}
	return out, nil
}

// anchorOf is the booking a day's route is measured from: the flagged
// anchor, else the earliest-created booking when fallback is set.
func anchorOf(ds booking.DayState, fallback bool) *booking.Booking {
	if ds.Anchor != nil {
		return ds.Anchor
	}
	if fallback {
		return ds.Earliest()
	}
	return nil
}

func bookingLocation(b booking.Booking) geo.Location {
	return geo.Location{Latitude: b.Latitude, Longitude: b.Longitude, FormattedAddress: b.Address}
}
