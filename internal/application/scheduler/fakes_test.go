package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
)

// ---------------------------------------------------------------------------
// Fake store
// ---------------------------------------------------------------------------

type fakeStore struct {
	byDate map[time.Time][]booking.Booking
	seq    int64
	err    error

	dateCalls  int
	rangeCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byDate: make(map[time.Time][]booking.Booking)}
}

// add appends a booking the way a store would: the first of a date is the anchor.
func (s *fakeStore) add(date time.Time, address string, lat, lng float64, at string) booking.Booking {
	s.seq++
	d := booking.Day(date)
	b := booking.Booking{
		ID:        fmt.Sprintf("b-%d", s.seq),
		Address:   address,
		Latitude:  lat,
		Longitude: lng,
		Date:      d,
		IsAnchor:  len(s.byDate[d]) == 0,
		Status:    booking.StatusScheduled,
		Seq:       s.seq,
	}
	if at != "" {
		c := booking.MustClock(at)
		b.Time = &c
	}
	s.byDate[d] = append(s.byDate[d], b)
	return b
}

func (s *fakeStore) fill(date time.Time, n int) {
	for i := 0; i < n; i++ {
		s.add(date, fmt.Sprintf("filler %d", i), 0, 0, "")
	}
}

func (s *fakeStore) ListByDate(_ context.Context, date time.Time) ([]booking.Booking, error) {
	s.dateCalls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]booking.Booking(nil), s.byDate[booking.Day(date)]...), nil
}

func (s *fakeStore) ListByRange(_ context.Context, start, end time.Time) ([]booking.Booking, error) {
	s.rangeCalls++
	if s.err != nil {
		return nil, s.err
	}
	var out []booking.Booking
	for d := booking.Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, s.byDate[d]...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Fake oracle: addresses resolve to points named after themselves, and
// distances come from an explicit symmetric table.
// ---------------------------------------------------------------------------

type fakeOracle struct {
	locs map[string]geo.Location
	dist map[[2]string]geo.DistanceResult
	err  error

	resolveCalls int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		locs: make(map[string]geo.Location),
		dist: make(map[[2]string]geo.DistanceResult),
	}
}

func (o *fakeOracle) place(address string, lat, lng float64) geo.Location {
	loc := geo.Location{Latitude: lat, Longitude: lng, FormattedAddress: address}
	o.locs[address] = loc
	return loc
}

func (o *fakeOracle) set(a, b string, miles float64, mins int) {
	d := geo.DistanceResult{DistanceMiles: miles, DurationMinutes: mins}
	o.dist[[2]string{a, b}] = d
	o.dist[[2]string{b, a}] = d
}

func (o *fakeOracle) Resolve(_ context.Context, address string) (geo.Location, error) {
	o.resolveCalls++
	if o.err != nil {
		return geo.Location{}, o.err
	}
	loc, ok := o.locs[address]
	if !ok {
		return geo.Location{}, fmt.Errorf("%w: %q", geo.ErrAddressNotFound, address)
	}
	return loc, nil
}

func (o *fakeOracle) Between(_ context.Context, a, b geo.Location) (geo.DistanceResult, error) {
	d, ok := o.dist[[2]string{a.FormattedAddress, b.FormattedAddress}]
	if !ok {
		return geo.DistanceResult{}, errors.New("no distance for " + a.FormattedAddress + " -> " + b.FormattedAddress)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const base = "Lowell, MA"

var (
	// 2026-10-18 is a Sunday.
	sunday  = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	monday  = sunday.AddDate(0, 0, 1)
	tuesday = sunday.AddDate(0, 0, 2)
)

func testEngine(store *fakeStore, oracle *fakeOracle) *Engine {
	p := DefaultPolicy()
	p.Base.Name = base
	e := NewEngine(p, store, oracle, nil)
	e.Now = func() time.Time { return sunday.Add(9 * time.Hour) }
	return e
}

func clockPtr(s string) *booking.Clock {
	c := booking.MustClock(s)
	return &c
}
