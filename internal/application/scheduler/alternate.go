package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
)

// SuggestAlternate looks at the MaxDaysToSuggest days after requested for a
// better date for loc. The first pass wants an empty day or a day whose
// anchor is within reach; the second settles for any day with room.
// Non-working days are skipped. Nil means nothing in the window has room.
func (e *Engine) SuggestAlternate(ctx context.Context, requested time.Time, loc geo.Location) (*booking.Alternate, error) {
	start := booking.Day(requested).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, e.Policy.MaxDaysToSuggest-1)
	days, err := e.loadWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var candidates []booking.DayState
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if e.Policy.IsWorkingDay(d) {
			candidates = append(candidates, days[d])
		}
	}

	for _, ds := range candidates {
		if ds.Count == 0 {
			return &booking.Alternate{
				Date:    ds.Date,
				Reason:  booking.AlternateEmptyDay,
				Message: fmt.Sprintf("%s is open.", booking.FormatDate(ds.Date)),
			}, nil
		}
		if ds.IsFull || ds.Anchor == nil {
			continue
		}
		d, err := e.Oracle.Between(ctx, bookingLocation(*ds.Anchor), loc)
		if err != nil {
			return nil, err
		}
		if e.Policy.withinAnchorReach(d) {
			return &booking.Alternate{
				Date:   ds.Date,
				Reason: booking.AlternateNearAnchor,
				Message: fmt.Sprintf("%s already has a job %.1f miles away.",
					booking.FormatDate(ds.Date), d.DistanceMiles),
			}, nil
		}
	}

	for _, ds := range candidates {
		if !ds.IsFull {
			return &booking.Alternate{
				Date:   ds.Date,
				Reason: booking.AlternateHasAvailability,
				Message: fmt.Sprintf("%s has %d opening(s).",
					booking.FormatDate(ds.Date), ds.Remaining()),
			}, nil
		}
	}
	return nil, nil
}
