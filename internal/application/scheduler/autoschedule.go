package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
	"go.uber.org/zap"
)

// AutoSchedule finds the first working day, starting no earlier than today or
// preferredStart, whose route the address fits and that still has one of the
// default time slots free. Given the same store state and clock it always
// returns the same suggestion.
func (e *Engine) AutoSchedule(ctx context.Context, customerName, address string, preferredStart *time.Time) booking.SchedulingResult {
	res := booking.SchedulingResult{CustomerName: customerName, Address: address}

	loc, err := e.Oracle.Resolve(ctx, address)
	if err != nil {
		return autoFailure(res, err)
	}
	res.Location = &loc

	fromBase, err := e.Oracle.Between(ctx, e.Policy.Base.Location(), loc)
	if err != nil {
		return autoFailure(res, err)
	}
	res.DistanceFromBase = fromBase.DistanceMiles
	res.DurationFromBase = fromBase.DurationMinutes
	if fromBase.DistanceMiles > e.Policy.MaxServiceRadiusMiles {
		res.Reason = booking.ReasonOutsideServiceArea
		res.Message = fmt.Sprintf("Address is %.1f miles from %s; our service area is %.0f miles.",
			fromBase.DistanceMiles, e.Policy.Base.Name, e.Policy.MaxServiceRadiusMiles)
		return res
	}

	start := e.today()
	if preferredStart != nil && booking.Day(*preferredStart).After(start) {
		start = booking.Day(*preferredStart)
	}
	if next, ok := e.Policy.NextWorkingDay(start); ok {
		start = next
	}

	window := e.Policy.MaxDaysToSuggest
	for i := 0; i < window; i++ {
		date := start.AddDate(0, 0, i)
		if !e.Policy.IsWorkingDay(date) {
			continue
		}
		day, err := e.LoadDayState(ctx, date)
		if err != nil {
			return autoFailure(res, err)
		}
		if day.IsFull {
			continue
		}

		var fromAnchor *geo.DistanceResult
		if anchor := anchorOf(day, true); anchor != nil {
			d, err := e.Oracle.Between(ctx, bookingLocation(*anchor), loc)
			if err != nil {
				return autoFailure(res, err)
			}
			if !e.Policy.withinAnchorReach(d) {
				continue
			}
			fromAnchor = &d
		}

		slot, ok := booking.ChoosePreferredSlot(e.Policy.DefaultTimeSlots, day.Times())
		if !ok {
			continue
		}

		res.Success = true
		res.Reason = booking.ReasonAccepted
		res.Date = date
		res.Time = &slot
		res.IsAnchor = day.Count == 0
		if fromAnchor != nil {
			miles, mins := fromAnchor.DistanceMiles, fromAnchor.DurationMinutes
			res.DistanceFromAnchor = &miles
			res.DurationFromAnchor = &mins
		}
		if res.IsAnchor {
			res.Message = fmt.Sprintf("Scheduled %s at %s as the first job of the day.",
				booking.FormatDate(date), slot)
		} else {
			res.Message = fmt.Sprintf("Scheduled %s at %s, %.1f miles from the day's first job.",
				booking.FormatDate(date), slot, fromAnchor.DistanceMiles)
		}
		e.Log.Debug("auto-scheduled",
			zap.String("address", address),
			zap.String("date", booking.FormatDate(date)),
			zap.String("time", slot.String()),
			zap.Bool("anchor", res.IsAnchor),
		)
		return res
	}

	res.Reason = booking.ReasonNoSlotAvailable
	res.Message = fmt.Sprintf("No suitable date found in the next %d days starting %s.",
		window, booking.FormatDate(start))
	return res
}

func autoFailure(res booking.SchedulingResult, err error) booking.SchedulingResult {
	res.Success = false
	res.Reason = booking.ReasonAutoScheduleError
	res.Message = err.Error()
	return res.WithErr(err)
}
