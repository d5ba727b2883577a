package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/domain/geo"
	"go.uber.org/zap"
)

// evaluation accumulates what earlier gates learned for later ones.
type evaluation struct {
	req  booking.Request
	date time.Time

	loc      geo.Location
	fromBase geo.DistanceResult

	day        booking.DayState
	anchor     *booking.Booking
	fromAnchor *geo.DistanceResult
}

// gate returns nil to pass, or a terminal verdict (accept or reject).
type gate struct {
	name string
	run  func(ctx context.Context, ev *evaluation) *booking.Verdict
}

// gates is the precedence order of validation. The first terminal verdict wins.
func (e *Engine) gates() []gate {
	return []gate{
		{"working_day", e.workingDayGate},
		{"geocode", e.geocodeGate},
		{"service_radius", e.serviceRadiusGate},
		{"capacity", e.capacityGate},
		{"anchor_assignment", e.anchorAssignmentGate},
		{"missing_anchor", e.missingAnchorGate},
		{"anchor_proximity", e.anchorProximityGate},
		{"time_slot", e.timeSlotGate},
	}
}

// Validate decides whether req can be booked. It never returns an error:
// resolution and store failures come back as validation_error verdicts
// with Err set.
func (e *Engine) Validate(ctx context.Context, req booking.Request) booking.Verdict {
	ev := &evaluation{req: req, date: booking.Day(req.Date)}
	for _, g := range e.gates() {
		if v := g.run(ctx, ev); v != nil {
			e.Log.Debug("validation settled",
				zap.String("gate", g.name),
				zap.String("address", req.Address),
				zap.String("date", booking.FormatDate(ev.date)),
				zap.String("reason", string(v.Reason)),
				zap.Bool("valid", v.Valid),
			)
			return *v
		}
	}
	v := ev.verdict(booking.ReasonAccepted, fmt.Sprintf(
		"Booking fits the route: %.1f mi / %d min from the day's anchor.",
		ev.fromAnchor.DistanceMiles, ev.fromAnchor.DurationMinutes))
	v.Valid = true
	return v
}

func (ev *evaluation) verdict(reason booking.Reason, msg string) booking.Verdict {
	v := booking.Verdict{Reason: reason, Message: msg}
	if ev.loc != (geo.Location{}) {
		loc := ev.loc
		v.Location = &loc
		v.DistanceFromBase = ev.fromBase.DistanceMiles
		v.DurationFromBase = ev.fromBase.DurationMinutes
	}
	if ev.anchor != nil {
		v.Anchor = &booking.AnchorRef{ID: ev.anchor.ID, Address: ev.anchor.Address}
	}
	if ev.fromAnchor != nil {
		miles, mins := ev.fromAnchor.DistanceMiles, ev.fromAnchor.DurationMinutes
		v.DistanceFromAnchor = &miles
		v.DurationFromAnchor = &mins
	}
	return v
}

func failure(ev *evaluation, err error) *booking.Verdict {
	msg := err.Error()
	if errors.Is(err, geo.ErrAddressNotFound) {
		msg = fmt.Sprintf("Could not find address %q. Please check it and try again.", ev.req.Address)
	}
	v := ev.verdict(booking.ReasonValidationError, msg).WithErr(err)
	return &v
}

func (e *Engine) workingDayGate(_ context.Context, ev *evaluation) *booking.Verdict {
	if e.Policy.IsWorkingDay(ev.date) {
		return nil
	}
	v := ev.verdict(booking.ReasonNonWorkingDay,
		fmt.Sprintf("We do not work on %ss.", ev.date.Weekday()))
	if next, ok := e.Policy.NextWorkingDay(ev.date); ok {
		v.NextWorkingDate = &next
		v.Message += fmt.Sprintf(" The next working day is %s.", booking.FormatDate(next))
	}
	return &v
}

func (e *Engine) geocodeGate(ctx context.Context, ev *evaluation) *booking.Verdict {
	loc, err := e.Oracle.Resolve(ctx, ev.req.Address)
	if err != nil {
		return failure(ev, err)
	}
	ev.loc = loc
	return nil
}

func (e *Engine) serviceRadiusGate(ctx context.Context, ev *evaluation) *booking.Verdict {
	d, err := e.Oracle.Between(ctx, e.Policy.Base.Location(), ev.loc)
	if err != nil {
		return failure(ev, err)
	}
	ev.fromBase = d
	if d.DistanceMiles <= e.Policy.MaxServiceRadiusMiles {
		return nil
	}
	v := ev.verdict(booking.ReasonOutsideServiceArea, fmt.Sprintf(
		"Address is %.1f miles from %s; our service area is %.0f miles.",
		d.DistanceMiles, e.Policy.Base.Name, e.Policy.MaxServiceRadiusMiles))
	return &v
}

func (e *Engine) capacityGate(ctx context.Context, ev *evaluation) *booking.Verdict {
	day, err := e.LoadDayState(ctx, ev.date)
	if err != nil {
		return failure(ev, err)
	}
	ev.day = day
	if !day.IsFull {
		return nil
	}
	v := ev.verdict(booking.ReasonDayFull, fmt.Sprintf(
		"%s is fully booked (%d of %d).", booking.FormatDate(ev.date), day.Count, day.Capacity))
	return e.withAlternate(ctx, ev, v)
}

func (e *Engine) anchorAssignmentGate(_ context.Context, ev *evaluation) *booking.Verdict {
	if ev.day.Count != 0 {
		return nil
	}
	v := ev.verdict(booking.ReasonAccepted,
		"First booking of the day; this address becomes the route anchor.")
	v.Valid = true
	v.IsAnchor = true
	return &v
}

func (e *Engine) missingAnchorGate(_ context.Context, ev *evaluation) *booking.Verdict {
	if ev.day.Anchor != nil {
		return nil
	}
	e.Log.Warn("day has bookings but no anchor",
		zap.String("date", booking.FormatDate(ev.date)), zap.Int("count", ev.day.Count))
	v := ev.verdict(booking.ReasonAccepted,
		"Accepted; the day has no anchor on record so route distance was not checked.")
	v.Valid = true
	return &v
}

func (e *Engine) anchorProximityGate(ctx context.Context, ev *evaluation) *booking.Verdict {
	ev.anchor = ev.day.Anchor
	d, err := e.Oracle.Between(ctx, bookingLocation(*ev.anchor), ev.loc)
	if err != nil {
		return failure(ev, err)
	}
	ev.fromAnchor = &d
	if e.Policy.withinAnchorReach(d) {
		return nil
	}
	v := ev.verdict(booking.ReasonTooFarFromAnchor, fmt.Sprintf(
		"Address is %.1f miles / %d minutes from the day's first job; the limit is %.0f miles / %d minutes.",
		d.DistanceMiles, d.DurationMinutes,
		e.Policy.MaxDistanceFromAnchorMiles, e.Policy.MaxTravelTimeFromAnchorMinutes))
	return e.withAlternate(ctx, ev, v)
}

func (e *Engine) timeSlotGate(_ context.Context, ev *evaluation) *booking.Verdict {
	if ev.req.Time == nil {
		return nil
	}
	conflicts := booking.Conflicts(*ev.req.Time, ev.day.Times(), e.Policy.MinBookingGapMinutes)
	if len(conflicts) == 0 {
		return nil
	}
	taken := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		taken = append(taken, c.String())
	}
	v := ev.verdict(booking.ReasonTimeConflict, fmt.Sprintf(
		"%s is within %d minutes of an existing booking at %s.",
		ev.req.Time, e.Policy.MinBookingGapMinutes, strings.Join(taken, ", ")))
	v.SuggestedTimes = booking.FormatSlots(booking.OpenSlots(
		ev.day.Times(), e.Policy.WorkStart(), e.Policy.WorkEnd(), e.Policy.MinBookingGapMinutes))
	return &v
}

func (e *Engine) withAlternate(ctx context.Context, ev *evaluation, v booking.Verdict) *booking.Verdict {
	alt, err := e.SuggestAlternate(ctx, ev.date, ev.loc)
	if err != nil {
		return failure(ev, err)
	}
	if alt != nil {
		v.Alternate = alt
		v.Message += " " + alt.Message
	}
	return &v
}
