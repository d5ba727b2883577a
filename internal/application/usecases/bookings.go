package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/application/scheduler"
	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/infrastructure/holdtoken"
	"github.com/example/route-scheduler/internal/internaltypes"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// insertAttempts bounds validate-then-insert retries when another writer
// changed the day between the two steps.
const insertAttempts = 2

// Bookings is the write side of the calendar. Every change to a date runs
// under that date's lock so validation and persistence see the same day.
type Bookings struct {
	Engine *scheduler.Engine
	Store  booking.Store
	Holds  *holdtoken.Signer
	Locks  *DateLocks
	Log    *zap.Logger
}

func NewBookings(engine *scheduler.Engine, store booking.Store, holds *holdtoken.Signer, log *zap.Logger) *Bookings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bookings{Engine: engine, Store: store, Holds: holds, Locks: NewDateLocks(), Log: log}
}

// Create validates req and, when accepted, persists it. A rejected request
// returns its verdict and a nil booking. The error is reserved for failures
// to persist an accepted booking.
func (u *Bookings) Create(ctx context.Context, customerName string, req booking.Request) (booking.Verdict, *booking.Booking, error) {
	return u.create(ctx, customerName, req, u.Engine.Validate)
}

// createSlot books an auto-scheduled slot. The route gates run again, but
// the slot is checked the way the auto-scheduler picked it: it only has to
// be unoccupied, not a full gap away from its neighbours.
func (u *Bookings) createSlot(ctx context.Context, customerName string, req booking.Request) (booking.Verdict, *booking.Booking, error) {
	return u.create(ctx, customerName, req, func(ctx context.Context, req booking.Request) booking.Verdict {
		slot := req.Time
		req.Time = nil
		v := u.Engine.Validate(ctx, req)
		if !v.Valid || slot == nil {
			return v
		}
		day, err := u.Engine.LoadDayState(ctx, req.Date)
		if err != nil {
			v.Valid = false
			v.Reason = booking.ReasonValidationError
			v.Message = err.Error()
			return v.WithErr(err)
		}
		if _, free := booking.ChoosePreferredSlot([]booking.Clock{*slot}, day.Times()); !free {
			p := u.Engine.Policy
			v.Valid = false
			v.IsAnchor = false
			v.Reason = booking.ReasonTimeConflict
			v.Message = fmt.Sprintf("%s on %s has been taken since it was suggested.", slot, booking.FormatDate(req.Date))
			v.SuggestedTimes = booking.FormatSlots(booking.OpenSlots(day.Times(), p.WorkStart(), p.WorkEnd(), p.MinBookingGapMinutes))
		}
		return v
	})
}

func (u *Bookings) create(ctx context.Context, customerName string, req booking.Request,
	validate func(context.Context, booking.Request) booking.Verdict) (booking.Verdict, *booking.Booking, error) {
	req.Date = booking.Day(req.Date)
	unlock := u.Locks.Lock(req.Date)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		v := validate(ctx, req)
		if !v.Valid {
			return v, nil, nil
		}

		saved, err := u.Store.Insert(ctx, newBooking(customerName, req, v), u.Engine.Policy.MaxBookingsPerDay)
		if err == nil {
			v.IsAnchor = saved.IsAnchor
			u.Log.Info("booking created",
				zap.String("id", saved.ID),
				zap.String("date", saved.DateString()),
				zap.Bool("anchor", saved.IsAnchor),
			)
			return v, &saved, nil
		}
		if !errors.Is(err, internaltypes.ErrDayFull) && !errors.Is(err, internaltypes.ErrAnchorTaken) {
			return v, nil, fmt.Errorf("save booking: %w", err)
		}
		u.Log.Warn("day changed during booking, revalidating",
			zap.String("date", booking.FormatDate(req.Date)), zap.Error(err))
		lastErr = err
	}
	return booking.Verdict{}, nil, fmt.Errorf("save booking: %w", lastErr)
}

func newBooking(customerName string, req booking.Request, v booking.Verdict) booking.Booking {
	b := booking.Booking{
		ID:                 uuid.NewString(),
		CustomerName:       customerName,
		Address:            req.Address,
		Date:               req.Date,
		Time:               req.Time,
		ServiceType:        req.ServiceType,
		IsAnchor:           v.IsAnchor,
		DistanceFromBase:   v.DistanceFromBase,
		DistanceFromAnchor: v.DistanceFromAnchor,
		DurationFromAnchor: v.DurationFromAnchor,
	}
	if v.Location != nil {
		b.Latitude, b.Longitude = v.Location.Latitude, v.Location.Longitude
	}
	return b
}

// Schedule runs the auto-scheduler and, when it succeeds and holds are
// configured, signs the suggestion so it can be confirmed later.
func (u *Bookings) Schedule(ctx context.Context, customerName, address, serviceType string, preferredStart *time.Time) (booking.SchedulingResult, string, error) {
	res := u.Engine.AutoSchedule(ctx, customerName, address, preferredStart)
	if !res.Success || u.Holds == nil {
		return res, "", nil
	}
	token, err := u.Holds.Issue(res, serviceType)
	if err != nil {
		return res, "", fmt.Errorf("issue hold: %w", err)
	}
	return res, token, nil
}

// ScheduleAndBook books the auto-scheduler's suggestion straight away.
func (u *Bookings) ScheduleAndBook(ctx context.Context, customerName, address, serviceType string, preferredStart *time.Time) (booking.SchedulingResult, *booking.Booking, error) {
	res := u.Engine.AutoSchedule(ctx, customerName, address, preferredStart)
	if !res.Success {
		return res, nil, nil
	}
	v, b, err := u.createSlot(ctx, customerName, res.Request(serviceType))
	if err != nil {
		return res, nil, err
	}
	if b == nil {
		res.Success = false
		res.Reason = v.Reason
		res.Message = v.Message
	}
	return res, b, nil
}

// Confirm books a held suggestion. The suggestion is validated again, so a
// slot taken since the hold was issued is rejected with a normal verdict.
func (u *Bookings) Confirm(ctx context.Context, token string) (booking.Verdict, *booking.Booking, error) {
	if u.Holds == nil {
		return booking.Verdict{}, nil, internaltypes.ErrInvalidHold
	}
	h, err := u.Holds.Open(token)
	if err != nil {
		return booking.Verdict{}, nil, err
	}
	req, err := h.Request()
	if err != nil {
		return booking.Verdict{}, nil, fmt.Errorf("%w: %v", internaltypes.ErrInvalidHold, err)
	}
	return u.createSlot(ctx, h.CustomerName, req)
}

func (u *Bookings) Cancel(ctx context.Context, id, reason string) error {
	return u.onBooking(ctx, id, "cancelled", func() error { return u.Store.Cancel(ctx, id, reason) })
}

func (u *Bookings) Complete(ctx context.Context, id string) error {
	return u.onBooking(ctx, id, "completed", func() error { return u.Store.Complete(ctx, id) })
}

func (u *Bookings) Delete(ctx context.Context, id string) error {
	return u.onBooking(ctx, id, "deleted", func() error { return u.Store.Delete(ctx, id) })
}

func (u *Bookings) onBooking(ctx context.Context, id, action string, fn func() error) error {
	b, err := u.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	unlock := u.Locks.Lock(b.Date)
	defer unlock()
	if err := fn(); err != nil {
		return err
	}
	u.Log.Info("booking "+action, zap.String("id", id), zap.String("date", b.DateString()))
	return nil
}

func (u *Bookings) Get(ctx context.Context, id string) (booking.Booking, error) {
	return u.Store.Get(ctx, id)
}

func (u *Bookings) Day(ctx context.Context, date time.Time) (booking.DayState, error) {
	return u.Engine.LoadDayState(ctx, date)
}

func (u *Bookings) List(ctx context.Context, from, to time.Time) ([]booking.Booking, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", booking.FormatDate(to), booking.FormatDate(from))
	}
	return u.Store.ListByRange(ctx, from, to)
}
