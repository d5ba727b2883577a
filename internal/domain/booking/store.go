package booking

import (
	"context"
	"time"
)

// Reader is what the scheduling core needs from persistence. Both methods
// return active (scheduled) bookings only.
type Reader interface {
	ListByDate(ctx context.Context, date time.Time) ([]Booking, error)
	// ListByRange is inclusive of both ends.
	ListByRange(ctx context.Context, start, end time.Time) ([]Booking, error)
}

// Store adds the write side. Insert re-checks capacity and anchor uniqueness
// atomically for the booking's date; Cancel, Complete and Delete promote the
// next remaining booking of the date when they remove its anchor.
type Store interface {
	Reader
	Get(ctx context.Context, id string) (Booking, error)
	Insert(ctx context.Context, b Booking, maxPerDay int) (Booking, error)
	Cancel(ctx context.Context, id, reason string) error
	Complete(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// CompleteBefore moves every active booking dated before day to the
	// completed set and reports how many moved.
	CompleteBefore(ctx context.Context, day time.Time) (int, error)
}
