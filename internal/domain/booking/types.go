package booking

import (
	"sort"
	"time"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Request is an incoming booking request. It is never persisted as-is.
type Request struct {
	Address     string
	Date        time.Time
	Time        *Clock
	ServiceType string
}

type Booking struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Date         time.Time `json:"date"`
	Time         *Clock    `json:"time,omitempty"`
	ServiceType  string    `json:"serviceType,omitempty"`

	IsAnchor           bool     `json:"isAnchor"`
	DistanceFromBase   float64  `json:"distanceFromBase"`
	DistanceFromAnchor *float64 `json:"distanceFromAnchor,omitempty"`
	DurationFromAnchor *int     `json:"durationFromAnchor,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	// Seq is the store's creation order; anchors are the lowest Seq of a date.
	Seq int64 `json:"-"`

	// Set once the booking leaves the active calendar.
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`
}

// DateString is the booking date as YYYY-MM-DD.
func (b Booking) DateString() string { return FormatDate(b.Date) }

// DayState is derived from the store on every call and never cached.
type DayState struct {
	Date     time.Time
	Bookings []Booking
	Anchor   *Booking
	Count    int
	Capacity int
	IsFull   bool
}

// NewDayState orders bookings by time of day (untimed last, ties by creation)
// and picks out the flagged anchor.
func NewDayState(date time.Time, bookings []Booking, capacity int) DayState {
	sorted := make([]Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.Time == nil && b.Time == nil:
			return a.Seq < b.Seq
		case a.Time == nil:
			return false
		case b.Time == nil:
			return true
		case *a.Time != *b.Time:
			return *a.Time < *b.Time
		default:
			return a.Seq < b.Seq
		}
	})

	ds := DayState{
		Date:     Day(date),
		Bookings: sorted,
		Count:    len(sorted),
		Capacity: capacity,
		IsFull:   len(sorted) >= capacity,
	}
	for i := range ds.Bookings {
		if ds.Bookings[i].IsAnchor {
			ds.Anchor = &ds.Bookings[i]
			break
		}
	}
	return ds
}

// Times returns the booked times of day in ascending order.
func (d DayState) Times() []Clock {
	out := make([]Clock, 0, len(d.Bookings))
	for _, b := range d.Bookings {
		if b.Time != nil {
			out = append(out, *b.Time)
		}
	}
	return out
}

// Earliest is the first-created booking of the day, or nil when empty.
func (d DayState) Earliest() *Booking {
	var first *Booking
	for i := range d.Bookings {
		if first == nil || d.Bookings[i].Seq < first.Seq {
			first = &d.Bookings[i]
		}
	}
	return first
}

func (d DayState) Remaining() int {
	if r := d.Capacity - d.Count; r > 0 {
		return r
	}
	return 0
}
