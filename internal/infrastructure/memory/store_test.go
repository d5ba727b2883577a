package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/internaltypes"
)

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func insert(t *testing.T, s *Store, name string, anchor bool) booking.Booking {
	t.Helper()
	b, err := s.Insert(context.Background(), booking.Booking{
		CustomerName: name,
		Address:      name + " St",
		Date:         monday.Add(10 * time.Hour),
		IsAnchor:     anchor,
	}, 3)
	if err != nil {
		t.Fatalf("insert %s: %v", name, err)
	}
	return b
}

func TestInsertEnforcesCapacityAndAnchor(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := insert(t, s, "a", false)
	if !first.IsAnchor || first.ID == "" || !first.Date.Equal(monday) {
		t.Fatalf("first booking of an empty day becomes the anchor: %+v", first)
	}
	if _, err := s.Insert(ctx, booking.Booking{Date: monday, IsAnchor: true}, 3); !errors.Is(err, internaltypes.ErrAnchorTaken) {
		t.Fatalf("second anchor: err = %v", err)
	}
	insert(t, s, "b", false)
	insert(t, s, "c", false)
	if _, err := s.Insert(ctx, booking.Booking{Date: monday}, 3); !errors.Is(err, internaltypes.ErrDayFull) {
		t.Fatalf("fourth booking: err = %v", err)
	}

	day, _ := s.ListByDate(ctx, monday)
	if len(day) != 3 || day[0].ID != first.ID {
		t.Fatalf("day = %+v", day)
	}
}

func TestCancelAnchorPromotesNext(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := insert(t, s, "a", true)
	b := insert(t, s, "b", false)
	insert(t, s, "c", false)

	if err := s.Cancel(ctx, a.ID, "customer request"); err != nil {
		t.Fatal(err)
	}
	day, _ := s.ListByDate(ctx, monday)
	if len(day) != 2 {
		t.Fatalf("active = %d", len(day))
	}
	anchors := 0
	for _, x := range day {
		if x.IsAnchor {
			anchors++
			if x.ID != b.ID {
				t.Fatalf("promoted %s, want %s", x.ID, b.ID)
			}
		}
	}
	if anchors != 1 {
		t.Fatalf("anchors = %d", anchors)
	}

	got, err := s.Get(ctx, a.ID)
	if err != nil || got.Status != booking.StatusCancelled || got.CancelReason != "customer request" || got.ClosedAt == nil {
		t.Fatalf("cancelled record = %+v, %v", got, err)
	}
	if err := s.Cancel(ctx, a.ID, ""); !errors.Is(err, internaltypes.ErrNotScheduled) {
		t.Fatalf("double cancel: err = %v", err)
	}
	if err := s.Complete(ctx, "missing"); !errors.Is(err, internaltypes.ErrNotFound) {
		t.Fatalf("unknown id: err = %v", err)
	}
}

func TestDeleteAndComplete(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := insert(t, s, "a", true)
	b := insert(t, s, "b", false)

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, a.ID); !errors.Is(err, internaltypes.ErrNotFound) {
		t.Fatalf("deleted booking still readable: %v", err)
	}
	got, _ := s.Get(ctx, b.ID)
	if !got.IsAnchor {
		t.Fatalf("delete should promote the next booking")
	}

	if err := s.Complete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if day, _ := s.ListByDate(ctx, monday); len(day) != 0 {
		t.Fatalf("completed bookings are not active: %+v", day)
	}
}

func TestCompleteBefore(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 4; i++ {
		if _, err := s.Insert(ctx, booking.Booking{Date: monday.AddDate(0, 0, i)}, 3); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CompleteBefore(ctx, monday.AddDate(0, 0, 2))
	if err != nil || n != 2 {
		t.Fatalf("moved %d, %v", n, err)
	}
	left, _ := s.ListByRange(ctx, monday, monday.AddDate(0, 0, 10))
	if len(left) != 2 || !left[0].Date.Equal(monday.AddDate(0, 0, 2)) {
		t.Fatalf("left = %+v", left)
	}
}
