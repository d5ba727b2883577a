package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/internaltypes"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgTimeRoundTrip(t *testing.T) {
	if got := fromPgTime(toPgTime(nil)); got != nil {
		t.Fatalf("nil time should stay nil, got %v", got)
	}
	for _, s := range []string{"00:00", "08:00", "11:30", "23:59"} {
		c := booking.MustClock(s)
		if got := fromPgTime(toPgTime(&c)); got == nil || *got != c {
			t.Fatalf("%s -> %v", s, got)
		}
	}
}

func TestMigrationFilesAreOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 || files[0] != "0001_bookings.sql" {
		t.Fatalf("files = %v", files)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("23505 is a unique violation")
	}
	if isUniqueViolation(errors.New("23505")) || isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("only PgError 23505 counts")
	}
}

// TestBookingRepo runs against a real database when ROUTESCHED_TEST_DATABASE_URL
// points at a disposable one.
func TestBookingRepo(t *testing.T) {
	url := os.Getenv("ROUTESCHED_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROUTESCHED_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE bookings, cancelled_bookings, completed_bookings`); err != nil {
		t.Fatal(err)
	}

	repo := NewBookingRepo(pool)
	date := time.Date(2031, 3, 3, 0, 0, 0, 0, time.UTC)
	at := booking.MustClock("08:00")

	a, err := repo.Insert(ctx, booking.Booking{Address: "1 A St", Date: date, Time: &at}, 3)
	if err != nil || !a.IsAnchor {
		t.Fatalf("first insert: %+v, %v", a, err)
	}
	miles, mins := 3.2, 7
	b, err := repo.Insert(ctx, booking.Booking{Address: "2 B St", Date: date, DistanceFromAnchor: &miles, DurationFromAnchor: &mins}, 3)
	if err != nil || b.IsAnchor {
		t.Fatalf("second insert: %+v, %v", b, err)
	}
	if _, err := repo.Insert(ctx, booking.Booking{Address: "x", Date: date, IsAnchor: true}, 3); !errors.Is(err, internaltypes.ErrAnchorTaken) {
		t.Fatalf("second anchor: %v", err)
	}
	if _, err := repo.Insert(ctx, booking.Booking{Address: "3 C St", Date: date}, 2); !errors.Is(err, internaltypes.ErrDayFull) {
		t.Fatalf("over capacity: %v", err)
	}

	day, err := repo.ListByDate(ctx, date)
	if err != nil || len(day) != 2 || day[0].Time == nil || *day[0].Time != at {
		t.Fatalf("list: %+v, %v", day, err)
	}

	if err := repo.Cancel(ctx, a.ID, "moved away"); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, b.ID)
	if err != nil || !got.IsAnchor || got.DistanceFromAnchor != nil {
		t.Fatalf("promoted: %+v, %v", got, err)
	}
	got, err = repo.Get(ctx, a.ID)
	if err != nil || got.Status != booking.StatusCancelled || got.CancelReason != "moved away" {
		t.Fatalf("cancelled: %+v, %v", got, err)
	}
	if err := repo.Complete(ctx, a.ID); !errors.Is(err, internaltypes.ErrNotScheduled) {
		t.Fatalf("complete cancelled: %v", err)
	}

	n, err := repo.CompleteBefore(ctx, date.AddDate(0, 0, 1))
	if err != nil || n != 1 {
		t.Fatalf("sweep: %d, %v", n, err)
	}
	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Get(ctx, b.ID); !errors.Is(err, internaltypes.ErrNotFound) {
		t.Fatalf("deleted: %v", err)
	}
}
