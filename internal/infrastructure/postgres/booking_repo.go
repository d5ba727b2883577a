package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/internaltypes"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingCols = `id, seq, customer_name, address, latitude, longitude, booking_date, booking_time,
	service_type, is_anchor, distance_from_base, distance_from_anchor, duration_from_anchor, status, created_at`

var _ booking.Store = (*BookingRepo)(nil)

type BookingRepo struct{ pool *pgxpool.Pool }

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo { return &BookingRepo{pool: pool} }

func (r *BookingRepo) ListByDate(ctx context.Context, date time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE booking_date=$1 ORDER BY seq`, booking.Day(date))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *BookingRepo) ListByRange(ctx context.Context, start, end time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE booking_date BETWEEN $1 AND $2 ORDER BY booking_date, seq`,
		booking.Day(start), booking.Day(end))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *BookingRepo) Get(ctx context.Context, id string) (booking.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingCols+`, NULL::timestamptz, '' FROM bookings WHERE id=$1
		UNION ALL
		SELECT `+bookingCols+`, closed_at, cancel_reason FROM cancelled_bookings WHERE id=$1
		UNION ALL
		SELECT `+bookingCols+`, closed_at, cancel_reason FROM completed_bookings WHERE id=$1
		LIMIT 1`, id)
	b, err := scanBooking(row, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Booking{}, internaltypes.ErrNotFound
		}
		return booking.Booking{}, err
	}
	return b, nil
}

// Insert re-checks capacity and anchor uniqueness under a per-date advisory
// lock. The partial unique index on anchors backs up the check.
func (r *BookingRepo) Insert(ctx context.Context, b booking.Booking, maxPerDay int) (booking.Booking, error) {
	b.Date = booking.Day(b.Date)
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Status = booking.StatusScheduled

	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockDate(ctx, tx, b.Date); err != nil {
			return err
		}
		var count int
		var hasAnchor bool
		if err := tx.QueryRow(ctx,
			`SELECT count(*), coalesce(bool_or(is_anchor), false) FROM bookings WHERE booking_date=$1`,
			b.Date).Scan(&count, &hasAnchor); err != nil {
			return err
		}
		if count >= maxPerDay {
			return fmt.Errorf("%s: %w", booking.FormatDate(b.Date), internaltypes.ErrDayFull)
		}
		if count == 0 {
			b.IsAnchor = true
			b.DistanceFromAnchor, b.DurationFromAnchor = nil, nil
		} else if b.IsAnchor && hasAnchor {
			return fmt.Errorf("%s: %w", booking.FormatDate(b.Date), internaltypes.ErrAnchorTaken)
		}

		return tx.QueryRow(ctx, `
			INSERT INTO bookings (id, customer_name, address, latitude, longitude, booking_date, booking_time,
				service_type, is_anchor, distance_from_base, distance_from_anchor, duration_from_anchor, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING seq, created_at`,
			b.ID, b.CustomerName, b.Address, b.Latitude, b.Longitude, b.Date, toPgTime(b.Time),
			b.ServiceType, b.IsAnchor, b.DistanceFromBase, b.DistanceFromAnchor, b.DurationFromAnchor, string(b.Status),
		).Scan(&b.Seq, &b.CreatedAt)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return booking.Booking{}, fmt.Errorf("%s: %w", booking.FormatDate(b.Date), internaltypes.ErrAnchorTaken)
		}
		return booking.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) Cancel(ctx context.Context, id, reason string) error {
	return r.move(ctx, id, "cancelled_bookings", booking.StatusCancelled, reason)
}

func (r *BookingRepo) Complete(ctx context.Context, id string) error {
	return r.move(ctx, id, "completed_bookings", booking.StatusCompleted, "")
}

func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		date, anchor, err := r.lockActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id); err != nil {
			return err
		}
		if anchor {
			return promote(ctx, tx, date)
		}
		return nil
	})
	if !errors.Is(err, internaltypes.ErrNotScheduled) {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cancelled_bookings WHERE id=$1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM completed_bookings WHERE id=$1`, id)
		return err
	})
}

func (r *BookingRepo) CompleteBefore(ctx context.Context, day time.Time) (int, error) {
	var moved int
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO completed_bookings (`+bookingCols+`, closed_at)
			SELECT id, seq, customer_name, address, latitude, longitude, booking_date, booking_time,
				service_type, is_anchor, distance_from_base, distance_from_anchor, duration_from_anchor, 'completed', created_at, now()
			FROM bookings WHERE booking_date < $1`, booking.Day(day)); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM bookings WHERE booking_date < $1`, booking.Day(day))
		if err != nil {
			return err
		}
		moved = int(tag.RowsAffected())
		return nil
	})
	return moved, err
}

// move archives an active booking into table and hands the anchor on when
// the booking held it.
func (r *BookingRepo) move(ctx context.Context, id, table string, status booking.Status, reason string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		date, anchor, err := r.lockActive(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+table+` (`+bookingCols+`, closed_at, cancel_reason)
			SELECT id, seq, customer_name, address, latitude, longitude, booking_date, booking_time,
				service_type, is_anchor, distance_from_base, distance_from_anchor, duration_from_anchor, $2, created_at, now(), $3
			FROM bookings WHERE id=$1`, id, string(status), reason); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id); err != nil {
			return err
		}
		if anchor {
			return promote(ctx, tx, date)
		}
		return nil
	})
}

// lockActive row-locks an active booking and takes its date lock. A booking
// that only exists in an archive table yields ErrNotScheduled.
func (r *BookingRepo) lockActive(ctx context.Context, tx pgx.Tx, id string) (time.Time, bool, error) {
	var date time.Time
	var anchor bool
	err := tx.QueryRow(ctx, `SELECT booking_date, is_anchor FROM bookings WHERE id=$1 FOR UPDATE`, id).Scan(&date, &anchor)
	if errors.Is(err, pgx.ErrNoRows) {
		var archived bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM cancelled_bookings WHERE id=$1)
				OR EXISTS(SELECT 1 FROM completed_bookings WHERE id=$1)`, id).Scan(&archived); err != nil {
			return time.Time{}, false, err
		}
		if archived {
			return time.Time{}, false, fmt.Errorf("booking %s: %w", id, internaltypes.ErrNotScheduled)
		}
		return time.Time{}, false, internaltypes.ErrNotFound
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return date, anchor, lockDate(ctx, tx, date)
}

func lockDate(ctx context.Context, tx pgx.Tx, date time.Time) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "bookings:"+booking.FormatDate(date))
	return err
}

func promote(ctx context.Context, tx pgx.Tx, date time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE bookings SET is_anchor=TRUE, distance_from_anchor=NULL, duration_from_anchor=NULL
		WHERE id = (SELECT id FROM bookings WHERE booking_date=$1 ORDER BY seq LIMIT 1)`, date)
	return err
}

func collect(rows pgx.Rows) ([]booking.Booking, error) {
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row, archived bool) (booking.Booking, error) {
	var (
		b      booking.Booking
		at     pgtype.Time
		status string
	)
	dest := []any{
		&b.ID, &b.Seq, &b.CustomerName, &b.Address, &b.Latitude, &b.Longitude, &b.Date, &at,
		&b.ServiceType, &b.IsAnchor, &b.DistanceFromBase, &b.DistanceFromAnchor, &b.DurationFromAnchor, &status, &b.CreatedAt,
	}
	if archived {
		dest = append(dest, &b.ClosedAt, &b.CancelReason)
	}
	if err := row.Scan(dest...); err != nil {
		return booking.Booking{}, err
	}
	b.Date = booking.Day(b.Date)
	b.Time = fromPgTime(at)
	b.Status = booking.Status(status)
	return b, nil
}

func toPgTime(c *booking.Clock) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(c.Minutes()) * int64(time.Minute/time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) *booking.Clock {
	if !t.Valid {
		return nil
	}
	c := booking.Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
	return &c
}
