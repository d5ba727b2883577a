// Package memory is an in-process booking store for development and tests.
// It enforces the same per-date capacity and anchor rules as the Postgres
// store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/example/route-scheduler/internal/internaltypes"
	"github.com/google/uuid"
)

var _ booking.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	seq    int64
	active map[string]booking.Booking
	closed map[string]booking.Booking
	now    func() time.Time
}

func New() *Store {
	return &Store{
		active: make(map[string]booking.Booking),
		closed: make(map[string]booking.Booking),
		now:    time.Now,
	}
}

func (s *Store) ListByDate(_ context.Context, date time.Time) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onDate(booking.Day(date)), nil
}

func (s *Store) ListByRange(_ context.Context, start, end time.Time) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to := booking.Day(start), booking.Day(end)
	var out []booking.Booking
	for _, b := range s.active {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	sortBySeq(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.active[id]; ok {
		return b, nil
	}
	if b, ok := s.closed[id]; ok {
		return b, nil
	}
	return booking.Booking{}, internaltypes.ErrNotFound
}

func (s *Store) Insert(_ context.Context, b booking.Booking, maxPerDay int) (booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.Date = booking.Day(b.Date)
	day := s.onDate(b.Date)
	if len(day) >= maxPerDay {
		return booking.Booking{}, fmt.Errorf("%s: %w", booking.FormatDate(b.Date), internaltypes.ErrDayFull)
	}
	if len(day) == 0 {
		b.IsAnchor = true
		b.DistanceFromAnchor, b.DurationFromAnchor = nil, nil
	} else if b.IsAnchor {
		return booking.Booking{}, fmt.Errorf("%s: %w", booking.FormatDate(b.Date), internaltypes.ErrAnchorTaken)
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, dup := s.active[b.ID]; dup {
		return booking.Booking{}, fmt.Errorf("booking %s already exists", b.ID)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	s.seq++
	b.Seq = s.seq
	b.Status = booking.StatusScheduled
	s.active[b.ID] = b
	return b, nil
}

func (s *Store) Cancel(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close(id, booking.StatusCancelled, reason)
}

func (s *Store) Complete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.close(id, booking.StatusCompleted, "")
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.active[id]; ok {
		delete(s.active, id)
		if b.IsAnchor {
			s.promote(b.Date)
		}
		return nil
	}
	if _, ok := s.closed[id]; ok {
		delete(s.closed, id)
		return nil
	}
	return internaltypes.ErrNotFound
}

func (s *Store) CompleteBefore(_ context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := booking.Day(day)
	var ids []string
	for id, b := range s.active {
		if b.Date.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if err := s.close(id, booking.StatusCompleted, ""); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *Store) close(id string, status booking.Status, reason string) error {
	b, ok := s.active[id]
	if !ok {
		if _, done := s.closed[id]; done {
			return fmt.Errorf("booking %s: %w", id, internaltypes.ErrNotScheduled)
		}
		return internaltypes.ErrNotFound
	}
	delete(s.active, id)
	now := s.now().UTC()
	b.Status = status
	b.ClosedAt = &now
	b.CancelReason = reason
	s.closed[id] = b
	if b.IsAnchor {
		s.promote(b.Date)
	}
	return nil
}

// promote hands the anchor to the earliest-created remaining booking.
func (s *Store) promote(date time.Time) {
	day := s.onDate(date)
	if len(day) == 0 {
		return
	}
	next := day[0]
	next.IsAnchor = true
	next.DistanceFromAnchor, next.DurationFromAnchor = nil, nil
	s.active[next.ID] = next
}

func (s *Store) onDate(date time.Time) []booking.Booking {
	var out []booking.Booking
	for _, b := range s.active {
		if b.Date.Equal(date) {
			out = append(out, b)
		}
	}
	sortBySeq(out)
	return out
}

func sortBySeq(bs []booking.Booking) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Seq < bs[j].Seq })
}
