package usecases

import (
	"context"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"go.uber.org/zap"
)

// Sweeper periodically moves bookings dated before today out of the active
// calendar and into the completed set.
type Sweeper struct {
	Store    booking.Store
	Interval time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger().Error("completion sweep failed", zap.Error(err))
	}
}

// Sweep runs one pass and reports how many bookings moved.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := booking.Day(now())
	n, err := s.Store.CompleteBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger().Info("completed past bookings", zap.Int("count", n), zap.String("before", booking.FormatDate(today)))
	}
	return n, nil
}

func (s *Sweeper) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
