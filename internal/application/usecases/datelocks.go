package usecases

import (
	"sync"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
)

// DateLocks hands out one mutex per calendar date. Entries are dropped when
// nobody holds or waits on them.
type DateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	mu   sync.Mutex
	refs int
}

func NewDateLocks() *DateLocks {
	return &DateLocks{locks: make(map[string]*dateLock)}
}

// Lock blocks until date is free and returns the matching unlock.
func (d *DateLocks) Lock(date time.Time) func() {
	key := booking.FormatDate(date)

	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &dateLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}

func (d *DateLocks) held() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
