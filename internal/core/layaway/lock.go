package layaway

import (
	"time"

	"github.com/zeusync/metricstore/internal/core/observability/log"
)

// Locker is the pair of actions a ReentrantLock runs on its outermost
// acquire and release.
type Locker interface {
	Acquire() error
	Release() error
}

type nopLocker struct{}

func (nopLocker) Acquire() error { return nil }
func (nopLocker) Release() error { return nil }

// ReentrantLock counts nested lock requests so only the outermost pair runs
// the Locker. It does not exclude goroutines; callers serialize access.
type ReentrantLock struct {
	depth      int
	locker     Locker
	obtainedAt time.Time
	logger     log.Log
}

func NewReentrantLock(locker Locker, logger log.Log) *ReentrantLock {
	if locker == nil {
		locker = nopLocker{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &ReentrantLock{locker: locker, logger: logger}
}

func (l *ReentrantLock) Depth() int {
	return l.depth
}

func (l *ReentrantLock) Locked() bool {
	return l.depth > 0
}

// Increment acquires on the 0 to 1 transition. If acquisition fails the
// depth stays at 0.
func (l *ReentrantLock) Increment() error {
	if l.depth > 0 {
		l.depth++
		l.logger.Debug("Incremented layaway lock count", log.Int("depth", l.depth))
		return nil
	}

	l.logger.Debug("Obtaining layaway lock")
	if err := l.locker.Acquire(); err != nil {
		return err
	}
	l.obtainedAt = time.Now()
	l.depth = 1
	return nil
}

// Decrement releases on the 1 to 0 transition.
func (l *ReentrantLock) Decrement() error {
	if l.depth == 0 {
		return ErrNotLocked
	}

	l.depth--
	if l.depth > 0 {
		l.logger.Debug("Decremented layaway lock count", log.Int("depth", l.depth))
		return nil
	}

	l.logger.Debug("Releasing layaway lock")
	err := l.locker.Release()
	l.logger.Debug("Held layaway lock", log.Duration("held", time.Since(l.obtainedAt)))
	l.obtainedAt = time.Time{}
	return err
}
