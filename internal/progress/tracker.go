package progress

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRecordClosed is returned by a Flusher when the record can no longer
// accrue, e.g. it was completed elsewhere. The tracker stops on it.
var ErrRecordClosed = errors.New("progress record closed")

// Flusher persists the accrued value of a record
type Flusher func(ctx context.Context, value int) error

// Config controls tick cadence and write amplification
type Config struct {
	TickInterval time.Duration
	TickUnit     int
	FlushEvery   int
	IdleTimeout  time.Duration
	FlushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.TickUnit <= 0 {
		c.TickUnit = 1
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = 2
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

// Key identifies a tracked (user, course) pair
type Key struct {
	UserID   uint
	CourseID uint
}

// Tracker accrues progress for one record
type Tracker struct {
	key   Key
	cfg   Config
	flush Flusher

	mu        sync.Mutex
	value     int
	persisted int
	lastSeen  time.Time
}

func NewTracker(key Key, seed int, cfg Config, flush Flusher, now time.Time) *Tracker {
	return &Tracker{
		key:       key,
		cfg:       cfg.withDefaults(),
		flush:     flush,
		value:     seed,
		persisted: seed,
		lastSeen:  now,
	}
}

func (t *Tracker) Key() Key {
	return t.key
}

// Value returns the accrued progress including unflushed ticks
func (t *Tracker) Value() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Pending reports whether accrued progress has not been persisted yet
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value != t.persisted
}

// Touch records a heartbeat
func (t *Tracker) Touch(now time.Time) {
	t.mu.Lock()
	t.lastSeen = now
	t.mu.Unlock()
}

// Idle reports whether no heartbeat arrived within the idle timeout
func (t *Tracker) Idle(now time.Time) bool {
	if t.cfg.IdleTimeout <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return now.Sub(t.lastSeen) > t.cfg.IdleTimeout
}

// Tick adds one unit and flushes when the counter reaches a positive multiple
// of unit*flushEvery. A failed flush leaves the value pending; the next
// eligible tick writes the newer total.
func (t *Tracker) Tick(ctx context.Context) (flushed bool, err error) {
	t.mu.Lock()
	t.value += t.cfg.TickUnit
	value := t.value
	t.mu.Unlock()

	if value <= 0 || value%(t.cfg.TickUnit*t.cfg.FlushEvery) != 0 {
		return false, nil
	}
	if err := t.write(ctx, value); err != nil {
		return false, err
	}
	return true, nil
}

// Flush writes the accrued value when it differs from the persisted one
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	value, persisted := t.value, t.persisted
	t.mu.Unlock()

	if value == persisted || value <= 0 {
		return nil
	}
	return t.write(ctx, value)
}

func (t *Tracker) write(ctx context.Context, value int) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.FlushTimeout)
	defer cancel()

	if err := t.flush(ctx, value); err != nil {
		return err
	}

	t.mu.Lock()
	if value > t.persisted {
		t.persisted = value
	}
	t.mu.Unlock()
	return nil
}
