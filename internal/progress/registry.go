package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/formacionweb360/training-service/internal/metrics"
)

type entry struct {
	tracker *Tracker
	stop    chan struct{}
	done    chan struct{}
}

// Registry runs one ticking goroutine per open course view
type Registry struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	trackers map[Key]*entry
	closed   bool
}

func NewRegistry(cfg Config, logger *slog.Logger) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		trackers: make(map[Key]*entry),
	}
}

// Start begins tracking key seeded with the persisted progress. When a
// tracker already runs for key it is touched and returned unchanged.
// running is false after Shutdown: the returned tracker never ticks.
func (r *Registry) Start(key Key, seed int, flush Flusher) (tracker *Tracker, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.trackers[key]; ok {
		e.tracker.Touch(r.now())
		return e.tracker, true
	}

	t := NewTracker(key, seed, r.cfg, flush, r.now())
	if r.closed {
		return t, false
	}

	e := &entry{
		tracker: t,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.trackers[key] = e
	metrics.ActiveTrackers.Inc()

	go r.run(e)
	return t, true
}

// Get returns the running tracker for key
func (r *Registry) Get(key Key) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.trackers[key]
	if !ok {
		return nil, false
	}
	return e.tracker, true
}

// Heartbeat keeps the tracker of key alive
func (r *Registry) Heartbeat(key Key) (*Tracker, bool) {
	t, ok := r.Get(key)
	if ok {
		t.Touch(r.now())
	}
	return t, ok
}

// Stop flushes pending progress and stops the tracker. Returns the final
// accrued value, or false when no tracker was running.
func (r *Registry) Stop(ctx context.Context, key Key) (int, bool, error) {
	e := r.detach(key)
	if e == nil {
		return 0, false, nil
	}
	r.halt(e)

	value := e.tracker.Value()
	if err := e.tracker.Flush(ctx); err != nil {
		r.recordFlush(err)
		return value, true, err
	}
	return value, true, nil
}

// Discard stops the tracker without writing, used once a record is completed
func (r *Registry) Discard(key Key) {
	if e := r.detach(key); e != nil {
		r.halt(e)
	}
}

// Len returns the number of running trackers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Shutdown flushes and stops every tracker. Later Start calls report
// running false.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := make([]*entry, 0, len(r.trackers))
	for key, e := range r.trackers {
		entries = append(entries, e)
		delete(r.trackers, key)
		metrics.ActiveTrackers.Dec()
	}
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		r.halt(e)
		if err := e.tracker.Flush(ctx); err != nil {
			r.recordFlush(err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		r.logger.Error("Progress flush on shutdown failed", "failed", len(errs), "trackers", len(entries))
	}
	return errors.Join(errs...)
}

func (r *Registry) run(e *entry) {
	defer close(e.done)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	key := e.tracker.Key()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
		}

		if e.tracker.Idle(r.now()) {
			if r.detachEntry(key, e) {
				if err := e.tracker.Flush(context.Background()); err != nil {
					r.recordFlush(err)
					r.logger.Error("Failed to flush idle progress", "user_id", key.UserID, "course_id", key.CourseID, "error", err)
				}
				r.logger.Info("Progress tracker stopped after idle timeout", "user_id", key.UserID, "course_id", key.CourseID)
			}
			return
		}

		flushed, err := e.tracker.Tick(context.Background())
		switch {
		case errors.Is(err, ErrRecordClosed):
			r.detachEntry(key, e)
			r.logger.Info("Progress tracker stopped, record closed", "user_id", key.UserID, "course_id", key.CourseID)
			return
		case err != nil:
			r.recordFlush(err)
			r.logger.Warn("Progress flush failed, retrying on next eligible tick",
				"user_id", key.UserID, "course_id", key.CourseID, "value", e.tracker.Value(), "error", err)
		case flushed:
			r.recordFlush(nil)
		}
	}
}

func (r *Registry) detach(key Key) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.trackers[key]
	if !ok {
		return nil
	}
	delete(r.trackers, key)
	metrics.ActiveTrackers.Dec()
	return e
}

// detachEntry removes e only if it is still the registered tracker of key
func (r *Registry) detachEntry(key Key, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.trackers[key]; !ok || current != e {
		return false
	}
	delete(r.trackers, key)
	metrics.ActiveTrackers.Dec()
	return true
}

// halt stops the goroutine of e and waits for it
func (r *Registry) halt(e *entry) {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
	<-e.done
}

func (r *Registry) recordFlush(err error) {
	if err != nil {
		metrics.ProgressFlushes.WithLabelValues("error").Inc()
		return
	}
	metrics.ProgressFlushes.WithLabelValues("ok").Inc()
}
