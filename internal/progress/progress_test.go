package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	writes []int
	fail   error
}

func (r *recorder) flush(ctx context.Context, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.writes = append(r.writes, value)
	return nil
}

func (r *recorder) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.writes...)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name      string
		progreso  int
		duracion  int
		completed bool
		want      int
	}{
		{"not started", 0, 30, false, 0},
		{"half", 15, 30, false, 50},
		{"rounds to nearest", 1, 3, false, 33},
		{"rounds up", 2, 3, false, 67},
		{"exact", 30, 30, false, 100},
		{"overshoot clamps", 45, 30, false, 100},
		{"no duration with progress", 5, 0, false, 100},
		{"no duration completed", 0, 0, true, 100},
		{"no duration nothing", 0, 0, false, 0},
		{"negative duration", 3, -5, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.progreso, tt.duracion, tt.completed))
		})
	}
}

func TestPercentage_Monotonic(t *testing.T) {
	for _, duracion := range []int{1, 7, 30, 90} {
		prev := 0
		for p := 0; p <= duracion*2; p++ {
			got := Percentage(p, duracion, false)
			require.GreaterOrEqual(t, got, prev, "duracion=%d progreso=%d", duracion, p)
			require.LessOrEqual(t, got, 100)
			prev = got
		}
		assert.Equal(t, 100, Percentage(CompletionValue(3, duracion), duracion, true))
	}
}

func TestCompletionValue(t *testing.T) {
	assert.Equal(t, 30, CompletionValue(4, 30))
	assert.Equal(t, 45, CompletionValue(45, 30))
}

func TestTracker_FlushesOnEvenTicks(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(Key{UserID: 1, CourseID: 2}, 0, Config{TickUnit: 1, FlushEvery: 2}, rec.flush, time.Now())
	ctx := context.Background()

	var flushedAt []int
	for i := 0; i < 5; i++ {
		flushed, err := tr.Tick(ctx)
		require.NoError(t, err)
		if flushed {
			flushedAt = append(flushedAt, tr.Value())
		}
	}

	assert.Equal(t, []int{2, 4}, flushedAt)
	assert.Equal(t, []int{2, 4}, rec.values())
	assert.Equal(t, 5, tr.Value())
	assert.True(t, tr.Pending())
}

func TestTracker_ResumesFromSeed(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(Key{UserID: 1, CourseID: 2}, 7, Config{TickUnit: 1, FlushEvery: 2}, rec.flush, time.Now())

	flushed, err := tr.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Equal(t, []int{8}, rec.values())
	assert.False(t, tr.Pending())
}

func TestTracker_RetriesOnNextEligibleTick(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(Key{UserID: 1, CourseID: 2}, 0, Config{TickUnit: 1, FlushEvery: 2}, rec.flush, time.Now())
	ctx := context.Background()

	_, err := tr.Tick(ctx)
	require.NoError(t, err)

	rec.setFail(errors.New("network down"))
	_, err = tr.Tick(ctx)
	require.Error(t, err)
	assert.True(t, tr.Pending())

	rec.setFail(nil)
	flushed, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, flushed)

	flushed, err = tr.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, flushed)
	assert.Equal(t, []int{4}, rec.values())
}

func TestTracker_FlushWritesPending(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(Key{UserID: 1, CourseID: 2}, 0, Config{TickUnit: 1, FlushEvery: 2}, rec.flush, time.Now())
	ctx := context.Background()

	require.NoError(t, tr.Flush(ctx))
	assert.Empty(t, rec.values())

	_, _ = tr.Tick(ctx)
	require.NoError(t, tr.Flush(ctx))
	assert.Equal(t, []int{1}, rec.values())

	// nothing new to write
	require.NoError(t, tr.Flush(ctx))
	assert.Equal(t, []int{1}, rec.values())
}

func TestTracker_Idle(t *testing.T) {
	start := time.Now()
	tr := NewTracker(Key{}, 0, Config{IdleTimeout: time.Minute}, func(context.Context, int) error { return nil }, start)

	assert.False(t, tr.Idle(start.Add(30*time.Second)))
	assert.True(t, tr.Idle(start.Add(2*time.Minute)))

	tr.Touch(start.Add(2 * time.Minute))
	assert.False(t, tr.Idle(start.Add(2*time.Minute+time.Second)))
}

func newTestRegistry(cfg Config) *Registry {
	return NewRegistry(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_TicksAndStopFlushes(t *testing.T) {
	reg := newTestRegistry(Config{TickInterval: 5 * time.Millisecond, TickUnit: 1, FlushEvery: 2})
	rec := &recorder{}
	key := Key{UserID: 3, CourseID: 9}

	tr, running := reg.Start(key, 0, rec.flush)
	require.True(t, running)
	again, running := reg.Start(key, 100, rec.flush)
	assert.True(t, running)
	assert.Same(t, tr, again)
	assert.Equal(t, 1, reg.Len())

	require.Eventually(t, func() bool { return len(rec.values()) >= 2 }, 2*time.Second, 5*time.Millisecond)

	value, ok, err := reg.Stop(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, reg.Len())

	writes := rec.values()
	assert.Equal(t, value, writes[len(writes)-1])

	_, ok, err = reg.Stop(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_StopsOnClosedRecord(t *testing.T) {
	reg := newTestRegistry(Config{TickInterval: 5 * time.Millisecond, TickUnit: 1, FlushEvery: 1})
	key := Key{UserID: 3, CourseID: 9}

	reg.Start(key, 0, func(context.Context, int) error { return ErrRecordClosed })

	require.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestRegistry_IdleTimeoutFlushes(t *testing.T) {
	reg := newTestRegistry(Config{TickInterval: 5 * time.Millisecond, TickUnit: 1, FlushEvery: 1000, IdleTimeout: 30 * time.Millisecond})
	rec := &recorder{}
	key := Key{UserID: 1, CourseID: 1}

	reg.Start(key, 0, rec.flush)

	require.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	require.Len(t, rec.values(), 1)
	assert.Greater(t, rec.values()[0], 0)
}

func TestRegistry_ShutdownFlushesAll(t *testing.T) {
	reg := newTestRegistry(Config{TickInterval: time.Hour})
	rec := &recorder{}

	a, _ := reg.Start(Key{UserID: 1, CourseID: 1}, 0, rec.flush)
	b, _ := reg.Start(Key{UserID: 2, CourseID: 1}, 4, rec.flush)
	_, _ = a.Tick(context.Background())
	_, _ = b.Tick(context.Background())

	require.NoError(t, reg.Shutdown(context.Background()))
	assert.Equal(t, 0, reg.Len())
	assert.ElementsMatch(t, []int{1, 5}, rec.values())

	// no goroutine is started after shutdown
	late, running := reg.Start(Key{UserID: 3, CourseID: 1}, 7, rec.flush)
	assert.False(t, running)
	assert.Equal(t, 7, late.Value())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Discard(t *testing.T) {
	reg := newTestRegistry(Config{TickInterval: time.Hour})
	rec := &recorder{}
	key := Key{UserID: 1, CourseID: 1}

	tr, _ := reg.Start(key, 0, rec.flush)
	_, _ = tr.Tick(context.Background())
	reg.Discard(key)

	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, rec.values())
}
