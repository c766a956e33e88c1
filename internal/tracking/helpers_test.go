package tracking

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"backend-qingheplan/internal/shared/geo"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// walker produces fixes moving north, stamped with the fake clock.
type walker struct {
	clock *fakeClock
	pos   orb.Point
}

func newWalker(clock *fakeClock) *walker {
	return &walker{clock: clock, pos: geo.Point(31.2304, 121.4737)}
}

func (w *walker) step(meters float64, dt time.Duration) RawFix {
	w.clock.Advance(dt)
	w.pos = geo.OffsetNorth(w.pos, meters)
	return RawFix{
		Latitude:           w.pos.Lat(),
		Longitude:          w.pos.Lon(),
		HorizontalAccuracy: 5,
		Timestamp:          w.clock.Now(),
	}
}

type recordingStore struct {
	saved chan Workout
	err   error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(chan Workout, 4)}
}

func (r *recordingStore) SaveWorkout(_ context.Context, w Workout) error {
	r.saved <- w
	return r.err
}

func (r *recordingStore) next(t *testing.T) Workout {
	t.Helper()
	select {
	case w := <-r.saved:
		return w
	case <-time.After(time.Second):
		t.Fatalf("expected workout export")
	}
	return Workout{}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func testConfig() Config {
	return DefaultConfig()
}
