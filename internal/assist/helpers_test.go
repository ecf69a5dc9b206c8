// internal/assist/helpers_test.go
package assist

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/clickassist/internal/config"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// fakeCursor is an in-memory Cursor with injectable failures.
type fakeCursor struct {
	mu      sync.Mutex
	pos     Point
	posErr  error
	moveErr error
	moves   []Point
}

func (c *fakeCursor) Position() (Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.posErr != nil {
		return Point{}, c.posErr
	}
	return c.pos, nil
}

func (c *fakeCursor) MoveRelative(dx, dy int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.moveErr != nil {
		return c.moveErr
	}
	c.pos = c.pos.Add(Point{X: dx, Y: dy})
	c.moves = append(c.moves, Point{X: dx, Y: dy})
	return nil
}

// nudge simulates physical motion.
func (c *fakeCursor) nudge(dx, dy int) {
	c.mu.Lock()
	c.pos = c.pos.Add(Point{X: dx, Y: dy})
	c.mu.Unlock()
}

func (c *fakeCursor) movesSnapshot() []Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Point(nil), c.moves...)
}

// fakeClicker records emitted transitions.
type fakeClicker struct {
	mu         sync.Mutex
	presses    int
	releases   int
	pressErr   error
	releaseErr error
	// onPress runs after a successful press, outside the lock.
	onPress func()
}

func (c *fakeClicker) Press(Button) error {
	c.mu.Lock()
	if c.pressErr != nil {
		c.mu.Unlock()
		return c.pressErr
	}
	c.presses++
	hook := c.onPress
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (c *fakeClicker) Release(Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.releaseErr != nil {
		return c.releaseErr
	}
	c.releases++
	return nil
}

func (c *fakeClicker) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presses, c.releases
}

// recordingSleeper returns immediately and remembers what it was asked to
// sleep. It optionally advances a fake clock by the same amount.
type recordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
	clock *fakeClock
	// failAt makes the n-th call (1-based) report cancellation.
	failAt int
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	n := len(s.calls)
	s.mu.Unlock()
	if s.clock != nil {
		s.clock.Advance(d)
	}
	if s.failAt > 0 && n == s.failAt {
		return context.Canceled
	}
	return ctx.Err()
}

func (s *recordingSleeper) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

func defaultAssist() config.AssistConfig {
	return config.NewDefaultConfig().Assist()
}

func defaultDamping() config.DampingConfig {
	return config.NewDefaultConfig().Damping()
}

func newTestShared(cfg config.AssistConfig, clock Clock) *shared {
	return &shared{
		window:  NewRateWindow(cfg.Window),
		gate:    newBurstGate(),
		ceiling: newCeiling(cfg.HardCPSLimit, cfg.Window),
		stats:   &counters{},
		clock:   clock,
	}
}

func newTestWorker(cfg config.AssistConfig, sh *shared, clicks ClickEmitter, sleep SleepFunc, seed int64) *SimulationWorker {
	return newSimulationWorker(cfg, sh, clicks, sleep, rand.New(rand.NewSource(seed)), zap.NewNop())
}
