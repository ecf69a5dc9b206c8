// internal/assist/trigger_test.go
package assist

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDetector(clock *fakeClock) (*TriggerDetector, *shared) {
	cfg := defaultAssist()
	sh := newTestShared(cfg, clock)
	d := newTriggerDetector([]Button{ButtonLeft, ButtonRight}, cfg.DoubleClickThreshold, sh, zap.NewNop())
	return d, sh
}

func TestTriggerDetector_DoubleClick(t *testing.T) {
	tests := []struct {
		name    string
		gap     time.Duration
		trigger bool
	}{
		{name: "fast double click arms a burst", gap: 100 * time.Millisecond, trigger: true},
		{name: "gap equal to threshold arms a burst", gap: 150 * time.Millisecond, trigger: true},
		{name: "slow second click does nothing", gap: 151 * time.Millisecond, trigger: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			d, sh := newTestDetector(clock)

			d.OnClick(ButtonLeft, true)
			assert.False(t, sh.gate.Simulating(), "a single click never arms")
			clock.Advance(tt.gap)
			d.OnClick(ButtonLeft, true)

			assert.Equal(t, tt.trigger, sh.gate.Simulating())
			if tt.trigger {
				assert.Equal(t, 1, sh.gate.pending())
				trig := <-sh.gate.signals
				assert.Equal(t, ButtonLeft, trig.Button)
				assert.Equal(t, clock.Now(), trig.At)
				assert.EqualValues(t, 1, sh.stats.triggers.Load())
			} else {
				assert.Zero(t, sh.gate.pending())
			}
			assert.EqualValues(t, 2, sh.stats.realClicks.Load())
		})
	}
}

func TestTriggerDetector_IgnoresIrrelevantEvents(t *testing.T) {
	clock := newFakeClock()
	d, sh := newTestDetector(clock)

	d.OnClick(ButtonLeft, false)
	d.OnClick(ButtonMiddle, true)
	clock.Advance(10 * time.Millisecond)
	d.OnClick(ButtonMiddle, true)
	d.OnClick(ButtonLeft, false)

	assert.Zero(t, sh.window.Len())
	assert.Zero(t, sh.stats.realClicks.Load())
	assert.False(t, sh.gate.Simulating())
}

func TestTriggerDetector_MixedButtonsPair(t *testing.T) {
	clock := newFakeClock()
	d, sh := newTestDetector(clock)

	d.OnClick(ButtonLeft, true)
	clock.Advance(50 * time.Millisecond)
	d.OnClick(ButtonRight, true)

	require.True(t, sh.gate.Simulating())
	assert.Equal(t, ButtonRight, (<-sh.gate.signals).Button, "the burst repeats the button that completed the pair")
}

func TestTriggerDetector_NoSignalWhileSimulating(t *testing.T) {
	clock := newFakeClock()
	d, sh := newTestDetector(clock)
	sh.gate.simulating.Store(true)

	d.OnClick(ButtonLeft, true)
	clock.Advance(50 * time.Millisecond)
	d.OnClick(ButtonLeft, true)

	assert.Zero(t, sh.gate.pending())
	assert.Zero(t, sh.stats.triggers.Load())
	assert.Equal(t, 2, sh.window.Len(), "clicks still count toward the rate")
}

func TestTriggerDetector_AtMostOnePendingSignal(t *testing.T) {
	clock := newFakeClock()
	d, sh := newTestDetector(clock)

	for i := 0; i < 6; i++ {
		d.OnClick(ButtonLeft, true)
		clock.Advance(20 * time.Millisecond)
	}

	assert.Equal(t, 1, sh.gate.pending())
	assert.EqualValues(t, 1, sh.stats.triggers.Load())
}

func TestBurstGate_ConcurrentArm(t *testing.T) {
	g := newBurstGate()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.tryArm(Trigger{Button: ButtonLeft}) {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.Equal(t, 1, g.pending())
	assert.True(t, g.Simulating())
}

func TestCeiling(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)

	t.Run("bucket holds one window of clicks", func(t *testing.T) {
		c := newCeiling(18, 300*time.Millisecond)
		for i := 0; i < 5; i++ {
			require.True(t, c.take(t0), "token %d", i)
		}
		assert.False(t, c.take(t0))
		// One token refills every 1/18 s.
		assert.True(t, c.take(t0.Add(56*time.Millisecond)))
		assert.False(t, c.take(t0.Add(56*time.Millisecond)))
	})

	t.Run("burst never drops below one", func(t *testing.T) {
		c := newCeiling(2, 100*time.Millisecond)
		assert.True(t, c.take(t0))
		assert.False(t, c.take(t0))
	})

	t.Run("zero limit disables the ceiling", func(t *testing.T) {
		c := newCeiling(0, 300*time.Millisecond)
		assert.Nil(t, c)
		for i := 0; i < 100; i++ {
			require.True(t, c.take(t0))
		}
	})

	t.Run("sustained rate never exceeds the limit", func(t *testing.T) {
		c := newCeiling(18, 300*time.Millisecond)
		allowed := 0
		for ms := 0; ms < 10_000; ms++ {
			if c.take(t0.Add(time.Duration(ms) * time.Millisecond)) {
				allowed++
			}
		}
		// 10s at 18 cps plus the initial bucket.
		assert.LessOrEqual(t, allowed, 18*10+5)
		assert.GreaterOrEqual(t, allowed, 18*10)
	})
}

func TestIsDoubleClick(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	assert.False(t, isDoubleClick(t0, time.Time{}, false, time.Second))
	assert.True(t, isDoubleClick(t0.Add(time.Millisecond), t0, true, time.Second))
	assert.False(t, isDoubleClick(t0.Add(2*time.Second), t0, true, time.Second))
}
