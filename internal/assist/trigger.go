// internal/assist/trigger.go
package assist

import (
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// burstGate is the state shared by the detector and the worker.
//
// simulating is raised by the detector in the same compare-and-swap that
// wins the right to enqueue, so a pending signal always implies simulating.
// Only the worker lowers it.
type burstGate struct {
	simulating atomic.Bool
	signals    chan Trigger
}

func newBurstGate() *burstGate {
	return &burstGate{signals: make(chan Trigger, 1)}
}

// tryArm enqueues t unless a burst is pending or running. It never blocks.
func (g *burstGate) tryArm(t Trigger) bool {
	if !g.simulating.CompareAndSwap(false, true) {
		return false
	}
	select {
	case g.signals <- t:
		return true
	default:
		// A signal is already queued, and simulating is true, which is the
		// state that signal implies anyway.
		return false
	}
}

// Simulating reports whether a burst is pending or in progress.
func (g *burstGate) Simulating() bool {
	return g.simulating.Load()
}

// pending reports whether a signal is waiting for the worker.
func (g *burstGate) pending() int {
	return len(g.signals)
}

// ceiling caps the combined real and synthetic click stream at the hard CPS
// limit. The bucket holds one window's worth of clicks so an organic burst
// is not clipped. A nil ceiling, used when the limit is zero, allows every
// click.
type ceiling struct {
	lim *rate.Limiter
}

func newCeiling(hardCPS float64, window time.Duration) *ceiling {
	if hardCPS <= 0 {
		return nil
	}
	burst := int(math.Floor(hardCPS * window.Seconds()))
	if burst < 1 {
		burst = 1
	}
	return &ceiling{lim: rate.NewLimiter(rate.Limit(hardCPS), burst)}
}

// take consumes one click token at now, reporting whether it was available.
func (c *ceiling) take(now time.Time) bool {
	if c == nil {
		return true
	}
	return c.lim.AllowN(now, 1)
}

// TriggerDetector watches real clicks and signals the worker when two
// qualifying presses land within the double-click threshold.
type TriggerDetector struct {
	buttons   map[Button]struct{}
	threshold time.Duration
	window    *RateWindow
	gate      *burstGate
	ceiling   *ceiling
	stats     *counters
	clock     Clock
	logger    *zap.Logger
}

func newTriggerDetector(buttons []Button, threshold time.Duration, sh *shared, logger *zap.Logger) *TriggerDetector {
	set := make(map[Button]struct{}, len(buttons))
	for _, b := range buttons {
		set[b] = struct{}{}
	}
	return &TriggerDetector{
		buttons:   set,
		threshold: threshold,
		window:    sh.window,
		gate:      sh.gate,
		ceiling:   sh.ceiling,
		stats:     sh.stats,
		clock:     sh.clock,
		logger:    logger.Named("trigger"),
	}
}

// OnClick handles one physical button transition. It runs on the input
// callback path and never blocks.
func (d *TriggerDetector) OnClick(button Button, pressed bool) {
	if !pressed {
		return
	}
	if _, ok := d.buttons[button]; !ok {
		return
	}

	now := d.clock.Now()
	prev, hasPrev := d.window.RecordAndPrev(now)
	d.ceiling.take(now)
	d.stats.realClicks.Add(1)

	if d.gate.Simulating() {
		return
	}
	if !isDoubleClick(now, prev, hasPrev, d.threshold) {
		return
	}
	if d.gate.tryArm(Trigger{Button: button, At: now}) {
		d.stats.triggers.Add(1)
		d.logger.Debug("Double click detected, burst armed.",
			zap.String("button", string(button)),
			zap.Duration("gap", now.Sub(prev)))
	}
}

// isDoubleClick reports whether the click at now follows prev closely
// enough. Without a previous timestamp there is nothing to pair with.
func isDoubleClick(now, prev time.Time, hasPrev bool, threshold time.Duration) bool {
	if !hasPrev {
		return false
	}
	return now.Sub(prev) <= threshold
}
