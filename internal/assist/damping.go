// internal/assist/damping.go
package assist

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/clickassist/internal/config"
)

const (
	// inactiveWeight is the weight at or above which damping is treated as
	// off, so the loop does not chase sub-pixel corrections forever.
	inactiveWeight = 0.995
	// weightEpsilon snaps accumulated float error onto the ramp target.
	weightEpsilon = 1e-9
)

// DampingLoop counter-moves a fraction of the observed cursor displacement
// while the click rate is high. weight and lastPos belong to the goroutine
// running Tick and are not synchronized.
type DampingLoop struct {
	cfg    config.DampingConfig
	window *RateWindow
	cursor Cursor
	stats  *counters
	clock  Clock
	logger *zap.Logger

	stepDown float64
	stepUp   float64

	weight  float64
	lastPos Point
	// resync makes the next successful read adopt the raw position.
	resync bool
}

func newDampingLoop(cfg config.DampingConfig, sh *shared, cursor Cursor, logger *zap.Logger) *DampingLoop {
	stepDown, stepUp := rampSteps(cfg)
	return &DampingLoop{
		cfg:      cfg,
		window:   sh.window,
		cursor:   cursor,
		stats:    sh.stats,
		clock:    sh.clock,
		logger:   logger.Named("damping"),
		stepDown: stepDown,
		stepUp:   stepUp,
		weight:   1.0,
		resync:   true,
	}
}

// rampSteps returns the per-tick weight change for each direction: one
// divided by the number of ticks in RampDown (resp. RampUp). The weight is
// clamped to [Multiplier, 1], so with a multiplier above zero the ramp ends
// early.
func rampSteps(cfg config.DampingConfig) (down, up float64) {
	tick := cfg.TickPeriod()
	step := func(ramp time.Duration) float64 {
		ticks := float64(ramp) / float64(tick)
		if ticks <= 1 {
			return 1.0
		}
		return 1.0 / ticks
	}
	return step(cfg.RampDown), step(cfg.RampUp)
}

// Prime sets the starting cursor position.
func (l *DampingLoop) Prime(pos Point) {
	l.lastPos = pos
	l.resync = false
}

// Weight returns the current damping weight; 1.0 means no damping.
func (l *DampingLoop) Weight() float64 {
	return l.weight
}

// Run ticks at the polling rate until ctx is cancelled.
func (l *DampingLoop) Run(ctx context.Context) error {
	period := l.cfg.TickPeriod()
	l.logger.Debug("Damping loop started.", zap.Duration("period", period))

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Damping loop stopped.", zap.Float64("weight", l.weight))
			return nil
		case <-ticker.C:
			l.Tick(l.clock.Now())
		}
	}
}

// Tick makes one damping decision at now.
func (l *DampingLoop) Tick(now time.Time) {
	l.ramp(l.target(now))

	pos, err := l.cursor.Position()
	if err != nil {
		l.stats.cursorFailures.Add(1)
		l.resync = true
		l.logger.Debug("Cursor query failed, skipping tick.", zap.Error(err))
		return
	}

	if l.resync || l.weight >= inactiveWeight {
		l.lastPos = pos
		l.resync = false
		return
	}

	delta := pos.Sub(l.lastPos)
	if delta.IsZero() {
		l.lastPos = pos
		return
	}

	pull := l.weight - 1.0
	rx := float64(delta.X) * pull
	ry := float64(delta.Y) * pull
	if math.Abs(rx) < 1 && math.Abs(ry) < 1 {
		// Cursor moves are integer-granular.
		l.lastPos = pos
		return
	}

	correction := Point{X: int(rx), Y: int(ry)}
	if err := l.cursor.MoveRelative(correction.X, correction.Y); err != nil {
		l.stats.cursorFailures.Add(1)
		l.lastPos = pos
		l.logger.Debug("Cursor correction failed.", zap.Error(err))
		return
	}
	l.stats.corrections.Add(1)
	// Track where the cursor should now be, including our own correction,
	// so the next tick does not correct the correction.
	l.lastPos = pos.Add(correction)
}

// target picks the weight the ramp heads toward at now.
func (l *DampingLoop) target(now time.Time) float64 {
	if l.active(now) {
		return l.cfg.Multiplier
	}
	return 1.0
}

func (l *DampingLoop) active(now time.Time) bool {
	rate := l.window.CurrentRate(now)
	last := l.window.LastClick()
	if last.IsZero() {
		return false
	}
	return rate >= l.cfg.CPSThreshold && now.Sub(last) < l.cfg.StaleTimeout
}

// ramp moves weight toward target by at most one step, never overshooting.
func (l *DampingLoop) ramp(target float64) {
	switch {
	case l.weight > target:
		l.weight = math.Max(target, l.weight-l.stepDown)
	case l.weight < target:
		l.weight = math.Min(target, l.weight+l.stepUp)
	}
	if math.Abs(l.weight-target) < weightEpsilon {
		l.weight = target
	}
}
