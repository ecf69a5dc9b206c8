// internal/assist/worker.go
package assist

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/clickassist/internal/config"
)

// SimulationWorker is the single consumer of trigger signals. Each signal
// produces one burst of humanized press/release pairs.
type SimulationWorker struct {
	cfg     config.AssistConfig
	window  *RateWindow
	gate    *burstGate
	ceiling *ceiling
	stats   *counters
	clock   Clock
	clicks  ClickEmitter
	sleep   SleepFunc
	// rng is only touched from the worker goroutine.
	rng    *rand.Rand
	logger *zap.Logger
}

func newSimulationWorker(cfg config.AssistConfig, sh *shared, clicks ClickEmitter, sleep SleepFunc, rng *rand.Rand, logger *zap.Logger) *SimulationWorker {
	return &SimulationWorker{
		cfg:     cfg,
		window:  sh.window,
		gate:    sh.gate,
		ceiling: sh.ceiling,
		stats:   sh.stats,
		clock:   sh.clock,
		clicks:  clicks,
		sleep:   sleep,
		rng:     rng,
		logger:  logger.Named("worker"),
	}
}

// Run consumes signals until ctx is cancelled. The wait is bounded by the
// poll timeout so cancellation is observed even if a wakeup is missed.
func (w *SimulationWorker) Run(ctx context.Context) error {
	defer func() {
		w.release()
		w.logger.Debug("Simulation worker stopped.")
	}()

	w.logger.Debug("Simulation worker started.")
	timer := time.NewTimer(w.cfg.WorkerPollTimeout)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		timer.Reset(w.cfg.WorkerPollTimeout)

		select {
		case <-ctx.Done():
			return nil
		case trig := <-w.gate.signals:
			w.runBurst(ctx, trig)
		case <-timer.C:
		}
	}
}

// release drops a signal that was never consumed and lowers the gate, so no
// exit path leaves simulating raised.
func (w *SimulationWorker) release() {
	select {
	case <-w.gate.signals:
	default:
	}
	w.gate.simulating.Store(false)
}

func (w *SimulationWorker) runBurst(ctx context.Context, trig Trigger) {
	w.gate.simulating.Store(true)
	defer w.gate.simulating.Store(false)

	size := w.burstSize()
	w.stats.bursts.Add(1)
	logger := w.logger.With(zap.String("button", string(trig.Button)), zap.Int("size", size))
	logger.Debug("Burst started.")

	emitted := 0
	for i := 0; i < size; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := w.sleep(ctx, w.interClickDelay()); err != nil {
			break
		}

		if !w.ceiling.take(w.clock.Now()) {
			w.stats.ceilingSkips.Add(1)
			logger.Debug("Synthetic click skipped at the hard CPS ceiling.")
			continue
		}

		if err := w.clicks.Press(trig.Button); err != nil {
			logger.Warn("Synthetic press failed, ending burst.", zap.Error(err))
			return
		}
		w.window.Record(w.clock.Now())
		w.stats.syntheticClicks.Add(1)
		emitted++

		holdErr := w.sleep(ctx, w.holdDuration())
		// Release even when cancelled mid-hold so the button is never left down.
		if err := w.clicks.Release(trig.Button); err != nil {
			logger.Warn("Synthetic release failed, ending burst.", zap.Error(err))
			return
		}
		if holdErr != nil {
			break
		}
	}
	logger.Debug("Burst finished.", zap.Int("emitted", emitted))
}

// burstSize is uniform over [BurstMin, BurstMax].
func (w *SimulationWorker) burstSize() int {
	return w.cfg.BurstMin + w.rng.Intn(w.cfg.BurstMax-w.cfg.BurstMin+1)
}

// interClickDelay samples a delay between the target CPS bounds and removes
// the fixed processing offset, clamped at zero.
func (w *SimulationWorker) interClickDelay() time.Duration {
	lo, hi := burstDelayBounds(w.cfg)
	delay := lo + time.Duration(w.rng.Float64()*float64(hi-lo))
	delay -= w.cfg.ProcessingOffset
	if delay < 0 {
		return 0
	}
	return delay
}

// holdDuration is uniform over [HoldMin, HoldMax].
func (w *SimulationWorker) holdDuration() time.Duration {
	span := w.cfg.HoldMax - w.cfg.HoldMin
	if span <= 0 {
		return w.cfg.HoldMin
	}
	return w.cfg.HoldMin + time.Duration(w.rng.Int63n(int64(span)+1))
}

// burstDelayBounds converts the target CPS range into a delay range. The
// higher rate gives the shorter delay.
func burstDelayBounds(cfg config.AssistConfig) (lo, hi time.Duration) {
	lo = time.Duration(float64(time.Second) / cfg.TargetCPSHigh)
	hi = time.Duration(float64(time.Second) / cfg.TargetCPSLow)
	return lo, hi
}
