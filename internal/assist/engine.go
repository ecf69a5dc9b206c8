// internal/assist/engine.go
package assist

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/clickassist/internal/config"
)

// Devices bundles the external capabilities the engine drives.
type Devices struct {
	Input  InputSource
	Clicks ClickEmitter
	Cursor Cursor
}

// shared is the state the detector, worker and damping loop coordinate on.
type shared struct {
	window  *RateWindow
	gate    *burstGate
	ceiling *ceiling
	stats   *counters
	clock   Clock
}

type engineState int

const (
	stateIdle engineState = iota
	stateRunning
	stateStopped
)

// Option customizes an Engine. Mostly useful for deterministic tests.
type Option func(*options)

type options struct {
	clock Clock
	sleep SleepFunc
	rng   *rand.Rand
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSleeper replaces the context-aware sleep used by the worker.
func WithSleeper(s SleepFunc) Option {
	return func(o *options) { o.sleep = s }
}

// WithRand replaces the worker's random source.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// Engine owns the shared rate window and the lifecycles of the trigger
// detector, the simulation worker and the damping loop.
type Engine struct {
	cfg     config.Interface
	devices Devices
	logger  *zap.Logger

	sh       *shared
	detector *TriggerDetector
	worker   *SimulationWorker
	damping  *DampingLoop

	// inputMu orders callbacks against Stop: once accepting is cleared no
	// callback is in flight, so none can arm a burst after the worker exits.
	inputMu   sync.RWMutex
	accepting bool

	mu      sync.Mutex
	state   engineState
	cancel  context.CancelFunc
	done    chan struct{}
	waitErr error
}

// NewEngine wires the core components. It does not touch the devices.
func NewEngine(cfg config.Interface, devices Devices, logger *zap.Logger, opts ...Option) (*Engine, error) {
	o := options{clock: systemClock{}, sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	assistCfg := cfg.Assist()
	buttons := make([]Button, 0, len(assistCfg.TriggerButtons))
	for _, name := range assistCfg.TriggerButtons {
		b, err := ParseButton(name)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger button: %w", err)
		}
		buttons = append(buttons, b)
	}

	logger = logger.Named("assist")
	sh := &shared{
		window:  NewRateWindow(assistCfg.Window),
		gate:    newBurstGate(),
		ceiling: newCeiling(assistCfg.HardCPSLimit, assistCfg.Window),
		stats:   &counters{},
		clock:   o.clock,
	}

	e := &Engine{
		cfg:      cfg,
		devices:  devices,
		logger:   logger,
		sh:       sh,
		detector: newTriggerDetector(buttons, assistCfg.DoubleClickThreshold, sh, logger),
		worker:   newSimulationWorker(assistCfg, sh, devices.Clicks, o.sleep, o.rng, logger),
	}
	if cfg.Damping().Enabled {
		e.damping = newDampingLoop(cfg.Damping(), sh, devices.Cursor, logger)
	}
	return e, nil
}

// Start checks the capabilities, launches the worker and the damping loop,
// and attaches to the input source. A capability failure is fatal and wraps
// ErrCapabilityUnavailable.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case stateRunning:
		return ErrEngineStarted
	case stateStopped:
		return ErrEngineStopped
	}

	pos, err := e.checkCapabilities()
	if err != nil {
		return err
	}
	if e.damping != nil {
		e.damping.Prime(pos)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return e.worker.Run(gctx) })
	if e.damping != nil {
		g.Go(func() error { return e.damping.Run(gctx) })
	}

	e.setAccepting(true)
	if err := e.devices.Input.Start(gctx, e.handleEvent); err != nil {
		e.setAccepting(false)
		cancel()
		_ = g.Wait()
		e.worker.release()
		e.state = stateStopped
		return fmt.Errorf("%w: input source: %v", ErrCapabilityUnavailable, err)
	}

	e.cancel = cancel
	e.done = make(chan struct{})
	go func() {
		err := g.Wait()
		// The loops can also end through the parent context. Close intake
		// and release the gate again in case a callback armed it late.
		e.setAccepting(false)
		e.worker.release()
		e.mu.Lock()
		e.waitErr = err
		e.mu.Unlock()
		close(e.done)
	}()
	e.state = stateRunning

	assistCfg := e.cfg.Assist()
	e.logger.Info("Engine started.",
		zap.Float64s("target_cps", []float64{assistCfg.TargetCPSLow, assistCfg.TargetCPSHigh}),
		zap.Float64("hard_cps_limit", assistCfg.HardCPSLimit),
		zap.Bool("damping", e.damping != nil),
		zap.Float64("damping_threshold_cps", e.cfg.Damping().CPSThreshold))
	return nil
}

// checkCapabilities verifies every device is present and usable, returning
// the initial cursor position.
func (e *Engine) checkCapabilities() (Point, error) {
	if e.devices.Input == nil {
		return Point{}, fmt.Errorf("%w: no input source", ErrCapabilityUnavailable)
	}
	if e.devices.Clicks == nil {
		return Point{}, fmt.Errorf("%w: no click emitter", ErrCapabilityUnavailable)
	}
	if e.devices.Cursor == nil {
		return Point{}, fmt.Errorf("%w: no cursor", ErrCapabilityUnavailable)
	}
	if p, ok := e.devices.Clicks.(Prober); ok {
		if err := p.Probe(); err != nil {
			return Point{}, fmt.Errorf("%w: click emitter: %v", ErrCapabilityUnavailable, err)
		}
	}
	pos, err := e.devices.Cursor.Position()
	if err != nil {
		return Point{}, fmt.Errorf("%w: cursor: %v", ErrCapabilityUnavailable, err)
	}
	return pos, nil
}

func (e *Engine) setAccepting(v bool) {
	e.inputMu.Lock()
	e.accepting = v
	e.inputMu.Unlock()
}

func (e *Engine) handleEvent(ev ButtonEvent) {
	e.inputMu.RLock()
	defer e.inputMu.RUnlock()
	if !e.accepting {
		return
	}
	e.detector.OnClick(ev.Button, ev.Pressed)
}

// Stop cancels all loops, detaches the input source and waits for the loops
// to exit. It is idempotent, and calling it before Start leaves the engine
// permanently stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	switch e.state {
	case stateIdle:
		e.state = stateStopped
		e.mu.Unlock()
		return
	case stateStopped:
		done := e.done
		e.mu.Unlock()
		if done != nil {
			<-done
		}
		return
	}
	e.state = stateStopped
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	e.setAccepting(false)
	cancel()
	if err := e.devices.Input.Close(); err != nil {
		e.logger.Warn("Failed to detach input source.", zap.Error(err))
	}
	<-done

	s := e.Stats()
	e.logger.Info("Engine stopped.",
		zap.Uint64("real_clicks", s.RealClicks),
		zap.Uint64("bursts", s.Bursts),
		zap.Uint64("synthetic_clicks", s.SyntheticClicks),
		zap.Uint64("ceiling_skips", s.CeilingSkips),
		zap.Uint64("corrections", s.Corrections))
}

// Wait blocks until the loops exit and returns their first error. It
// returns immediately for an engine that never started.
func (e *Engine) Wait() error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitErr
}

// Stats returns a snapshot of the activity counters.
func (e *Engine) Stats() Stats {
	return e.sh.stats.snapshot()
}

// CurrentRate reports the click rate at the engine clock's now.
func (e *Engine) CurrentRate() float64 {
	return e.sh.window.CurrentRate(e.sh.clock.Now())
}

// Simulating reports whether a burst is pending or in progress.
func (e *Engine) Simulating() bool {
	return e.sh.gate.Simulating()
}
