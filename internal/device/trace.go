// internal/device/trace.go
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpcloud/tail"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/clickassist/internal/assist"
	"github.com/xkilldash9x/clickassist/internal/config"
)

// Record kinds in a trace file.
const (
	KindButton = "button"
	KindMove   = "move"
)

// TraceRecord is one line of a JSON-lines input trace, e.g.
//
//	{"kind":"button","button":"left","pressed":true,"at_ms":120}
//	{"kind":"move","dx":4,"dy":-2,"at_ms":124}
//
// AtMS is the offset from the start of the recording.
type TraceRecord struct {
	Kind    string `json:"kind"`
	Button  string `json:"button,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`
	DX      int    `json:"dx,omitempty"`
	DY      int    `json:"dy,omitempty"`
	AtMS    int64  `json:"at_ms"`
}

// ParseTraceLine decodes and validates one trace line.
func ParseTraceLine(line string) (TraceRecord, error) {
	var rec TraceRecord
	if err := json.UnmarshalFromString(line, &rec); err != nil {
		return TraceRecord{}, fmt.Errorf("malformed trace line: %w", err)
	}
	switch rec.Kind {
	case KindButton:
		if _, err := assist.ParseButton(rec.Button); err != nil {
			return TraceRecord{}, err
		}
	case KindMove:
	default:
		return TraceRecord{}, fmt.Errorf("unknown trace record kind %q", rec.Kind)
	}
	if rec.AtMS < 0 {
		return TraceRecord{}, fmt.Errorf("negative at_ms %d", rec.AtMS)
	}
	return rec, nil
}

// TraceStats counts what a TraceSource has read.
type TraceStats struct {
	Buttons uint64 `json:"buttons" yaml:"buttons"`
	Moves   uint64 `json:"moves" yaml:"moves"`
	Skipped uint64 `json:"skipped" yaml:"skipped"`
}

// TraceSource is an assist.InputSource that replays a JSON-lines event
// trace. Button records go to the engine, move records to the MotionSink.
// In follow mode it keeps tailing the file for lines appended by a live
// recorder.
type TraceSource struct {
	path   string
	follow bool
	pace   bool
	motion MotionSink
	logger *zap.Logger

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	buttons atomic.Uint64
	moves   atomic.Uint64
	skipped atomic.Uint64
}

// NewTraceSource creates a source for cfg.EventsFile. motion may be nil, in
// which case move records are counted and dropped.
func NewTraceSource(cfg config.DeviceConfig, motion MotionSink, logger *zap.Logger) (*TraceSource, error) {
	if cfg.EventsFile == "" {
		return nil, errors.New("device.events_file must be set to replay an input trace")
	}
	return &TraceSource{
		path:   cfg.EventsFile,
		follow: cfg.Follow,
		pace:   cfg.Pace,
		motion: motion,
		logger: logger.Named("trace").With(zap.String("file", cfg.EventsFile)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start implements assist.InputSource. It opens the trace and returns; lines
// are delivered from a background goroutine.
func (s *TraceSource) Start(ctx context.Context, handle func(assist.ButtonEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("trace source already started")
	}
	select {
	case <-s.quit:
		return errors.New("trace source closed")
	default:
	}

	t, err := tail.TailFile(s.path, tail.Config{
		Follow:    s.follow,
		ReOpen:    s.follow,
		Poll:      s.follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open input trace: %w", err)
	}

	s.started = true
	s.logger.Info("Replaying input trace.", zap.Bool("follow", s.follow), zap.Bool("pace", s.pace))
	go s.readLoop(ctx, t, handle)
	return nil
}

// Close implements assist.InputSource. It stops delivery and waits for the
// read loop to exit. Safe to call more than once.
func (s *TraceSource) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		started := s.started
		close(s.quit)
		s.mu.Unlock()
		if !started {
			close(s.done)
		}
	})
	<-s.done
	return nil
}

// Done is closed once the trace is exhausted or the source is closed.
func (s *TraceSource) Done() <-chan struct{} {
	return s.done
}

// Stats returns the record counters.
func (s *TraceSource) Stats() TraceStats {
	return TraceStats{
		Buttons: s.buttons.Load(),
		Moves:   s.moves.Load(),
		Skipped: s.skipped.Load(),
	}
}

func (s *TraceSource) readLoop(ctx context.Context, t *tail.Tail, handle func(assist.ButtonEvent)) {
	defer close(s.done)
	defer func() {
		// The tailer blocks on an unread line, so keep draining until it
		// closes the channel.
		go func() {
			for range t.Lines {
			}
		}()
		if err := t.Stop(); err != nil {
			s.logger.Debug("Tailer stopped with error.", zap.Error(err))
		}
		// Polling registers no inotify watches, so there is nothing to Cleanup.
	}()

	var (
		origin  time.Time
		firstAt int64
		primed  bool
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case line, ok := <-t.Lines:
			if !ok {
				s.logger.Info("Input trace exhausted.", zap.Any("stats", s.Stats()))
				return
			}
			if line.Err != nil {
				s.logger.Warn("Error reading input trace.", zap.Error(line.Err))
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}

			rec, err := ParseTraceLine(text)
			if err != nil {
				s.skipped.Add(1)
				s.logger.Warn("Skipping trace line.", zap.Error(err))
				continue
			}

			if !primed {
				origin, firstAt, primed = time.Now(), rec.AtMS, true
			}
			at := origin.Add(time.Duration(rec.AtMS-firstAt) * time.Millisecond)
			if s.pace && !s.waitUntil(ctx, at) {
				return
			}
			s.dispatch(rec, at, handle)
		}
	}
}

// waitUntil sleeps until at, returning false if the source is stopping.
func (s *TraceSource) waitUntil(ctx context.Context, at time.Time) bool {
	d := time.Until(at)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.quit:
		return false
	case <-timer.C:
		return true
	}
}

func (s *TraceSource) dispatch(rec TraceRecord, at time.Time, handle func(assist.ButtonEvent)) {
	switch rec.Kind {
	case KindButton:
		// Already validated by ParseTraceLine.
		button, _ := assist.ParseButton(rec.Button)
		s.buttons.Add(1)
		handle(assist.ButtonEvent{Button: button, Pressed: rec.Pressed, At: at})
	case KindMove:
		s.moves.Add(1)
		if s.motion != nil {
			s.motion.Nudge(rec.DX, rec.DY)
		}
	}
}
