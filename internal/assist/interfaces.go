// Filename: internal/assist/interfaces.go
package assist

import (
	"context"
	"time"
)

// InputSource delivers physical button transitions in chronological order.
// The handler must not be invoked concurrently with itself.
type InputSource interface {
	// Start attaches handle and begins delivery. It must not block past setup.
	Start(ctx context.Context, handle func(ButtonEvent)) error
	// Close detaches the source. It must be safe to call more than once.
	Close() error
}

// ClickEmitter synthesizes OS-level button events.
type ClickEmitter interface {
	Press(button Button) error
	Release(button Button) error
}

// Cursor reads and moves the OS pointer in integer pixels.
type Cursor interface {
	Position() (Point, error)
	MoveRelative(dx, dy int) error
}

// Prober is optionally implemented by a ClickEmitter that can verify it is
// usable before the engine starts.
type Prober interface {
	Probe() error
}

// Clock supplies monotonic timestamps.
type Clock interface {
	Now() time.Time
}

// SleepFunc pauses for d, returning early with ctx.Err() on cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
