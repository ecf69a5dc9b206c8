// internal/device/emitter.go
package device

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/clickassist/internal/assist"
)

// LogEmitter is a ClickEmitter that records synthetic clicks in the log
// instead of injecting them into the OS.
type LogEmitter struct {
	logger *zap.Logger

	mu       sync.Mutex
	down     map[assist.Button]bool
	presses  int
	releases int
}

// NewLogEmitter creates an emitter that logs through logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{
		logger: logger.Named("emitter"),
		down:   make(map[assist.Button]bool),
	}
}

// Probe implements assist.Prober. A log sink is always available.
func (e *LogEmitter) Probe() error {
	return nil
}

// Press implements assist.ClickEmitter. Pressing a button that is already
// down is an error, like a real injector refusing a stuck key.
func (e *LogEmitter) Press(button assist.Button) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down[button] {
		return fmt.Errorf("button %s is already pressed", button)
	}
	e.down[button] = true
	e.presses++
	e.logger.Debug("Synthetic press.", zap.String("button", string(button)))
	return nil
}

// Release implements assist.ClickEmitter.
func (e *LogEmitter) Release(button assist.Button) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.down[button] {
		return fmt.Errorf("button %s is not pressed", button)
	}
	e.down[button] = false
	e.releases++
	e.logger.Debug("Synthetic release.", zap.String("button", string(button)))
	return nil
}

// Counts returns the number of presses and releases emitted so far.
func (e *LogEmitter) Counts() (presses, releases int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presses, e.releases
}
