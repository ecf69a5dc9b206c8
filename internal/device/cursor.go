// internal/device/cursor.go
package device

import (
	"sync"

	"github.com/xkilldash9x/clickassist/internal/assist"
)

// MotionSink receives physical pointer motion read from an input trace.
type MotionSink interface {
	Nudge(dx, dy int)
}

// VirtualCursor is an in-memory pointer. Physical motion arrives through
// Nudge and engine corrections through MoveRelative, so the two can be told
// apart afterwards.
type VirtualCursor struct {
	mu        sync.Mutex
	pos       assist.Point
	corrected assist.Point
	moves     int
	fail      error
}

// NewVirtualCursor creates a cursor resting at start.
func NewVirtualCursor(start assist.Point) *VirtualCursor {
	return &VirtualCursor{pos: start}
}

// Position implements assist.Cursor.
func (c *VirtualCursor) Position() (assist.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return assist.Point{}, c.fail
	}
	return c.pos, nil
}

// MoveRelative implements assist.Cursor.
func (c *VirtualCursor) MoveRelative(dx, dy int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	d := assist.Point{X: dx, Y: dy}
	c.pos = c.pos.Add(d)
	c.corrected = c.corrected.Add(d)
	c.moves++
	return nil
}

// Nudge applies physical motion.
func (c *VirtualCursor) Nudge(dx, dy int) {
	c.mu.Lock()
	c.pos = c.pos.Add(assist.Point{X: dx, Y: dy})
	c.mu.Unlock()
}

// Corrections returns the summed displacement applied through MoveRelative
// and the number of moves.
func (c *VirtualCursor) Corrections() (assist.Point, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corrected, c.moves
}

// SetFailure makes every Position and MoveRelative call fail with err until
// it is cleared with nil. It simulates a display that went away.
func (c *VirtualCursor) SetFailure(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}
