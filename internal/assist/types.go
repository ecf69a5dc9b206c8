// internal/assist/types.go
package assist

import (
	"fmt"
	"strings"
	"time"
)

// Button identifies a physical or synthetic mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
	ButtonX1     Button = "x1"
	ButtonX2     Button = "x2"
)

// ParseButton maps a configuration name to a Button.
func ParseButton(name string) (Button, error) {
	switch b := Button(strings.ToLower(strings.TrimSpace(name))); b {
	case ButtonLeft, ButtonRight, ButtonMiddle, ButtonX1, ButtonX2:
		return b, nil
	default:
		return "", fmt.Errorf("unknown mouse button %q", name)
	}
}

// ButtonEvent is a single button transition delivered by an InputSource.
type ButtonEvent struct {
	Button  Button
	Pressed bool
	// At is the source's own timestamp. The engine stamps clicks with its
	// clock; At is informational.
	At time.Time
}

// Trigger is the one-shot signal handed from the detector to the worker.
type Trigger struct {
	Button Button
	At     time.Time
}

// Point is an integer pixel position or displacement.
type Point struct {
	X, Y int
}

// Add returns the sum of p and other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the displacement from other to p.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// IsZero reports whether both components are zero.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}
