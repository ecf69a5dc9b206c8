package assist

import "errors"

var (
	// ErrCapabilityUnavailable is returned by Start when a device capability
	// is missing or fails its startup check.
	ErrCapabilityUnavailable = errors.New("assist: capability unavailable")
	// ErrEngineStarted is returned by Start on an engine that is running.
	ErrEngineStarted = errors.New("assist: engine already started")
	// ErrEngineStopped is returned by Start after Stop. Engines are single use.
	ErrEngineStopped = errors.New("assist: engine stopped")
)
