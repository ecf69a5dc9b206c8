package assist

import "sync/atomic"

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	RealClicks      uint64 `json:"real_clicks" yaml:"real_clicks"`
	Triggers        uint64 `json:"triggers" yaml:"triggers"`
	Bursts          uint64 `json:"bursts" yaml:"bursts"`
	SyntheticClicks uint64 `json:"synthetic_clicks" yaml:"synthetic_clicks"`
	CeilingSkips    uint64 `json:"ceiling_skips" yaml:"ceiling_skips"`
	Corrections     uint64 `json:"corrections" yaml:"corrections"`
	CursorFailures  uint64 `json:"cursor_failures" yaml:"cursor_failures"`
}

type counters struct {
	realClicks      atomic.Uint64
	triggers        atomic.Uint64
	bursts          atomic.Uint64
	syntheticClicks atomic.Uint64
	ceilingSkips    atomic.Uint64
	corrections     atomic.Uint64
	cursorFailures  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RealClicks:      c.realClicks.Load(),
		Triggers:        c.triggers.Load(),
		Bursts:          c.bursts.Load(),
		SyntheticClicks: c.syntheticClicks.Load(),
		CeilingSkips:    c.ceilingSkips.Load(),
		Corrections:     c.corrections.Load(),
		CursorFailures:  c.cursorFailures.Load(),
	}
}
