// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/clickassist/internal/assist"
	"github.com/xkilldash9x/clickassist/internal/config"
	"github.com/xkilldash9x/clickassist/internal/device"
	"github.com/xkilldash9x/clickassist/internal/observability"
)

// settlePoll is how often run checks whether a trailing burst has finished.
const settlePoll = 5 * time.Millisecond

// newRunCmd creates the `run` command, which drives the engine from a
// recorded or live input trace against virtual devices.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the assist engine over an input event trace",
		Long: `Run replays a JSON-lines input trace through the assist engine. Button
records feed the trigger detector, move records drive a virtual cursor, and
synthetic clicks are written to the log. A summary is printed on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runAssist(cmd.Context(), cfg, observability.GetLogger(), cmd.OutOrStdout())
		},
	}

	runCmd.Flags().StringP("events", "e", "", "JSON-lines input trace to replay (overrides device.events_file)")
	runCmd.Flags().Bool("follow", false, "keep reading events appended to the trace")
	runCmd.Flags().Bool("pace", true, "honour the recorded event timing")
	return runCmd
}

// runReport is the summary printed when a run ends.
type runReport struct {
	SessionID   string            `yaml:"session_id"`
	Trace       device.TraceStats `yaml:"trace"`
	Engine      assist.Stats      `yaml:"engine"`
	Presses     int               `yaml:"presses"`
	Releases    int               `yaml:"releases"`
	Corrections int               `yaml:"cursor_moves"`
	Correction  assist.Point      `yaml:"cursor_correction"`
}

// runAssist wires the virtual devices to an engine and runs until the trace
// is exhausted or ctx is cancelled.
func runAssist(ctx context.Context, cfg config.Interface, logger *zap.Logger, out io.Writer) error {
	sessionID := uuid.New().String()
	logger = logger.With(zap.String("session_id", sessionID))

	cursor := device.NewVirtualCursor(assist.Point{})
	clicks := device.NewLogEmitter(logger)
	source, err := device.NewTraceSource(cfg.Device(), cursor, logger)
	if err != nil {
		return err
	}

	engine, err := assist.NewEngine(cfg, assist.Devices{
		Input:  source,
		Clicks: clicks,
		Cursor: cursor,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("Interrupted, stopping engine.")
	case <-source.Done():
		waitForBurst(ctx, engine)
	}
	engine.Stop()

	presses, releases := clicks.Counts()
	correction, moves := cursor.Corrections()
	report := runReport{
		SessionID:   sessionID,
		Trace:       source.Stats(),
		Engine:      engine.Stats(),
		Presses:     presses,
		Releases:    releases,
		Corrections: moves,
		Correction:  correction,
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return enc.Close()
}

// waitForBurst lets a burst armed by the last events of a trace finish
// before the engine is stopped.
func waitForBurst(ctx context.Context, engine *assist.Engine) {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for engine.Simulating() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
