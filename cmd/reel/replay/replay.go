// Package replaycmder provides the replay command for playing back recorded
// capture files through the delta processor.
package replaycmder

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/stream"
	"github.com/papercomputeco/reel/pkg/utils"
)

type replayCommander struct {
	path     string
	speed    float64
	fast     bool
	follow   bool
	stats    bool
	markdown bool
	debug    bool

	streamCfg stream.Config

	logger *zap.Logger
	proc   *stream.Processor
}

const replayLongDesc string = `Replay a recorded capture file.

Plays the deltas from a "reel chat --record" capture back through the delta
processor, reproducing the original stream's pacing from the recorded
timestamps. Use --speed to scale the pacing or --fast to skip it entirely.

With --follow the command tails a capture file that is still being written,
rendering new deltas as they land. Stop with Ctrl+C.

With --markdown the incremental token output is suppressed and the
reconstructed response is rendered as formatted markdown once playback
completes.

Examples:
  reel replay ~/.reel/captures/chat-20260823-101500-1a2b3c4d.jsonl
  reel replay capture.jsonl --speed 2.0
  reel replay capture.jsonl --fast --stats
  reel replay capture.jsonl --fast --markdown
  reel replay capture.jsonl --follow`

const replayShortDesc string = "Replay a recorded capture file"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.streamCfg = config.StreamConfigFromViper(v)
			// Replay is not a live stream; the liveness supervisor would
			// only fire on deliberate playback gaps.
			cmder.streamCfg.ChunkTimeout = 0
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.path = args[0]
			return cmder.run()
		},
	}

	cmd.Flags().Float64Var(&cmder.speed, "speed", 1.0, "Playback speed multiplier")
	cmd.Flags().BoolVar(&cmder.fast, "fast", false, "Ignore recorded timing and play back as fast as possible")
	cmd.Flags().BoolVar(&cmder.follow, "follow", false, "Tail a capture file that is still being written")
	cmd.Flags().BoolVar(&cmder.stats, "stats", false, "Print stream metrics after playback")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the reconstructed response as markdown after playback")

	return cmd
}

func (c *replayCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.speed <= 0 {
		return fmt.Errorf("--speed must be positive, got %g", c.speed)
	}

	c.proc = stream.NewProcessor(c.streamCfg)

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Replaying:"),
		cliui.DimStyle.Render(c.path),
	)

	if c.follow {
		return c.runFollow()
	}

	reader, f, err := capture.Open(c.path)
	if err != nil {
		return fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	var lastAt int64
	count := 0

	for {
		rec, err := reader.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}

		c.pace(lastAt, rec.AtMs)
		lastAt = rec.AtMs

		if err := c.feed(rec); err != nil {
			return err
		}
		count++
	}

	return c.finish(count)
}

// pace sleeps out the recorded gap between two deltas, scaled by --speed.
func (c *replayCommander) pace(lastAtMs, atMs int64) {
	if c.fast || lastAtMs == 0 || atMs <= lastAtMs {
		return
	}

	gap := time.Duration(atMs-lastAtMs) * time.Millisecond
	time.Sleep(time.Duration(float64(gap) / c.speed))
}

// feed pushes one recorded delta through the processor and renders the
// resulting events.
func (c *replayCommander) feed(rec *capture.Record) error {
	events, err := c.proc.ProcessDelta(rec.Delta)
	if err != nil {
		return fmt.Errorf("processing delta: %w", err)
	}
	c.render(events)

	if c.proc.ShouldRender() {
		c.render(c.proc.Drain(0))
	}

	return nil
}

// finish flushes the processor and prints the playback summary.
func (c *replayCommander) finish(count int) error {
	events, err := c.proc.Finish()
	if err != nil {
		return fmt.Errorf("finishing stream: %w", err)
	}
	c.render(c.proc.Drain(0))
	c.render(events)

	if c.markdown {
		rendered, err := cliui.RenderMarkdown(c.proc.SanitizedContent())
		if err != nil {
			// Fall back to the raw reconstruction.
			rendered = c.proc.SanitizedContent()
		}
		fmt.Print(rendered)
	}

	fmt.Printf("\n\n  %s %d deltas replayed\n\n", cliui.SuccessMark, count)

	if c.stats {
		c.printStats()
	}

	return nil
}

func (c *replayCommander) render(events []stream.Event) {
	if len(events) == 0 {
		return
	}

	start := time.Now()

	for _, ev := range events {
		switch ev.Kind {
		case stream.EventContent:
			// With --markdown the content is rendered once at the end
			// instead of token-by-token.
			if !c.markdown {
				fmt.Print(ev.Content)
			}
		case stream.EventToolCall:
			fmt.Printf("\n  %s %s %s\n",
				cliui.ToolStyle.Render("⚙ tool:"),
				cliui.NameStyle.Render(ev.ToolCall.Name),
				cliui.DimStyle.Render(utils.Truncate(ev.ToolCall.Arguments, 120)),
			)
		case stream.EventError:
			fmt.Fprintf(os.Stderr, "\n  %s %s\n", cliui.FailMark, ev.Message)
		case stream.EventDone:
			// Terminal marker; nothing to print.
		}
	}

	c.proc.ReportRenderDuration(time.Since(start))
}

func (c *replayCommander) printStats() {
	m := c.proc.Metrics()

	fmt.Printf("  %s chunks=%d bytes=%d p50=%s p95=%s p99=%s jitter=%s rate=%.1f/s\n\n",
		cliui.DimStyle.Render("stats:"),
		m.Chunks,
		m.Bytes,
		m.P50Processing,
		m.P95Processing,
		m.P99Processing,
		m.Jitter,
		m.ChunksPerSec,
	)
}
