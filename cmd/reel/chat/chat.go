// Package chatcmder provides the chat command for interactive streaming
// chat against an LLM backend.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/stream"
	"github.com/papercomputeco/reel/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	target       string
	providerName string
	model        string
	captureDir   string
	system       string

	record bool
	resume bool
	stats  bool
	debug  bool

	configDir string
	streamCfg stream.Config

	cachedAPIKey string

	logger   *zap.Logger
	proc     *stream.Processor
	prov     provider.Provider
	recorder *capture.Recorder
}

const chatLongDesc string = `Start an interactive streaming chat session.

The chat command sends messages to the configured backend and renders the
streaming response through the delta processor: content fragments are
micro-batched, tool calls are accumulated across chunks, and rendering is
paced by the adaptive throttle. A stalled stream surfaces as an inline
timeout error instead of a silent hang.

When stdin is not a terminal, the piped input becomes a single prompt and
the command exits after one response.

Use --record to write every received delta to a capture file for later
"reel replay". Use --resume to continue the conversation persisted by the
previous --resume session.

Examples:
  reel chat --model llama3
  reel chat --provider anthropic --target https://api.anthropic.com --model claude-sonnet-4
  reel chat --record --stats
  echo "explain goroutines" | reel chat`

const chatShortDesc string = "Interactive streaming LLM chat"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagTarget,
				config.FlagProvider,
				config.FlagModel,
				config.FlagCaptureDir,
				config.FlagChunkTimeout,
			})

			cmder.resolve(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagProvider, &cmder.providerName)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCaptureDir, &cmder.captureDir)

	var chunkTimeoutMs int
	config.AddIntFlag(cmd, config.DefaultFlags, config.FlagChunkTimeout, &chunkTimeoutMs)

	cmd.Flags().StringVar(&cmder.system, "system", "", "System prompt for the session")
	cmd.Flags().BoolVar(&cmder.record, "record", false, "Record received deltas to a capture file")
	cmd.Flags().BoolVar(&cmder.resume, "resume", false, "Resume the previously persisted session")
	cmd.Flags().BoolVar(&cmder.stats, "stats", false, "Print stream metrics after each response")

	return cmd
}

// resolve pulls final values out of the viper precedence chain
// (flag > env > file > default).
func (c *chatCommander) resolve(v *viper.Viper) {
	c.target = strings.TrimRight(v.GetString("client.target"), "/")
	c.providerName = v.GetString("client.provider")
	c.model = v.GetString("client.model")
	c.captureDir = v.GetString("capture.dir")
	c.streamCfg = config.StreamConfigFromViper(v)
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		// Piped output gets no ANSI escapes.
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	var err error
	c.prov, err = provider.New(c.providerName)
	if err != nil {
		return err
	}

	c.proc = stream.NewProcessor(c.streamCfg)

	if c.record {
		if err := c.openRecorder(); err != nil {
			return err
		}
		defer func() { _ = c.recorder.Close() }()
	}

	messages, err := c.initialMessages()
	if err != nil {
		return err
	}

	if !interactive {
		return c.oneShot(messages)
	}

	c.printBanner(len(messages))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages = append(messages, llm.NewTextMessage(llm.RoleUser, input))

		assistantContent, err := c.sendAndStream(messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			// Remove the failed user message so the turn can be retried.
			messages = messages[:len(messages)-1]
			c.proc.SoftReset()
			continue
		}

		messages = append(messages, llm.NewTextMessage(llm.RoleAssistant, assistantContent))

		fmt.Println()
		fmt.Println()

		if c.stats {
			c.printStats()
		}

		if c.resume {
			state := &dotdir.SessionState{Model: c.model, Messages: messages}
			if err := dotdir.NewManager().SaveSession(state, c.configDir); err != nil {
				c.logger.Warn("saving session", zap.Error(err))
			}
		}

		// Keep session metrics, clear per-response state.
		c.proc.SoftReset()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// oneShot reads all of stdin as a single prompt, streams one response, and exits.
func (c *chatCommander) oneShot(messages []llm.Message) error {
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	prompt := strings.TrimSpace(string(input))
	if prompt == "" {
		return fmt.Errorf("empty prompt on stdin")
	}

	messages = append(messages, llm.NewTextMessage(llm.RoleUser, prompt))

	if _, err := c.sendAndStream(messages); err != nil {
		return err
	}
	fmt.Println()

	if c.stats {
		c.printStats()
	}

	return nil
}

// initialMessages builds the starting conversation history from the system
// prompt flag and, with --resume, the persisted session.
func (c *chatCommander) initialMessages() ([]llm.Message, error) {
	var messages []llm.Message

	if c.system != "" {
		messages = append(messages, llm.NewTextMessage(llm.RoleSystem, c.system))
	}

	if !c.resume {
		return messages, nil
	}

	state, err := dotdir.NewManager().LoadSession(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if state != nil {
		messages = append(messages, state.Messages...)
	}

	return messages, nil
}

func (c *chatCommander) printBanner(historyLen int) {
	fmt.Println()
	if c.resume && historyLen > 0 {
		fmt.Printf("  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", historyLen)),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
		cliui.DimStyle.Render(fmt.Sprintf("(%s via %s)", c.providerName, c.target)),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}

// openRecorder creates the capture file for this session. A relative capture
// dir lives under the resolved .reel/ directory.
func (c *chatCommander) openRecorder() error {
	dir := c.captureDir
	if !filepath.IsAbs(dir) {
		target, err := dotdir.NewManager().Ensure(c.configDir)
		if err != nil {
			return fmt.Errorf("resolving capture dir: %w", err)
		}
		dir = filepath.Join(target, dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating capture dir: %w", err)
	}

	name := fmt.Sprintf("chat-%s-%s.jsonl",
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8],
	)
	path := filepath.Join(dir, name)

	recorder, err := capture.NewRecorder(path, &capture.Config{Logger: c.logger})
	if err != nil {
		return fmt.Errorf("opening capture file: %w", err)
	}
	c.recorder = recorder

	fmt.Printf("\n  %s %s\n",
		cliui.KeyStyle.Render("Recording:"),
		cliui.DimStyle.Render(path),
	)

	return nil
}

// sendAndStream sends a chat request and pumps the streaming response through
// the delta processor, rendering events as they surface. Returns the full
// sanitized assistant response text.
func (c *chatCommander) sendAndStream(messages []llm.Message) (string, error) {
	req, err := c.buildRequest(context.Background(), messages)
	if err != nil {
		return "", err
	}

	c.logger.Debug("sending chat request",
		zap.String("target", c.target),
		zap.String("provider", c.providerName),
		zap.String("model", c.model),
		zap.Int("message_count", len(messages)),
	)

	client := &http.Client{
		// LLM responses can be slow
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Print(assistantPrompt)

	payloads := newPayloadStream(c.providerName, resp.Body)

	for {
		payload, err := payloads.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return c.proc.SanitizedContent(), fmt.Errorf("reading stream: %w", err)
		}

		delta, done, perr := c.prov.ParseStreamChunk(payload)
		if perr != nil {
			c.logger.Debug("failed to parse stream chunk",
				zap.Error(perr),
				zap.String("payload", string(payload)),
			)
			continue
		}

		if delta != nil {
			if c.recorder != nil {
				c.recorder.Record(capture.Record{Delta: *delta})
			}

			events, err := c.proc.ProcessDelta(*delta)
			if err != nil {
				return c.proc.SanitizedContent(), fmt.Errorf("processing delta: %w", err)
			}
			c.render(events)
		}

		if done {
			break
		}

		// Deferred events (backpressure, timeout errors) surface on the
		// render cadence, not per chunk.
		if c.proc.ShouldRender() {
			c.render(c.proc.Drain(0))
		}
	}

	finishEvents, err := c.proc.Finish()
	if err != nil {
		return c.proc.SanitizedContent(), fmt.Errorf("finishing stream: %w", err)
	}
	c.render(c.proc.Drain(0))
	c.render(finishEvents)

	return c.proc.SanitizedContent(), nil
}

// render prints a slice of events and reports the observed render cost back
// to the adaptive throttle.
func (c *chatCommander) render(events []stream.Event) {
	if len(events) == 0 {
		return
	}

	start := time.Now()

	for _, ev := range events {
		switch ev.Kind {
		case stream.EventContent:
			fmt.Print(ev.Content)
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

// printStats renders a compact metrics summary for the session so far.
func (c *chatCommander) printStats() {
	m := c.proc.Metrics()

	fmt.Printf("  %s chunks=%d bytes=%d ttfc=%s p50=%s p95=%s p99=%s jitter=%s rate=%.1f/s interval=%s\n\n",
		cliui.DimStyle.Render("stats:"),
		m.Chunks,
		m.Bytes,
		cliui.FormatDuration(m.TimeToFirstChunk),
		m.P50Processing,
		m.P95Processing,
		m.P99Processing,
		m.Jitter,
		m.ChunksPerSec,
		c.proc.RenderInterval(),
	)

	if m.BatchFlushes > 0 || m.BackpressureEvents > 0 || m.ChunkTimeouts > 0 {
		fmt.Printf("  %s flushes=%d backpressure=%d timeouts=%d\n\n",
			cliui.DimStyle.Render("flow: "),
			m.BatchFlushes,
			m.BackpressureEvents,
			m.ChunkTimeouts,
		)
	}
}
