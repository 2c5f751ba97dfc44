package replaycmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
)

// runFollow tails a capture file that is still being written, rendering new
// deltas as they land. Recorded timing is ignored: a live tail renders at
// arrival pace.
func (c *replayCommander) runFollow() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("opening capture: %w", err)
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.path); err != nil {
		return fmt.Errorf("watching capture: %w", err)
	}

	reader := bufio.NewReader(f)
	count := 0

	// partial accumulates an incomplete trailing line: the recorder may be
	// mid-write when we hit EOF.
	var partial strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			partial.WriteString(line)
			full := strings.TrimSpace(partial.String())
			partial.Reset()

			if full == "" {
				continue
			}

			rec := &capture.Record{}
			if uerr := json.Unmarshal([]byte(full), rec); uerr != nil {
				c.logger.Warn("skipping malformed capture line", zap.Error(uerr))
				continue
			}

			if ferr := c.feed(rec); ferr != nil {
				return ferr
			}
			count++
			continue
		}

		if err != io.EOF {
			return fmt.Errorf("reading capture: %w", err)
		}

		partial.WriteString(line)

		// Caught up. Wait for the writer or the user.
		select {
		case <-ctx.Done():
			return c.finish(count)
		case _, ok := <-watcher.Events:
			if !ok {
				return c.finish(count)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return c.finish(count)
			}
			c.logger.Warn("watch error", zap.Error(werr))
		}
	}
}
