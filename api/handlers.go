package api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/stream"
)

// ErrorResponse is the uniform error body for all handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CaptureInfo describes one capture file in a listing.
type CaptureInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// SummaryResponse is the result of replaying a capture through the delta
// processor: the reconstructed response plus the stream telemetry.
type SummaryResponse struct {
	Name      string         `json:"name"`
	Deltas    int            `json:"deltas"`
	Content   string         `json:"content"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
	Metrics   SummaryMetrics `json:"metrics"`
}

// SummaryMetrics is the subset of processor telemetry that is meaningful for
// an offline replay (wall-clock rates are not).
type SummaryMetrics struct {
	Chunks       int64 `json:"chunks"`
	Bytes        int64 `json:"bytes"`
	BatchFlushes int64 `json:"batch_flushes"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListCaptures lists the capture files in the configured directory.
func (s *Server) handleListCaptures(c *fiber.Ctx) error {
	entries, err := os.ReadDir(s.config.CaptureDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c.JSON(map[string]any{"count": 0, "captures": []CaptureInfo{}})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list captures"})
	}

	captures := make([]CaptureInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to stat capture",
				zap.String("name", entry.Name()),
				zap.Error(err),
			)
			continue
		}

		captures = append(captures, CaptureInfo{
			Name:       entry.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	return c.JSON(map[string]any{
		"count":    len(captures),
		"captures": captures,
	})
}

// handleGetCapture streams the raw capture file.
func (s *Server) handleGetCapture(c *fiber.Ctx) error {
	path, err := s.capturePath(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if _, err := os.Stat(path); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "capture not found"})
	}

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	return c.SendFile(path)
}

// handleCaptureSummary replays a capture through the delta processor and
// returns the reconstructed content, tool calls, and telemetry.
func (s *Server) handleCaptureSummary(c *fiber.Ctx) error {
	path, err := s.capturePath(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	reader, f, err := capture.Open(path)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "capture not found"})
	}
	defer f.Close()

	cfg := stream.DefaultConfig()
	// Offline replay: no liveness supervision, no pacing concerns.
	cfg.ChunkTimeout = 0
	cfg.EnableBackpressure = false
	proc := stream.NewProcessor(cfg)

	count := 0
	for {
		rec, err := reader.Next()
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: err.Error()})
		}
		if rec == nil {
			break
		}

		if _, err := proc.ProcessDelta(rec.Delta); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to process capture"})
		}
		count++
	}

	if _, err := proc.Finish(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to process capture"})
	}

	m := proc.Metrics()

	return c.JSON(SummaryResponse{
		Name:      filepath.Base(path),
		Deltas:    count,
		Content:   proc.SanitizedContent(),
		ToolCalls: proc.ToolCalls(),
		Metrics: SummaryMetrics{
			Chunks:       m.Chunks,
			Bytes:        m.Bytes,
			BatchFlushes: m.BatchFlushes,
		},
	})
}

// capturePath validates a capture name and resolves it inside the capture
// directory. Names with path separators or traversal segments are rejected.
func (s *Server) capturePath(name string) (string, error) {
	if name == "" {
		return "", errors.New("name parameter required")
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.New("invalid capture name")
	}
	return filepath.Join(s.config.CaptureDir, name), nil
}
