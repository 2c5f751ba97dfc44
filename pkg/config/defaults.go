package config

import (
	"time"

	"github.com/papercomputeco/reel/pkg/stream"
)

const (
	defaultProvider = "ollama"
	defaultTarget   = "http://localhost:11434"
	defaultModel    = "llama3"

	defaultCaptureDir = "captures"
)

// NewDefaultConfig returns a Config with sane defaults for all fields. Stream
// defaults are derived from stream.DefaultConfig so the processor package
// stays the single source of truth for its own knobs.
func NewDefaultConfig() *Config {
	d := stream.DefaultConfig()

	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Target:   defaultTarget,
			Provider: defaultProvider,
			Model:    defaultModel,
		},
		Stream: StreamConfig{
			Sanitize:               ptr(d.Sanitize),
			ExtractCommentaryTools: ptr(d.ExtractCommentaryTools),
			EnableBatching:         ptr(d.EnableBatching),
			BatchSizeThreshold:     d.BatchSizeThreshold,
			BatchTimeThresholdMs:   ms(d.BatchTimeThreshold),
			EnableBackpressure:     ptr(d.EnableBackpressure),
			MaxPendingEvents:       d.MaxPendingEvents,
			RenderThrottleMs:       ms(d.RenderThrottle),
			AdaptiveThrottle:       ptr(d.AdaptiveThrottle),
			MinRenderThrottleMs:    ms(d.MinRenderThrottle),
			MaxRenderThrottleMs:    ms(d.MaxRenderThrottle),
			ChunkTimeoutMs:         ms(d.ChunkTimeout),
		},
		Capture: CaptureConfig{
			Dir: defaultCaptureDir,
		},
	}
}

func ptr(b bool) *bool { return &b }

func ms(d time.Duration) int { return int(d / time.Millisecond) }
