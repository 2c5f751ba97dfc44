package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent reel configuration stored as config.toml
// in the .reel/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Stream  StreamConfig  `toml:"stream"`
	Capture CaptureConfig `toml:"capture"`
}

// ClientConfig holds settings for connecting to a model backend.
// Target is a full URL (scheme + host + port).
type ClientConfig struct {
	Target   string `toml:"target,omitempty"`
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// StreamConfig holds the processor tuning knobs. Booleans are pointers so a
// file can explicitly set false without being clobbered by the default-true
// merge; nil means "not set, use default". Durations are plain milliseconds
// to keep the TOML readable.
type StreamConfig struct {
	Sanitize               *bool `toml:"sanitize,omitempty"`
	ExtractCommentaryTools *bool `toml:"extract_commentary_tools,omitempty"`
	EnableBatching         *bool `toml:"enable_batching,omitempty"`
	BatchSizeThreshold     int   `toml:"batch_size_threshold,omitempty"`
	BatchTimeThresholdMs   int   `toml:"batch_time_threshold_ms,omitempty"`
	EnableBackpressure     *bool `toml:"enable_backpressure,omitempty"`
	MaxPendingEvents       int   `toml:"max_pending_events,omitempty"`
	RenderThrottleMs       int   `toml:"render_throttle_ms,omitempty"`
	AdaptiveThrottle       *bool `toml:"adaptive_throttle,omitempty"`
	MinRenderThrottleMs    int   `toml:"min_render_throttle_ms,omitempty"`
	MaxRenderThrottleMs    int   `toml:"max_render_throttle_ms,omitempty"`
	ChunkTimeoutMs         int   `toml:"chunk_timeout_ms,omitempty"`
}

// CaptureConfig holds stream-capture settings.
type CaptureConfig struct {
	Dir string `toml:"dir,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(get func(c *Config) *bool, set func(c *Config, b *bool)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			p := get(c)
			if p == nil {
				return ""
			}
			return strconv.FormatBool(*p)
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean value %q: %w", v, err)
			}
			set(c, &b)
			return nil
		},
	}
}

func intKey(get func(c *Config) int, set func(c *Config, n int)) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if n := get(c); n != 0 {
				return strconv.Itoa(n)
			}
			return ""
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value %q: %w", v, err)
			}
			set(c, n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
	"client.provider": {
		get: func(c *Config) string { return c.Client.Provider },
		set: func(c *Config, v string) error { c.Client.Provider = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"capture.dir": {
		get: func(c *Config) string { return c.Capture.Dir },
		set: func(c *Config, v string) error { c.Capture.Dir = v; return nil },
	},

	"stream.sanitize": boolKey(
		func(c *Config) *bool { return c.Stream.Sanitize },
		func(c *Config, b *bool) { c.Stream.Sanitize = b },
	),
	"stream.extract_commentary_tools": boolKey(
		func(c *Config) *bool { return c.Stream.ExtractCommentaryTools },
		func(c *Config, b *bool) { c.Stream.ExtractCommentaryTools = b },
	),
	"stream.enable_batching": boolKey(
		func(c *Config) *bool { return c.Stream.EnableBatching },
		func(c *Config, b *bool) { c.Stream.EnableBatching = b },
	),
	"stream.enable_backpressure": boolKey(
		func(c *Config) *bool { return c.Stream.EnableBackpressure },
		func(c *Config, b *bool) { c.Stream.EnableBackpressure = b },
	),
	"stream.adaptive_throttle": boolKey(
		func(c *Config) *bool { return c.Stream.AdaptiveThrottle },
		func(c *Config, b *bool) { c.Stream.AdaptiveThrottle = b },
	),

	"stream.batch_size_threshold": intKey(
		func(c *Config) int { return c.Stream.BatchSizeThreshold },
		func(c *Config, n int) { c.Stream.BatchSizeThreshold = n },
	),
	"stream.batch_time_threshold_ms": intKey(
		func(c *Config) int { return c.Stream.BatchTimeThresholdMs },
		func(c *Config, n int) { c.Stream.BatchTimeThresholdMs = n },
	),
	"stream.max_pending_events": intKey(
		func(c *Config) int { return c.Stream.MaxPendingEvents },
		func(c *Config, n int) { c.Stream.MaxPendingEvents = n },
	),
	"stream.render_throttle_ms": intKey(
		func(c *Config) int { return c.Stream.RenderThrottleMs },
		func(c *Config, n int) { c.Stream.RenderThrottleMs = n },
	),
	"stream.min_render_throttle_ms": intKey(
		func(c *Config) int { return c.Stream.MinRenderThrottleMs },
		func(c *Config, n int) { c.Stream.MinRenderThrottleMs = n },
	),
	"stream.max_render_throttle_ms": intKey(
		func(c *Config) int { return c.Stream.MaxRenderThrottleMs },
		func(c *Config, n int) { c.Stream.MaxRenderThrottleMs = n },
	),
	"stream.chunk_timeout_ms": intKey(
		func(c *Config) int { return c.Stream.ChunkTimeoutMs },
		func(c *Config, n int) { c.Stream.ChunkTimeoutMs = n },
	),
}
