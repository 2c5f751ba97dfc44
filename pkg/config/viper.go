package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/stream"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the REEL_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (REEL_CLIENT_TARGET, REEL_STREAM_CHUNK_TIMEOUT_MS, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: REEL_CLIENT_TARGET, REEL_CAPTURE_DIR, etc.
	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.target", d.Client.Target)
	v.SetDefault("client.provider", d.Client.Provider)
	v.SetDefault("client.model", d.Client.Model)

	// Stream
	v.SetDefault("stream.sanitize", *d.Stream.Sanitize)
	v.SetDefault("stream.extract_commentary_tools", *d.Stream.ExtractCommentaryTools)
	v.SetDefault("stream.enable_batching", *d.Stream.EnableBatching)
	v.SetDefault("stream.batch_size_threshold", d.Stream.BatchSizeThreshold)
	v.SetDefault("stream.batch_time_threshold_ms", d.Stream.BatchTimeThresholdMs)
	v.SetDefault("stream.enable_backpressure", *d.Stream.EnableBackpressure)
	v.SetDefault("stream.max_pending_events", d.Stream.MaxPendingEvents)
	v.SetDefault("stream.render_throttle_ms", d.Stream.RenderThrottleMs)
	v.SetDefault("stream.adaptive_throttle", *d.Stream.AdaptiveThrottle)
	v.SetDefault("stream.min_render_throttle_ms", d.Stream.MinRenderThrottleMs)
	v.SetDefault("stream.max_render_throttle_ms", d.Stream.MaxRenderThrottleMs)
	v.SetDefault("stream.chunk_timeout_ms", d.Stream.ChunkTimeoutMs)

	// Capture
	v.SetDefault("capture.dir", d.Capture.Dir)
}

// StreamConfigFromViper materializes a stream.Config from the resolved viper
// state, converting the _ms keys back into durations.
func StreamConfigFromViper(v *viper.Viper) stream.Config {
	return stream.Config{
		Sanitize:               v.GetBool("stream.sanitize"),
		ExtractCommentaryTools: v.GetBool("stream.extract_commentary_tools"),
		EnableBatching:         v.GetBool("stream.enable_batching"),
		BatchSizeThreshold:     v.GetInt("stream.batch_size_threshold"),
		BatchTimeThreshold:     time.Duration(v.GetInt("stream.batch_time_threshold_ms")) * time.Millisecond,
		EnableBackpressure:     v.GetBool("stream.enable_backpressure"),
		MaxPendingEvents:       v.GetInt("stream.max_pending_events"),
		RenderThrottle:         time.Duration(v.GetInt("stream.render_throttle_ms")) * time.Millisecond,
		AdaptiveThrottle:       v.GetBool("stream.adaptive_throttle"),
		MinRenderThrottle:      time.Duration(v.GetInt("stream.min_render_throttle_ms")) * time.Millisecond,
		MaxRenderThrottle:      time.Duration(v.GetInt("stream.max_render_throttle_ms")) * time.Millisecond,
		ChunkTimeout:           time.Duration(v.GetInt("stream.chunk_timeout_ms")) * time.Millisecond,
	}
}
