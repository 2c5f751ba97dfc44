package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/reel/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .reel/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	// Return in a stable, logical order matching the TOML section layout.
	ordered := []string{
		"client.target",
		"client.provider",
		"client.model",
		"stream.sanitize",
		"stream.extract_commentary_tools",
		"stream.enable_batching",
		"stream.batch_size_threshold",
		"stream.batch_time_threshold_ms",
		"stream.enable_backpressure",
		"stream.max_pending_events",
		"stream.render_throttle_ms",
		"stream.adaptive_throttle",
		"stream.min_render_throttle_ms",
		"stream.max_render_throttle_ms",
		"stream.chunk_timeout_ms",
		"capture.dir",
	}

	// Sanity: only return keys that actually exist in the map.
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}

	// Append any keys in the map that we missed in the ordered list.
	seen := make(map[string]bool, len(result))
	for _, k := range result {
		seen[k] = true
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .reel/
// directory. If the file does not exist, returns NewDefaultConfig() so callers
// always receive a fully-populated Config with sane defaults. Fields
// explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any unset fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills unset fields in cfg with values from NewDefaultConfig().
// Boolean pointers are only filled when nil, so an explicit false in the file
// survives the merge.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Client.Target == "" {
		cfg.Client.Target = defaults.Client.Target
	}
	if cfg.Client.Provider == "" {
		cfg.Client.Provider = defaults.Client.Provider
	}
	if cfg.Client.Model == "" {
		cfg.Client.Model = defaults.Client.Model
	}

	s, ds := &cfg.Stream, defaults.Stream
	if s.Sanitize == nil {
		s.Sanitize = ds.Sanitize
	}
	if s.ExtractCommentaryTools == nil {
		s.ExtractCommentaryTools = ds.ExtractCommentaryTools
	}
	if s.EnableBatching == nil {
		s.EnableBatching = ds.EnableBatching
	}
	if s.BatchSizeThreshold == 0 {
		s.BatchSizeThreshold = ds.BatchSizeThreshold
	}
	if s.BatchTimeThresholdMs == 0 {
		s.BatchTimeThresholdMs = ds.BatchTimeThresholdMs
	}
	if s.EnableBackpressure == nil {
		s.EnableBackpressure = ds.EnableBackpressure
	}
	if s.MaxPendingEvents == 0 {
		s.MaxPendingEvents = ds.MaxPendingEvents
	}
	if s.RenderThrottleMs == 0 {
		s.RenderThrottleMs = ds.RenderThrottleMs
	}
	if s.AdaptiveThrottle == nil {
		s.AdaptiveThrottle = ds.AdaptiveThrottle
	}
	if s.MinRenderThrottleMs == 0 {
		s.MinRenderThrottleMs = ds.MinRenderThrottleMs
	}
	if s.MaxRenderThrottleMs == 0 {
		s.MaxRenderThrottleMs = ds.MaxRenderThrottleMs
	}
	if s.ChunkTimeoutMs == 0 {
		s.ChunkTimeoutMs = ds.ChunkTimeoutMs
	}

	if cfg.Capture.Dir == "" {
		cfg.Capture.Dir = defaults.Capture.Dir
	}
}

// SaveConfig persists the configuration to config.toml in the target .reel/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	var client ClientConfig

	switch strings.ToLower(name) {
	case "openai":
		client = ClientConfig{
			Provider: "openai",
			Target:   "https://api.openai.com",
			Model:    "gpt-4o",
		}
	case "anthropic":
		client = ClientConfig{
			Provider: "anthropic",
			Target:   "https://api.anthropic.com",
			Model:    "claude-sonnet-4",
		}
	case "ollama":
		client = ClientConfig{
			Provider: "ollama",
			Target:   "http://localhost:11434",
			Model:    "llama3",
		}
	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %v)", name, ValidPresetNames())
	}

	cfg := NewDefaultConfig()
	cfg.Client = client
	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
