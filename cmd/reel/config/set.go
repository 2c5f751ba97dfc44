package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .reel/ directory. Keys use dotted notation matching
the TOML section structure.

Valid keys:
  client.target, client.provider, client.model,
  stream.sanitize, stream.extract_commentary_tools,
  stream.enable_batching, stream.batch_size_threshold, stream.batch_time_threshold_ms,
  stream.enable_backpressure, stream.max_pending_events,
  stream.render_throttle_ms, stream.adaptive_throttle,
  stream.min_render_throttle_ms, stream.max_render_throttle_ms,
  stream.chunk_timeout_ms,
  capture.dir

Examples:
  reel config set client.provider anthropic
  reel config set client.target https://api.anthropic.com
  reel config set stream.max_pending_events 200`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Bootstrap ~/.reel when no directory resolved yet.
	if cfger.GetTarget() == "" {
		dir, err := dotdir.NewManager().Ensure(configDir)
		if err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
		cfger, err = config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)

	err = cfger.SetConfigValue(key, value)
	if err != nil {
		return err
	}

	fmt.Printf("  %s Set %s = %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.ValueStyle.Render(value),
	)
	return nil
}
