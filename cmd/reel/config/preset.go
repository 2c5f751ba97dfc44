package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
)

const presetLongDesc string = `Write a full configuration for a known provider.

Replaces the config.toml in the .reel/ directory with sane defaults for the
named provider: target URL, provider wire format, and a default model.
Stream tuning keys keep their defaults.

Supported presets: openai, anthropic, ollama.

Examples:
  reel config preset ollama
  reel config preset anthropic`

const presetShortDesc string = "Write a provider preset configuration"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset <provider>",
		Short: presetShortDesc,
		Long:  presetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runPreset(name, configDir string) error {
	cfg, err := config.PresetConfig(name)
	if err != nil {
		return fmt.Errorf("%w\n\nSupported presets: %s", err, strings.Join(config.ValidPresetNames(), ", "))
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

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\n  %s Wrote %s preset %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(name),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, model %s)", cfg.Client.Target, cfg.Client.Model)),
	)
	return nil
}
