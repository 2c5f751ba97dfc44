// Package configcmder provides the config command for managing persistent
// reel configuration stored in the .reel/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent reel configuration.

Configuration is stored as config.toml in the .reel/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  client.target, client.provider, client.model,
  stream.sanitize, stream.enable_batching, stream.batch_size_threshold,
  stream.chunk_timeout_ms, ... (see "reel config list" for all keys),
  capture.dir

Use subcommands to get, set, or list configuration values:
  reel config set <key> <value>    Set a configuration value
  reel config get <key>            Get a configuration value
  reel config list                 List all configuration values
  reel config preset <provider>    Write a full config for a known provider

Examples:
  reel config set client.provider anthropic
  reel config set stream.chunk_timeout_ms 10000
  reel config get client.model
  reel config list
  reel config preset ollama`

const configShortDesc string = "Manage persistent reel configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
