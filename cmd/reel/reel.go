// Package reelcmder
package reelcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/reel/cmd/reel/chat"
	configcmder "github.com/papercomputeco/reel/cmd/reel/config"
	initcmder "github.com/papercomputeco/reel/cmd/reel/init"
	proxycmder "github.com/papercomputeco/reel/cmd/reel/proxy"
	replaycmder "github.com/papercomputeco/reel/cmd/reel/replay"
	servecmder "github.com/papercomputeco/reel/cmd/reel/serve"
	versioncmder "github.com/papercomputeco/reel/cmd/version"
)

const reelLongDesc string = `Reel is a streaming terminal client for LLM backends.

It speaks the OpenAI, Anthropic, and Ollama streaming wire formats,
smooths token delivery with micro-batching and an adaptive render
throttle, and can record every delta for later replay.

Common commands:
  reel chat       Start an interactive streaming chat session
  reel replay     Replay a recorded capture file
  reel proxy      Run a transparent recording proxy
  reel serve      Serve recorded captures over HTTP
  reel config     Manage persistent configuration`

const reelShortDesc string = "Reel - streaming LLM terminal client"

func NewReelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reel",
		Short: reelShortDesc,
		Long:  reelLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .reel/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
