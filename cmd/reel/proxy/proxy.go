// Package proxycmder provides the proxy command for the recording proxy.
package proxycmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/proxy"
)

type proxyCommander struct {
	listen       string
	target       string
	providerName string
	captureDir   string
	workers      int
	configDir    string
	debug        bool

	logger *zap.Logger
}

const proxyLongDesc string = `Run a transparent recording proxy in front of an LLM backend.

Point your LLM client at the proxy instead of the backend. Requests are
forwarded verbatim; streaming responses are relayed chunk-by-chunk to the
client while every parsed delta is written to a capture file, ready for
"reel replay".

Requests to /providers/<name>/... are parsed with that provider's format
and routed to its upstream; everything else uses the configured defaults.

Examples:
  reel proxy
  reel proxy --listen :8080 --target http://localhost:11434 --provider ollama
  reel proxy --capture-dir /var/reel/captures`

const proxyShortDesc string = "Run a transparent recording proxy"

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: proxyShortDesc,
		Long:  proxyLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagTarget,
				config.FlagProvider,
				config.FlagCaptureDir,
			})
			cmder.target = v.GetString("client.target")
			cmder.providerName = v.GetString("client.provider")
			cmder.captureDir = v.GetString("capture.dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", ":8080", "Address for the proxy to listen on")
	cmd.Flags().IntVar(&cmder.workers, "workers", 0, "Number of capture writer workers (0 = default)")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagProvider, &cmder.providerName)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCaptureDir, &cmder.captureDir)

	return cmd
}

func (c *proxyCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	dir := c.captureDir
	if !filepath.IsAbs(dir) {
		target, err := dotdir.NewManager().Ensure(c.configDir)
		if err != nil {
			return fmt.Errorf("resolving capture dir: %w", err)
		}
		dir = filepath.Join(target, dir)
	}

	workers := uint(0)
	if c.workers > 0 {
		workers = uint(c.workers)
	}

	p, err := proxy.New(proxy.Config{
		ListenAddr:   c.listen,
		UpstreamURL:  c.target,
		ProviderType: c.providerName,
		CaptureDir:   dir,
		Workers:      workers,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}

	// Shut down cleanly on Ctrl+C, draining the capture workers.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := p.Close(); err != nil {
			c.logger.Warn("shutting down", zap.Error(err))
		}
	}()

	return p.Run()
}
