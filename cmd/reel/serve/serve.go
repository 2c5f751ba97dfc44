// Package servecmder provides the serve command for the capture API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/api"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
	"github.com/papercomputeco/reel/pkg/logger"
)

type serveCommander struct {
	listen     string
	captureDir string
	configDir  string
	debug      bool

	logger *zap.Logger
}

const serveLongDesc string = `Run the capture API server.

Serves the recorded capture files over HTTP:
  GET /ping                      Health check
  GET /captures                  List capture files
  GET /captures/<name>           Download a raw capture (NDJSON)
  GET /captures/<name>/summary   Replay a capture through the processor and
                                 return the reconstructed content, tool calls,
                                 and telemetry

Examples:
  reel serve
  reel serve --listen :9090 --capture-dir /var/reel/captures`

const serveShortDesc string = "Run the capture API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{
				config.FlagCaptureDir,
			})
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

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", ":8081", "Address for the API server to listen on")
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagCaptureDir, &cmder.captureDir)

	return cmd
}

func (c *serveCommander) run() error {
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

	server := api.NewServer(api.Config{
		ListenAddr: c.listen,
		CaptureDir: dir,
	}, c.logger)

	// Shut down cleanly on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			c.logger.Warn("shutting down", zap.Error(err))
		}
	}()

	return server.Run()
}
