// Package api serves recorded capture files over HTTP: listing, raw
// download, and a processed summary that runs a capture back through the
// delta processor.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the capture API server.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new capture API server.
func NewServer(config Config, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/captures", s.handleListCaptures)
	app.Get("/captures/:name", s.handleGetCapture)
	app.Get("/captures/:name/summary", s.handleCaptureSummary)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting capture API server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("capture_dir", s.config.CaptureDir),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
