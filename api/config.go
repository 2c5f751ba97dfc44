package api

// Config holds the capture API server configuration.
type Config struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string

	// CaptureDir is the directory holding capture files to serve.
	CaptureDir string
}
