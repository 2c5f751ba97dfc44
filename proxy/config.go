package proxy

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// UpstreamURL is the upstream LLM provider URL (e.g., "http://localhost:11434")
	UpstreamURL string

	// ProviderType specifies the default LLM provider type (e.g., "anthropic",
	// "openai", "ollama"). This determines how streaming chunks are parsed
	// when the request path carries no provider override.
	ProviderType string

	// ProviderUpstreams optionally maps provider names to upstream base URLs,
	// overriding the built-in defaults for /providers/<name>/ routed requests.
	ProviderUpstreams map[string]string

	// CaptureDir is the directory where completed streams are written as
	// capture files.
	CaptureDir string

	// Workers is the number of background capture writers (0 = default).
	Workers uint
}
