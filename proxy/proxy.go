// Package proxy provides a transparent LLM inference proxy that records
// streaming responses as capture files.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/papercomputeco/reel/pkg/capture"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/sse"
	"github.com/papercomputeco/reel/proxy/header"
	"github.com/papercomputeco/reel/proxy/worker"
)

const providerPathPrefix = "/providers/"

// errorResponse is the JSON error body returned for proxy-side failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Proxy is a transparent LLM inference proxy. It forwards requests to the
// upstream provider verbatim and, for streaming responses, parses each chunk
// into a delta and enqueues the completed stream for async capture via its
// worker pool.
type Proxy struct {
	config        Config
	workerPool    *worker.Pool
	logger        *zap.Logger
	httpClient    *http.Client
	server        *fiber.App
	providers     map[string]provider.Provider
	defaultProv   provider.Provider
	headerHandler *header.Handler
}

// New creates a new Proxy.
// Returns an error if the configured provider type is not recognized.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	if config.ProviderType == "" {
		return nil, errors.New("provider type is required")
	}

	defaultProv, err := provider.New(config.ProviderType)
	if err != nil {
		return nil, fmt.Errorf("could not create new provider: %w", err)
	}

	// All supported providers are stateless parsers; register them all so
	// /providers/<name>/ routed requests never miss.
	providers := make(map[string]provider.Provider)
	for _, name := range provider.SupportedProviders() {
		prov, err := provider.New(name)
		if err != nil {
			return nil, fmt.Errorf("could not create provider %s: %w", name, err)
		}
		providers[name] = prov
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	// Add compression middleware to handle responses
	app.Use(compress.New())

	wp, err := worker.NewPool(&worker.Config{
		CaptureDir: config.CaptureDir,
		NumWorkers: config.Workers,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	p := &Proxy{
		config:        config,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		providers:     providers,
		defaultProv:   defaultProv,
		headerHandler: header.NewHandler(),
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: 5 * time.Minute,
		},
	}

	// Register transparent proxy route - forwards any path to upstream
	app.All("/*", p.handleProxy)

	return p, nil
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("upstream", p.config.UpstreamURL),
		zap.String("capture_dir", p.config.CaptureDir),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		zap.String("listen", listener.Addr().String()),
		zap.String("upstream", p.config.UpstreamURL),
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy and waits for the worker pool to drain
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.workerPool.Close()
	return err
}

// handleProxy is a transparent proxy handler that forwards requests to
// upstream and records streaming responses as capture files.
func (p *Proxy) handleProxy(c *fiber.Ctx) error {
	startTime := time.Now()

	providerName, path := resolveProviderOverride(c.Path())
	prov, upstreamURL := p.resolveProvider(providerName)
	method := c.Method()

	// Only POST requests with a body can be chat/completion requests.
	body := c.Body()
	isChatRequest := method == "POST" && len(body) > 0

	// Determine if streaming: check the raw JSON stream field, falling back
	// to the provider default. Ollama streams by default when "stream" is
	// omitted; the SSE providers require it explicitly.
	streaming := false
	if isChatRequest {
		var streamCheck struct {
			Stream *bool `json:"stream"`
		}
		if err := json.Unmarshal(body, &streamCheck); err == nil && streamCheck.Stream != nil {
			streaming = *streamCheck.Stream
		} else {
			streaming = prov.Name() == provider.Ollama
		}
	}

	if streaming && isChatRequest {
		return p.handleStreamingProxy(c, path, upstreamURL, prov, body, startTime)
	}

	return p.handleNonStreamingProxy(c, path, method, upstreamURL, body)
}

// handleNonStreamingProxy forwards non-streaming requests verbatim. Nothing
// is captured: deltas are the unit of capture and only streams carry them.
func (p *Proxy) handleNonStreamingProxy(c *fiber.Ctx, path, method, upstreamURL string, body []byte) error {
	// Build upstream URL
	upstreamURL += path

	// Create upstream request
	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(c.Context(), method, upstreamURL, reqBody)
	if err != nil {
		p.logger.Error("failed to create upstream request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}

	p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	p.logger.Debug("forwarding request to upstream",
		zap.String("method", method),
		zap.String("url", upstreamURL),
	)

	// Make the request
	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "upstream request failed"})
	}
	defer httpResp.Body.Close()

	// Read response body
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.logger.Error("failed to read upstream response", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "failed to read upstream response"})
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)

	// Return response to client immediately
	return c.Status(httpResp.StatusCode).Send(respBody)
}

// handleStreamingProxy forwards a streaming request, teeing the response to
// the client while parsing chunks into deltas for capture.
func (p *Proxy) handleStreamingProxy(c *fiber.Ctx, path, upstreamURL string, prov provider.Provider, body []byte, startTime time.Time) error {
	// Build upstream URL
	upstreamURL += path

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the streaming callback runs
	// asynchronously in a separate goroutine and needs the upstream connection
	// to remain open.
	httpReq, err := http.NewRequestWithContext(context.Background(), http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("failed to create upstream request", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}

	p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	p.logger.Debug("forwarding streaming request to upstream",
		zap.String("url", upstreamURL),
	)

	// Make the request
	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "upstream request failed"})
	}
	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		p.logger.Error("upstream returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return c.Status(httpResp.StatusCode).Send(respBody)
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter uses an internal PipeConns with a buffered channel
	// (capacity 4) and two bufio.Writers, which means Flush() in the callback
	// only pushes data into the pipe — NOT to the TCP socket. This causes all
	// chunks to buffer in memory before being sent to the client.
	//
	// With io.Pipe, pw.Write blocks until the reader consumes the data, and
	// the reader is fasthttp's writeBodyChunked which flushes to TCP after
	// every chunk. This gives direct backpressure and true per-chunk
	// streaming.
	pr, pw := io.Pipe()
	go p.handleHTTPRespToPipeWriter(httpResp, pw, prov, modelFromBody(body), startTime)

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (p *Proxy) handleHTTPRespToPipeWriter(httpResp *http.Response, pw *io.PipeWriter, prov provider.Provider, model string, startTime time.Time) {
	// Close the upstream response body once streaming is complete.
	defer httpResp.Body.Close()
	defer pw.Close()

	switch ct := httpResp.Header.Get("Content-Type"); {
	case strings.HasPrefix(ct, "text/event-stream"):
		p.handleSSEStream(httpResp, pw, prov, model, startTime)
	default:
		p.handleNDJSONStream(httpResp, pw, prov, model, startTime)
	}
}

// handleSSEStream reads an SSE-formatted upstream response (used by OpenAI
// and Anthropic), forwarding raw bytes verbatim to the pipe writer while
// parsing events into deltas for capture.
func (p *Proxy) handleSSEStream(httpResp *http.Response, pw *io.PipeWriter, prov provider.Provider, model string, startTime time.Time) {
	var records []capture.Record

	tr := sse.NewTeeReader(httpResp.Body, pw)

	for {
		ev, err := tr.Next()
		if err != nil {
			p.logger.Error("error reading SSE stream", zap.Error(err))
			return
		}
		if ev == nil {
			break
		}

		// Skip non-data sentinels like OpenAI's "[DONE]"
		if ev.Data == "" || ev.Data == "[DONE]" {
			continue
		}

		records = p.appendDelta(records, []byte(ev.Data), prov, startTime)
	}

	p.enqueueStream(records, prov, model, startTime)
}

// handleNDJSONStream reads a newline-delimited JSON upstream response (used
// by Ollama), forwarding raw bytes to the pipe writer while parsing lines
// into deltas for capture.
func (p *Proxy) handleNDJSONStream(httpResp *http.Response, pw *io.PipeWriter, prov provider.Provider, model string, startTime time.Time) {
	var records []capture.Record

	scanner := bufio.NewScanner(httpResp.Body)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		records = p.appendDelta(records, line, prov, startTime)

		// Write chunk to client — pw.Write blocks until fasthttp reads
		// from the pipe reader and flushes to the TCP socket.
		// This ensures transparent streaming of chunks.
		if _, err := pw.Write(line); err != nil {
			p.logger.Error("error writing chunk to pipe", zap.Error(err))
			return
		}
		if _, err := pw.Write([]byte("\n")); err != nil {
			p.logger.Error("error writing newline to pipe", zap.Error(err))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Error("error reading NDJSON stream", zap.Error(err))
	}

	p.enqueueStream(records, prov, model, startTime)
}

// appendDelta parses one streaming chunk and, if it carries a delta, appends
// a capture record stamped with the offset since the stream started. Parse
// failures are logged and skipped: a transparent proxy must never break the
// stream over a chunk it does not understand.
func (p *Proxy) appendDelta(records []capture.Record, payload []byte, prov provider.Provider, startTime time.Time) []capture.Record {
	delta, _, err := prov.ParseStreamChunk(payload)
	if err != nil {
		p.logger.Debug("unparseable stream chunk",
			zap.String("provider", prov.Name()),
			zap.Error(err),
		)
		return records
	}
	if delta == nil {
		return records
	}

	return append(records, capture.Record{
		AtMs:  time.Since(startTime).Milliseconds(),
		Delta: *delta,
	})
}

// enqueueStream hands a completed stream to the worker pool for async
// capture.
func (p *Proxy) enqueueStream(records []capture.Record, prov provider.Provider, model string, startTime time.Time) {
	if len(records) == 0 {
		return
	}

	p.logger.Debug("streaming complete",
		zap.Int("record_count", len(records)),
		zap.String("provider", prov.Name()),
		zap.Duration("duration", time.Since(startTime)),
	)

	p.workerPool.Enqueue(worker.Job{
		Provider: prov.Name(),
		Model:    model,
		Records:  records,
	})
}

// resolveProvider picks the parsing provider and upstream base URL for a
// request, honoring a /providers/<name>/ path override when present.
func (p *Proxy) resolveProvider(providerName string) (provider.Provider, string) {
	if providerName == "" {
		return p.defaultProv, p.config.UpstreamURL
	}

	prov, ok := p.providers[providerName]
	if !ok {
		return p.defaultProv, p.config.UpstreamURL
	}

	switch providerName {
	case provider.OpenAI:
		return prov, p.providerUpstream(providerName, "https://api.openai.com")
	case provider.Anthropic:
		return prov, p.providerUpstream(providerName, "https://api.anthropic.com")
	case provider.Ollama:
		return prov, p.providerUpstream(providerName, p.config.UpstreamURL)
	}

	return prov, p.config.UpstreamURL
}

func (p *Proxy) providerUpstream(providerName, fallback string) string {
	if p.config.ProviderUpstreams == nil {
		return fallback
	}
	if upstream := strings.TrimSpace(p.config.ProviderUpstreams[providerName]); upstream != "" {
		return upstream
	}
	return fallback
}

// resolveProviderOverride splits a /providers/<name>/... path into the
// provider name and the remaining upstream path.
func resolveProviderOverride(path string) (string, string) {
	if !strings.HasPrefix(path, providerPathPrefix) {
		return "", path
	}

	remainder := strings.TrimPrefix(path, providerPathPrefix)
	if remainder == "" {
		return "", path
	}

	parts := strings.SplitN(remainder, "/", 2)
	providerName := strings.TrimSpace(parts[0])
	if providerName == "" {
		return "", path
	}

	if len(parts) == 1 {
		return providerName, "/"
	}

	return providerName, "/" + parts[1]
}

// modelFromBody extracts the model name from a chat request body,
// best-effort.
func modelFromBody(body []byte) string {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.Model
}
