package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/term"

	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/sse"
)

const anthropicVersion = "2023-06-01"

// anthropicRequest is the Anthropic Messages API request body. Unlike the
// OpenAI-compatible shape, max_tokens is required and the system prompt is a
// top-level field rather than a message.
type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []llm.Message `json:"messages"`
	Stream    bool          `json:"stream"`
}

const defaultMaxTokens = 4096

// buildRequest constructs the provider-specific streaming chat request.
func (c *chatCommander) buildRequest(ctx context.Context, messages []llm.Message) (*http.Request, error) {
	switch c.providerName {
	case provider.Anthropic:
		return c.buildAnthropicRequest(ctx, messages)
	case provider.Ollama:
		return c.buildJSONRequest(ctx, c.target+"/api/chat", messages, "")
	default:
		// OpenAI-compatible is the de facto wire format, so any unknown
		// provider gets the /v1/chat/completions treatment.
		key, err := c.apiKey("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return c.buildJSONRequest(ctx, c.target+"/v1/chat/completions", messages, key)
	}
}

func (c *chatCommander) buildJSONRequest(ctx context.Context, url string, messages []llm.Message, bearer string) (*http.Request, error) {
	reqBody := llm.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return req, nil
}

func (c *chatCommander) buildAnthropicRequest(ctx context.Context, messages []llm.Message) (*http.Request, error) {
	key, err := c.apiKey("ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}

	// Anthropic rejects system-role messages in the messages array.
	var system string
	rest := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    system,
		Messages:  rest,
		Stream:    true,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", anthropicVersion)

	return req, nil
}

// apiKey resolves the key for the given env var, prompting on the terminal
// when unset. The prompted key is cached for the rest of the session but
// never persisted.
func (c *chatCommander) apiKey(envVar string) (string, error) {
	if c.cachedAPIKey != "" {
		return c.cachedAPIKey, nil
	}

	if key := os.Getenv(envVar); key != "" {
		c.cachedAPIKey = key
		return key, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%s is not set", envVar)
	}

	fmt.Fprintf(os.Stderr, "Enter %s: ", envVar)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%s is not set", envVar)
	}

	c.cachedAPIKey = string(raw)
	return c.cachedAPIKey, nil
}

// payloadStream yields raw provider payloads from a streaming response body,
// one per call. Ollama streams newline-delimited JSON; everything else
// streams SSE where each event's data field is the payload.
type payloadStream struct {
	next func() ([]byte, error)
}

func newPayloadStream(providerName string, body io.Reader) *payloadStream {
	if providerName == provider.Ollama {
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		return &payloadStream{next: func() ([]byte, error) {
			for scanner.Scan() {
				line := bytes.TrimSpace(scanner.Bytes())
				if len(line) == 0 {
					continue
				}
				out := make([]byte, len(line))
				copy(out, line)
				return out, nil
			}
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}}
	}

	reader := sse.NewReader(body)
	return &payloadStream{next: func() ([]byte, error) {
		for {
			ev, err := reader.Next()
			if err != nil {
				return nil, err
			}
			if ev == nil {
				return nil, io.EOF
			}
			if ev.Data == "" {
				continue
			}
			return []byte(ev.Data), nil
		}
	}}
}
