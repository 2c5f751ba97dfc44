package provider

import (
	"github.com/papercomputeco/reel/pkg/llm"
)

// Provider defines the interface for LLM streaming-format detection and
// chunk normalization. Each provider implementation knows how to detect and
// parse its specific vendor format into the internal delta representation.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// CanHandle returns true if the payload appears to be in this provider's
	// streaming format. Implementations should check for provider-specific
	// markers in the JSON such as field names or event type strings.
	CanHandle(payload []byte) bool

	// ParseStreamChunk converts one streaming chunk payload into a delta.
	// done reports the vendor's end-of-stream marker for this chunk. A nil
	// delta with done == false means the chunk carries nothing for the
	// stream (e.g., ping events) and should be skipped. An empty non-nil
	// delta is a valid keep-alive and must be forwarded.
	ParseStreamChunk(payload []byte) (*llm.Delta, bool, error)
}
