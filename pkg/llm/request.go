package llm

// ChatRequest is the outgoing chat-completion request body. The field names
// follow the OpenAI chat completions shape, which Ollama's /api/chat endpoint
// also accepts for the subset used here.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o", "llama3").
	Model string `json:"model"`

	// Conversation messages, oldest first.
	Messages []Message `json:"messages"`

	// Stream requests a chunked streaming response. Always true for this
	// client; the field exists so the marshaled body states it explicitly.
	Stream bool `json:"stream"`

	// Optional generation parameters, omitted when unset.
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
