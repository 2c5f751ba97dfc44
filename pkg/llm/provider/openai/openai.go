// Package openai
package openai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/reel/pkg/llm"
)

// doneMarker is the sentinel data payload that terminates an OpenAI SSE
// stream. It is not JSON.
var doneMarker = []byte("[DONE]")

// provider implements the Provider interface for OpenAI's Chat Completions
// streaming API and the many backends that speak the same wire format.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) CanHandle(payload []byte) bool {
	if isDoneMarker(payload) {
		return true
	}

	var probe struct {
		Object  string            `json:"object"`
		Choices []json.RawMessage `json:"choices"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}

	if probe.Object == "chat.completion.chunk" {
		return true
	}

	// Older and compatible backends omit "object" but keep the choices array.
	return len(probe.Choices) > 0
}

// ParseStreamChunk normalizes one chunk of a chat.completion.chunk stream.
// The "[DONE]" sentinel maps to (nil, true, nil). finish_reason on a choice
// also reports done, since some compatible backends never send the sentinel.
func (o *provider) ParseStreamChunk(payload []byte) (*llm.Delta, bool, error) {
	if isDoneMarker(payload) {
		return nil, true, nil
	}

	var chunk chatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, false, fmt.Errorf("openai: parse stream chunk: %w", err)
	}

	// A chunk without choices (e.g., a usage-only trailer) is a keep-alive.
	if len(chunk.Choices) == 0 {
		return &llm.Delta{}, false, nil
	}

	choice := chunk.Choices[0]

	delta := &llm.Delta{Content: choice.Delta.Content}
	for _, tc := range choice.Delta.ToolCalls {
		delta.ToolCalls = append(delta.ToolCalls, llm.ToolCallDelta{
			Index:     tc.Index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return delta, choice.FinishReason != "", nil
}

func isDoneMarker(payload []byte) bool {
	return bytes.Equal(bytes.TrimSpace(payload), doneMarker)
}
