package ollama

import (
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/reel/pkg/llm"
)

// provider implements the Provider interface for Ollama's /api/chat NDJSON
// streaming format.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) CanHandle(payload []byte) bool {
	var probe struct {
		Model   string          `json:"model"`
		Done    *bool           `json:"done"`
		Message json.RawMessage `json:"message"`

		// Ollama-specific trailer fields
		TotalDuration int64 `json:"total_duration"`
		EvalCount     int   `json:"eval_count"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}

	// Every Ollama chat chunk carries model + done + message; OpenAI chunks
	// have none of these at the top level.
	if probe.Done != nil && probe.Model != "" && probe.Message != nil {
		return true
	}

	return probe.TotalDuration > 0 || probe.EvalCount > 0
}

// ParseStreamChunk normalizes one NDJSON chat chunk. Ollama never fragments
// tool calls, so each one maps to a single complete delta fragment with its
// arguments re-serialized to a JSON string. Records are indexed by arrival
// position since Ollama omits an explicit index.
func (o *provider) ParseStreamChunk(payload []byte) (*llm.Delta, bool, error) {
	var chunk chatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, false, fmt.Errorf("ollama: parse stream chunk: %w", err)
	}

	delta := &llm.Delta{Content: chunk.Message.Content}

	for i, tc := range chunk.Message.ToolCalls {
		args := "{}"
		if tc.Function.Arguments != nil {
			encoded, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				return nil, false, fmt.Errorf("ollama: encode tool arguments: %w", err)
			}
			args = string(encoded)
		}

		index := tc.Function.Index
		if index == 0 {
			index = i
		}

		delta.ToolCalls = append(delta.ToolCalls, llm.ToolCallDelta{
			Index:     index,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	done := chunk.Done != nil && *chunk.Done

	return delta, done, nil
}
