// Package anthropic
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/reel/pkg/llm"
)

// provider implements the Provider interface for Anthropic's Messages
// streaming API.
type provider struct{}

func New() *provider { return &provider{} }

func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) CanHandle(payload []byte) bool {
	var probe struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}

	// Every Anthropic stream event carries a type discriminator.
	switch {
	case strings.HasPrefix(probe.Type, "message_"),
		strings.HasPrefix(probe.Type, "content_block_"),
		probe.Type == "ping":
		return true
	}

	return strings.HasPrefix(probe.Model, "claude-")
}

// ParseStreamChunk normalizes one Messages-API stream event:
//
//   - content_block_start with a tool_use block opens a tool-call record
//     (index, id, name)
//   - content_block_delta carries either a text_delta fragment or an
//     input_json_delta arguments fragment
//   - message_stop reports done
//   - everything else (message_start, content_block_stop, message_delta,
//     ping) is a keep-alive
func (p *provider) ParseStreamChunk(payload []byte) (*llm.Delta, bool, error) {
	var ev streamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, false, fmt.Errorf("anthropic: parse stream event: %w", err)
	}

	switch ev.Type {
	case "message_stop":
		return nil, true, nil

	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			return &llm.Delta{ToolCalls: []llm.ToolCallDelta{{
				Index: ev.Index,
				ID:    ev.ContentBlock.ID,
				Name:  ev.ContentBlock.Name,
			}}}, false, nil
		}
		return &llm.Delta{}, false, nil

	case "content_block_delta":
		if ev.Delta == nil {
			return &llm.Delta{}, false, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return &llm.Delta{Content: ev.Delta.Text}, false, nil
		case "input_json_delta":
			return &llm.Delta{ToolCalls: []llm.ToolCallDelta{{
				Index:     ev.Index,
				Arguments: ev.Delta.PartialJSON,
			}}}, false, nil
		}
		return &llm.Delta{}, false, nil

	default:
		// message_start, message_delta, content_block_stop, ping.
		return &llm.Delta{}, false, nil
	}
}
