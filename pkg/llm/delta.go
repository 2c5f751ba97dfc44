// Package llm defines the provider-agnostic data model for streaming model
// output: deltas arriving from a backend and the tool-call records
// reconstructed from them.
package llm

// Delta is one unit of streaming input from a model backend. A delta may
// carry a content fragment, tool-call fragments, both, or neither — an empty
// delta is a valid no-op that still counts for liveness bookkeeping.
type Delta struct {
	// Content is a partial text fragment, possibly empty.
	Content string `json:"content,omitempty"`

	// ToolCalls holds zero or more tool-call fragments carried by this delta.
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is one fragment of a tool call. Providers split a single
// logical call across many deltas; fragments for the same call share an
// Index that is stable for the life of that call. Indices may arrive out of
// order or be sparse.
type ToolCallDelta struct {
	// Index addresses the tool-call record this fragment belongs to.
	Index int `json:"index"`

	// ID is the provider-assigned call id, usually present only on the
	// first fragment.
	ID string `json:"id,omitempty"`

	// Name is a partial function name fragment.
	Name string `json:"name,omitempty"`

	// Arguments is a partial arguments fragment. Concatenating every
	// fragment's Arguments in arrival order yields the full (eventually
	// valid JSON) arguments string.
	Arguments string `json:"arguments,omitempty"`
}

// ToolCall is the cumulative state of one reconstructed tool call.
type ToolCall struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// IsEmpty reports whether the delta carries neither content nor tool-call
// data.
func (d Delta) IsEmpty() bool {
	return d.Content == "" && len(d.ToolCalls) == 0
}
