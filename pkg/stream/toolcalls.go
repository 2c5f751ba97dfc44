package stream

import (
	"strings"

	"github.com/papercomputeco/reel/pkg/llm"
)

// toolCallState accumulates one tool call across its fragment sequence.
// Name and arguments are string builders because providers split both into
// arbitrary fragments; partial or invalid JSON in arguments is expected
// while the call is still streaming.
type toolCallState struct {
	index int
	id    string
	name  strings.Builder
	args  strings.Builder
}

func (s *toolCallState) snapshot() llm.ToolCall {
	return llm.ToolCall{
		Index:     s.index,
		ID:        s.id,
		Name:      s.name.String(),
		Arguments: s.args.String(),
	}
}

// mergeToolCallDelta folds one fragment into the record addressed by its
// index, creating the record on first sight. Merge rules: first non-empty id
// wins; name and arguments always append in arrival order.
//
// Returns a tool_call event when the record is reportable (accumulated name
// non-empty) — meaning one logical call re-emits an updated cumulative event
// on every subsequent fragment.
func (p *Processor) mergeToolCallDelta(tc llm.ToolCallDelta) (Event, bool) {
	state, ok := p.calls[tc.Index]
	if !ok {
		state = &toolCallState{index: tc.Index}
		p.calls[tc.Index] = state
		p.callOrder = append(p.callOrder, tc.Index)
	}

	if state.id == "" && tc.ID != "" {
		state.id = tc.ID
	}
	if tc.Name != "" {
		state.name.WriteString(tc.Name)
	}
	if tc.Arguments != "" {
		state.args.WriteString(tc.Arguments)
	}

	if state.name.Len() == 0 {
		return Event{}, false
	}
	return ToolCallEvent(state.snapshot()), true
}

// toolCallsLocked returns the reportable records in first-seen order.
func (p *Processor) toolCallsLocked() []llm.ToolCall {
	calls := make([]llm.ToolCall, 0, len(p.callOrder))
	for _, idx := range p.callOrder {
		state, ok := p.calls[idx]
		if !ok || state.name.Len() == 0 {
			continue
		}
		calls = append(calls, state.snapshot())
	}
	return calls
}
