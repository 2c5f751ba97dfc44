package stream

import "github.com/papercomputeco/reel/pkg/llm"

// EventKind tags the payload carried by an Event.
type EventKind string

const (
	// EventContent carries a sanitized content string ready to render.
	EventContent EventKind = "content"

	// EventToolCall carries the current cumulative state of one tool call.
	// A single logical call typically produces several of these over its
	// lifetime; the latest event per index is authoritative.
	EventToolCall EventKind = "tool_call"

	// EventError carries a message for non-fatal stream problems, including
	// chunk timeouts.
	EventError EventKind = "error"

	// EventDone is the terminal signal for one response.
	EventDone EventKind = "done"
)

// Event is one renderable unit produced by the Processor. Events are
// transient values: the processor does not retain them beyond returning or
// queueing them.
type Event struct {
	Kind EventKind

	// Content is set for EventContent.
	Content string

	// ToolCall is set for EventToolCall.
	ToolCall *llm.ToolCall

	// Message is set for EventError.
	Message string
}

// ContentEvent builds a content event.
func ContentEvent(s string) Event {
	return Event{Kind: EventContent, Content: s}
}

// ToolCallEvent builds a tool_call event carrying a snapshot of the record.
func ToolCallEvent(tc llm.ToolCall) Event {
	return Event{Kind: EventToolCall, ToolCall: &tc}
}

// ErrorEvent builds an error event.
func ErrorEvent(msg string) Event {
	return Event{Kind: EventError, Message: msg}
}

// DoneEvent builds the terminal event for a response.
func DoneEvent() Event {
	return Event{Kind: EventDone}
}
