package anthropic

// streamEvent is the envelope shared by every Messages-API stream event.
// Which optional fields are populated depends on Type.
type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	// ContentBlock is present on content_block_start.
	ContentBlock *contentBlock `json:"content_block,omitempty"`

	// Delta is present on content_block_delta and message_delta.
	Delta *eventDelta `json:"delta,omitempty"`
}

// contentBlock describes the block being opened by content_block_start.
type contentBlock struct {
	Type string `json:"type"` // "text" or "tool_use"
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// eventDelta is the incremental payload of a content_block_delta or
// message_delta event.
type eventDelta struct {
	Type        string `json:"type"` // "text_delta" or "input_json_delta"
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}
