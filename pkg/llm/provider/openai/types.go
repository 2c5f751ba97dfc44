package openai

// chatCompletionChunk represents one streaming chunk from the
// /v1/chat/completions endpoint with stream=true.
type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index int        `json:"index"`
	Delta chunkDelta `json:"delta"`
	// FinishReason is null until the final chunk of a choice.
	FinishReason string `json:"finish_reason"`
}

// chunkDelta carries the incremental message fragment for one chunk.
type chunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []chunkToolCall `json:"tool_calls,omitempty"`
}

// chunkToolCall is a tool-call fragment. Index addresses the logical call
// the fragment belongs to; id and function.name usually appear only on the
// first fragment, function.arguments accumulates across fragments.
type chunkToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}
