package stream

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/papercomputeco/reel/pkg/llm"
)

// commentaryCall is the JSON shape models emit when they describe a tool
// invocation in prose or a code fence instead of using the structured
// tool-call channel, e.g.
//
//	{"name": "read_file", "arguments": {"path": "main.go"}}
//
// Some models say "parameters" instead of "arguments"; both are accepted.
type commentaryCall struct {
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	Parameters json.RawMessage `json:"parameters"`
}

// extractCommentaryToolCalls scans freeform text for commentary-style tool
// invocations and synthesizes tool-call records from them, each with a fresh
// generated id. Extraction is best-effort and never errors: candidates that
// fail to parse or lack a name are skipped.
//
// The caller must only invoke this when the structured path yielded zero
// records — running it alongside structured calls would produce duplicates.
func extractCommentaryToolCalls(text string) []llm.ToolCall {
	var calls []llm.ToolCall

	for _, candidate := range jsonObjectCandidates(text) {
		var cc commentaryCall
		if err := json.Unmarshal([]byte(candidate), &cc); err != nil {
			continue
		}
		if cc.Name == "" {
			continue
		}

		args := cc.Arguments
		if args == nil {
			args = cc.Parameters
		}

		calls = append(calls, llm.ToolCall{
			Index:     len(calls),
			ID:        "call_" + uuid.NewString(),
			Name:      cc.Name,
			Arguments: rawArgsString(args),
		})
	}

	return calls
}

// rawArgsString normalizes an arguments fragment to a string: a JSON string
// value is unquoted, anything else (object, array, missing) passes through
// as raw JSON text. Missing arguments become "{}" so downstream consumers
// always see valid JSON.
func rawArgsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// jsonObjectCandidates returns every top-level balanced {...} span in text.
// The scanner is string- and escape-aware so braces inside JSON strings do
// not unbalance the depth count. Nested objects are captured only as part of
// their outermost enclosing object.
func jsonObjectCandidates(text string) []string {
	var candidates []string

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, text[start:i+1])
				start = -1
			}
		}
	}

	return candidates
}
