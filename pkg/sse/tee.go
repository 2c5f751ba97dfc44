package sse

import "io"

// NewTeeReader returns a Reader that parses SSE events from src while copying
// the raw bytes verbatim to w as they are consumed. The copy preserves the
// original event framing (blank-line delimiters, comments, field ordering),
// which is what a pass-through proxy needs: the client sees the upstream
// stream untouched while the proxy still gets parsed events.
func NewTeeReader(src io.Reader, w io.Writer) *Reader {
	return NewReader(io.TeeReader(src, w))
}
