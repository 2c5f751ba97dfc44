package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"encoding/json"
)

// Reader streams records back out of a capture file, one per Next call.
// The caller decides what to do with the at_ms offsets (honor them, scale
// them, or ignore them).
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader parsing JSONL records from src.
func NewReader(src io.Reader) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Open opens the capture file at path for reading. The caller owns closing
// the returned file.
func Open(path string) (*Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening capture file: %w", err)
	}
	return NewReader(f), f, nil
}

// Next returns the next record, or nil, nil when the source is exhausted.
// Blank lines are skipped; a malformed line is an error naming its position.
func (r *Reader) Next() (*Record, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("capture line %d: %w", r.line, err)
		}
		return &rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, nil
}
