package jsonrpc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Writer serializes outbound frames so concurrent dispatches never interleave
// bytes of two distinct messages on the child's stdin.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w with a write lock.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage marshals v and writes it as a single newline-terminated frame.
func (w *Writer) WriteMessage(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// LineHandler processes one successfully parsed inbound frame.
type LineHandler func(Frame)

// ReadLoop is the sole reader of a backend's stdout. It accumulates bytes,
// splits on newline, discards empty lines, and attempts to parse each line
// as a JSON object. Each chunk is first parsed as a single object before
// falling back to line splitting. A chunk ends at a newline or at the end of
// the stream, so a final object with no trailing newline is parsed once r is
// exhausted; an unterminated object on a stream that stays open is not
// delivered until a newline follows it. Malformed lines are reported via onMalformed and otherwise
// skipped — they never abort the stream. ReadLoop returns when r is
// exhausted (EOF on process exit) or a non-EOF read error occurs.
func ReadLoop(r io.Reader, onFrame LineHandler, onMalformed func(line string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		chunk, err := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			dispatchChunk(chunk, onFrame, onMalformed)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// dispatchChunk implements the "whole object first, then line-split" fallback.
func dispatchChunk(chunk []byte, onFrame LineHandler, onMalformed func(string)) {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) == 0 {
		return
	}
	if frame, ok := ParseFrame(trimmed); ok {
		onFrame(frame)
		return
	}
	for _, line := range bytes.Split(trimmed, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		frame, ok := ParseFrame(line)
		if !ok {
			if onMalformed != nil {
				onMalformed(string(line))
			}
			continue
		}
		onFrame(frame)
	}
}
