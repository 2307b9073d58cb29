package friskd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ReadOneLine returns the next non-blank line without its terminator.
func ReadOneLine(r *bufio.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}

	for {
		line, err := r.ReadBytes('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			return nil, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}
		return line, nil
	}
}

func WriteOneLine(w io.Writer, obj any) error {
	if w == nil {
		return fmt.Errorf("writer is nil")
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// lineWriter serializes whole JSON lines from several goroutines onto one
// stream. Responses and notifications share a connection.
type lineWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: bufio.NewWriter(w)}
}

func (lw *lineWriter) send(obj any) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if err := WriteOneLine(lw.w, obj); err != nil {
		return err
	}
	return lw.w.Flush()
}
