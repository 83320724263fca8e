// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sse provides the Server-Sent Events framing used for streaming task updates.
package sse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const (
	// ContentEventStream is the MIME type for Server-Sent Events.
	ContentEventStream = "text/event-stream"

	idPrefix   = "id:"
	dataPrefix = "data:"

	// MaxTokenSize is the maximum size of a single SSE line.
	MaxTokenSize = 10 * 1024 * 1024
)

// Writer wraps http.ResponseWriter to provide SSE writing capabilities.
// It is safe to use from multiple goroutines.
type Writer struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new [Writer]. It fails if w can't be flushed.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &Writer{writer: w, flusher: flusher}, nil
}

// WriteHeaders writes the standard SSE headers.
func (w *Writer) WriteHeaders() {
	header := w.writer.Header()
	header.Set("Content-Type", ContentEventStream)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.writer.WriteHeader(http.StatusOK)
}

// WriteKeepAlive writes an SSE comment line.
func (w *Writer) WriteKeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := io.WriteString(w.writer, ": keep-alive\n\n"); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// WriteData writes a single data block. Newlines in data are split across data lines.
func (w *Writer) WriteData(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\n", idPrefix, uuid.NewString())
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		fmt.Fprintf(&buf, "%s %s\n", dataPrefix, line)
	}
	buf.WriteByte('\n')

	if _, err := w.writer.Write(buf.Bytes()); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// ParseDataStream returns an iterator over the data blocks in an SSE stream.
// Consecutive data lines of one event are joined with a newline.
func ParseDataStream(body io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), MaxTokenSize)

		var event []byte
		hasData := false
		flush := func() bool {
			if !hasData {
				return true
			}
			data := event
			event, hasData = nil, false
			return yield(data, nil)
		}

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				if !flush() {
					return
				}
				continue
			}
			// "data: foo" and "data:foo" are both valid
			data, ok := bytes.CutPrefix(line, []byte(dataPrefix))
			if !ok {
				continue
			}
			data, _ = bytes.CutPrefix(data, []byte(" "))
			if hasData {
				event = append(event, '\n')
			}
			event = append(event, data...)
			hasData = true
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("SSE stream error: %w", err))
			return
		}
		flush()
	}
}
