package providers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// Stream yields content fragments from a streaming completion.
type Stream interface {
	// Recv returns the next content fragment. finished is true once the
	// upstream signals completion (finish reason or stream exhaustion); the
	// accompanying fragment may still carry content. A non-nil error means
	// the stream broke mid-flight.
	Recv() (fragment string, finished bool, err error)

	// Close releases the underlying connection.
	Close() error
}

// StreamReader parses an SSE body from an OpenAI-compatible streaming
// completion endpoint.
type StreamReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewStreamReader wraps a streaming response body.
func NewStreamReader(r io.ReadCloser) *StreamReader {
	return &StreamReader{
		scanner: bufio.NewScanner(r),
		closer:  r,
	}
}

var dataPrefix = []byte("data: ")

// Recv reads frames until it finds a content fragment or the stream ends.
// Frames without content (role deltas, keep-alives) are skipped.
func (s *StreamReader) Recv() (string, bool, error) {
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", false, err
			}
			// Stream exhaustion without an explicit marker is a normal end.
			return "", true, nil
		}

		line := s.scanner.Bytes()
		if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
			continue
		}

		data := bytes.TrimPrefix(line, dataPrefix)
		if bytes.Equal(data, []byte("[DONE]")) {
			return "", true, nil
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content          string `json:"content"`
					ReasoningContent string `json:"reasoning_content"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Tolerate junk frames; providers occasionally interleave
			// comments or malformed keep-alives.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		content := choice.Delta.Content
		if content == "" {
			content = choice.Delta.ReasoningContent
		}

		if choice.FinishReason != "" {
			return content, true, nil
		}
		if content == "" {
			continue
		}
		return content, false, nil
	}
}

// Close closes the underlying response body.
func (s *StreamReader) Close() error {
	return s.closer.Close()
}
