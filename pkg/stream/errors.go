package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrStreamClosed is returned when the chunk reader was canceled by something
// other than Stream.Abort.
var ErrStreamClosed = errors.New("stream closed")

// UpstreamError reports a non-2xx response. The request as a whole failed; no
// frames were parsed.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// maxErrorBody caps how much of an error payload is retained.
const maxErrorBody = 64 * 1024

// NewUpstreamError builds an UpstreamError, taking the message from an
// OpenAI-style {"error":{"message":...}} payload when there is one.
func NewUpstreamError(status int, body []byte) *UpstreamError {
	return &UpstreamError{
		StatusCode: status,
		Message:    upstreamMessage(status, body),
		Body:       body,
	}
}

func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`

		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if len(payload.Error) > 0 {
			if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if err := json.Unmarshal(payload.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected status"
}
