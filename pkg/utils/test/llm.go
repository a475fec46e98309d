package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockLLM is an OpenAI-compatible /chat/completions server that streams a
// fixed list of deltas and records the requests it receives.
type MockLLM struct {
	Server *httptest.Server

	// Deltas are streamed one frame each, flushed individually.
	Deltas []string

	// Status, when non-zero and not 200, is returned with ErrorBody instead of
	// a stream.
	Status    int
	ErrorBody string

	mu       sync.Mutex
	requests []map[string]any
}

// NewMockLLM starts a MockLLM streaming deltas.
func NewMockLLM(deltas ...string) *MockLLM {
	m := &MockLLM{Deltas: deltas}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL is the base URL to configure the client with.
func (m *MockLLM) URL() string {
	return m.Server.URL
}

// Close shuts the server down.
func (m *MockLLM) Close() {
	m.Server.Close()
}

// Requests returns the decoded request bodies received so far.
func (m *MockLLM) Requests() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.requests...)
}

func (m *MockLLM) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}

	if m.Status != 0 && m.Status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(m.Status)
		_, _ = io.WriteString(w, m.ErrorBody)
		return
	}

	if stream, _ := req["stream"].(bool); !stream {
		w.Header().Set("Content-Type", "application/json")
		content := ""
		for _, d := range m.Deltas {
			content += d
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, d := range m.Deltas {
		frame, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]any{"content": d}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", frame)
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}
