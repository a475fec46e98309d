package llm

import (
	"encoding/json"
	"strings"
)

// ChatCompletionChunk is one streamed frame of a chat completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`

	// Usage is only present on the final chunk for some providers.
	Usage *Usage `json:"usage,omitempty"`
}

// ChunkChoice carries the incremental delta of one completion alternative.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental message content.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Content returns choices[0].delta.content, or "" when absent.
func (c *ChatCompletionChunk) Content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// Accumulator builds the full text of one stream from its deltas. It belongs
// to a single stream and only ever grows.
type Accumulator struct {
	text   strings.Builder
	deltas int
}

// Add decodes payload and appends its delta content. It reports whether the
// accumulated text changed. Payloads of any other shape are ignored.
func (a *Accumulator) Add(payload json.RawMessage) bool {
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return false
	}

	content := chunk.Content()
	if content == "" {
		return false
	}

	a.text.WriteString(content)
	a.deltas++
	return true
}

// String returns the accumulated text.
func (a *Accumulator) String() string {
	return a.text.String()
}

// Deltas returns the number of non-empty deltas appended.
func (a *Accumulator) Deltas() int {
	return a.deltas
}
