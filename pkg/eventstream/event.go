package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReadingCompleted is emitted after a reading has been generated
	// and persisted.
	EventTypeReadingCompleted = "tarot.reading.completed"
)

// ReadingCompletedEvent is a transport-neutral event payload for a finished reading.
type ReadingCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Reading       ReadingMeta `json:"reading"`
}

// EventSource identifies where the reading was produced.
type EventSource struct {
	Service string `json:"service"`

	// Generator is "llm" or "offline".
	Generator string `json:"generator"`
	Model     string `json:"model,omitempty"`
}

// ReadingMeta describes the reading itself.
type ReadingMeta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Question   string    `json:"question,omitempty"`
	Insight    bool      `json:"insight"`
	Cards      []CardRef `json:"cards"`
	Text       string    `json:"text"`
	DurationMs int64     `json:"duration_ms"`
}

// CardRef is a drawn card as it appears in an event.
type CardRef struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Upright bool   `json:"upright"`
}

// NewReadingCompletedEvent stamps a v1 event with a fresh id and emission time.
func NewReadingCompletedEvent(source EventSource, reading ReadingMeta, now time.Time) *ReadingCompletedEvent {
	return &ReadingCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeReadingCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        source,
		Reading:       reading,
	}
}
