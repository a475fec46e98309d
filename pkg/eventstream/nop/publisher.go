package nop

import (
	"context"

	"github.com/papercomputeco/tarot/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishReading validates input and otherwise does nothing.
func (p *Publisher) PublishReading(_ context.Context, event *eventstream.ReadingCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilReadingEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
