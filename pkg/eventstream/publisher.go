package eventstream

import "context"

// Publisher publishes reading events to an event stream backend.
type Publisher interface {
	PublishReading(ctx context.Context, event *ReadingCompletedEvent) error
	Close() error
}
