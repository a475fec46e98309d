package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/tarot/pkg/eventstream"
	"github.com/papercomputeco/tarot/pkg/eventstream/kafka"
	"github.com/papercomputeco/tarot/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	Backend string
	Brokers []string
	Topic   string
	Logger  *slog.Logger
}

func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.Backend {
	case "", "nop", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported eventstream backend: %s", o.Backend)
	}
}
