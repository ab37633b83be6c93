package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	eventsTopic               = "judging.events"
	defaultSubscriberCapacity = 64
)

// Broker is the in-process pub/sub behind the event stream. Nothing is
// persisted: subscribers only see events published after they subscribed.
type Broker struct {
	pubsub   *gochannel.GoChannel
	logger   *slog.Logger
	capacity int
	dropped  atomic.Int64
}

type BrokerOption func(*Broker)

// WithSubscriberCapacity overrides the buffered channel size per subscriber.
func WithSubscriberCapacity(capacity int) BrokerOption {
	return func(b *Broker) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		logger:   logger,
		capacity: defaultSubscriberCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            int64(b.capacity),
		Persistent:                     false,
		BlockPublishUntilSubscriberAck: false,
	}, watermill.NewSlogLogger(logger))
	return b
}

func (b *Broker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(eventsTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of events that is closed once ctx is done or
// the broker is closed. A subscriber that falls behind loses events instead
// of stalling publishers.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, b.capacity)
	go func() {
		defer close(out)
		for msg := range messages {
			msg.Ack()

			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.logger.Warn("dropping malformed event", "message_id", msg.UUID, "error", err)
				continue
			}

			select {
			case out <- event:
			default:
				b.dropped.Add(1)
				b.logger.Warn("subscriber is full, dropping event", "event_id", event.ID, "type", event.Type)
			}
		}
	}()
	return out, nil
}

// Dropped reports how many events were discarded for slow subscribers.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Broker) Close() error {
	return b.pubsub.Close()
}
