package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher publishes events as JSON messages on every configured
// watermill publisher, using the event type as topic
type WatermillPublisher struct {
	publishers []message.Publisher
	logger     *slog.Logger
}

func NewWatermillPublisher(logger *slog.Logger, publishers ...message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publishers: publishers,
		logger:     logger,
	}
}

// NewLocalBus returns the in-process pub/sub used by the audit subscriber
func NewLocalBus(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(logger))
}

// NewKafkaPublisher forwards events to kafka brokers
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return publisher, nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, publisher := range p.publishers {
		msg := message.NewMessage(event.ID, payload)
		msg.Metadata.Set("type", event.Type)
		msg.Metadata.Set("source", event.Source)
		msg.SetContext(ctx)

		if err := publisher.Publish(event.Type, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to publish %s: %w", event.Type, errors.Join(errs...))
	}

	p.logger.Debug("Event published", "event_id", event.ID, "type", event.Type)
	return nil
}

func (p *WatermillPublisher) Close() error {
	var errs []error
	for _, publisher := range p.publishers {
		if err := publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
