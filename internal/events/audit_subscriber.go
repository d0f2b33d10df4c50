package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"gorm.io/datatypes"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/repositories"
)

// AuditSubscriber stores every domain event in the activity log
type AuditSubscriber struct {
	subscriber message.Subscriber
	activity   repositories.ActivityRepository
	logger     *slog.Logger
	retry      middleware.Retry
	wg         sync.WaitGroup
}

func NewAuditSubscriber(subscriber message.Subscriber, activity repositories.ActivityRepository, logger *slog.Logger) *AuditSubscriber {
	return &AuditSubscriber{
		subscriber: subscriber,
		activity:   activity,
		logger:     logger,
		retry: middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          watermill.NewSlogLogger(logger),
		},
	}
}

// Start runs a watermill router with one handler per topic. It returns once
// every topic is subscribed; the router stops when ctx is cancelled.
func (a *AuditSubscriber) Start(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to create audit router: %w", err)
	}
	// outermost first: a message that exhausts its retries is dropped, not redelivered
	router.AddMiddleware(a.dropExhausted, a.retry.Middleware)

	for _, topic := range AllTopics {
		router.AddNoPublisherHandler("audit_"+topic, topic, a.subscriber, a.handle)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := router.Run(ctx); err != nil {
			a.logger.Error("Audit router stopped", "error", err)
		}
	}()
	<-router.Running()
	return nil
}

// Wait blocks until the router has returned
func (a *AuditSubscriber) Wait() {
	a.wg.Wait()
}

func (a *AuditSubscriber) dropExhausted(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		produced, err := h(msg)
		if err != nil {
			a.logger.Error("Dropping event after retries", "message_id", msg.UUID, "error", err)
			return nil, nil
		}
		return produced, nil
	}
}

func (a *AuditSubscriber) handle(msg *message.Message) error {
	var envelope struct {
		ID      string          `json:"id"`
		Type    string          `json:"type"`
		ActorID uint            `json:"actor_id"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		a.logger.Warn("Dropping undecodable event", "message_id", msg.UUID, "error", err)
		return nil
	}

	entry := &models.ActivityLog{
		EventID: envelope.ID,
		Tipo:    envelope.Type,
		ActorID: envelope.ActorID,
		Payload: datatypes.JSON(envelope.Data),
	}
	return a.activity.Create(msg.Context(), entry)
}
