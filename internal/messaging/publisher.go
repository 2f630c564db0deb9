package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ArchiveEventPublisher publishes archive events after a session
// summary has been persisted.
type ArchiveEventPublisher interface {
	PublishArchiveEvent(ctx context.Context, payload ArchiveEventPayload) error
}

// rabbitMQPublisher implements ArchiveEventPublisher over an open
// RabbitMQ channel.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ ArchiveEventPublisher = (*rabbitMQPublisher)(nil)

// NewRabbitMQArchiveEventPublisher opens a channel and declares the
// queue. Declaring on the publisher side keeps startup order between
// the server and the digest worker irrelevant; the worker declares the
// same queue with the same parameters.
func NewRabbitMQArchiveEventPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (ArchiveEventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("archive event publisher: failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("archive event publisher: failed to declare queue '%s': %w", queueName, err)
	}

	logger.Info("Archive event queue declared", zap.String("queue", queueName))
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("ArchiveEventPublisher"),
	}, nil
}

func (p *rabbitMQPublisher) PublishArchiveEvent(ctx context.Context, payload ArchiveEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize archive event %s: %w", payload.EventID, err)
	}

	if err := p.publishMessage(ctx, body); err != nil {
		p.logger.Error("Failed to publish archive event",
			zap.String("eventID", payload.EventID.String()),
			zap.String("characterName", payload.CharacterName),
			zap.Error(err))
		return fmt.Errorf("failed to publish archive event %s: %w", payload.EventID, err)
	}

	p.logger.Debug("Archive event published",
		zap.String("eventID", payload.EventID.String()),
		zap.String("characterName", payload.CharacterName))
	return nil
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "realms-server",
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.Int("attempt", attempt),
			zap.String("queue", p.queueName),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("failed to publish to queue %s after retries: %w", p.queueName, err)
}
