package worker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"realms-server/internal/messaging"
)

// ArchiveEventConsumer drains the archive event queue and triggers a
// digest rebuild for every event.
type ArchiveEventConsumer struct {
	conn         *amqp.Connection
	queueName    string
	consumerName string
	builder      *DigestBuilder
	logger       zerolog.Logger

	channel *amqp.Channel
	done    chan struct{}
}

func NewArchiveEventConsumer(conn *amqp.Connection, queueName, consumerName string, builder *DigestBuilder, logger zerolog.Logger) *ArchiveEventConsumer {
	return &ArchiveEventConsumer{
		conn:         conn,
		queueName:    queueName,
		consumerName: consumerName,
		builder:      builder,
		logger:       logger.With().Str("component", "ArchiveEventConsumer").Logger(),
		done:         make(chan struct{}),
	}
}

// StartConsuming declares the queue and blocks processing deliveries
// until Stop is called or the channel dies.
func (c *ArchiveEventConsumer) StartConsuming(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	c.channel = ch

	// Same parameters as the publisher side.
	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		c.queueName,
		c.consumerName,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queueName).Msg("Consuming archive events")

	for {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn().Msg("Delivery channel closed")
				return nil
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *ArchiveEventConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var event messaging.ArchiveEventPayload
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("Failed to decode archive event, dropping")
		_ = delivery.Nack(false, false)
		return
	}

	log := c.logger.With().
		Str("event_id", event.EventID.String()).
		Str("character_name", event.CharacterName).
		Logger()

	if err := c.builder.Rebuild(ctx); err != nil {
		log.Error().Err(err).Msg("Digest rebuild failed, requeueing event")
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Ack(false)
	log.Debug().Msg("Archive event processed")
}

// Stop ends the consume loop.
func (c *ArchiveEventConsumer) Stop() {
	close(c.done)
	if c.channel != nil {
		_ = c.channel.Close()
	}
}
