package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"reelconnect_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// EventPublisher publish message created events for downstream consumers
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error
}

// KafkaWriter part of *kafka.Writer used by KafkaPublisher
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher events on a kafka topic, keyed by conversation so one conversation stays ordered
type KafkaPublisher struct {
	writer KafkaWriter
}

// NewKafkaPublisher create KafkaPublisher
func NewKafkaPublisher(writer KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// PublishMessageCreated write one event
func (p *KafkaPublisher) PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.Conversation.Key()),
		Value: data,
	})
}

// RabbitChannel part of *amqp.Channel used by RabbitPublisher
type RabbitChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher events on a durable rabbitmq queue through the default exchange
type RabbitPublisher struct {
	channel RabbitChannel
	queue   string
}

// NewRabbitPublisher declare the queue and create RabbitPublisher
func NewRabbitPublisher(ch *amqp.Channel, queue string) (*RabbitPublisher, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &RabbitPublisher{channel: ch, queue: queue}, nil
}

// PublishMessageCreated publish one persistent event
func (p *RabbitPublisher) PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.channel.Publish(
		"",      // 預設 exchange
		p.queue, // queue 名稱
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.Message.ID,
			Body:         data,
		},
	)
}
