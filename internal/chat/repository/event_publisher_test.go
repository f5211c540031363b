package repository

import (
	"context"
	"encoding/json"
	"testing"

	"reelconnect_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKafkaWriter struct{ mock.Mock }

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

type MockRabbitChannel struct{ mock.Mock }

func (m *MockRabbitChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

func sampleEvent() domain.MessageCreatedEvent {
	return domain.MessageCreatedEvent{
		Conversation: domain.SupportConversation("u1", "a1"),
		Message:      domain.Message{ID: "m1", SenderID: "u1", Text: "hi"},
	}
}

func TestKafkaPublisher(t *testing.T) {
	w := &MockKafkaWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "supportChats/u1_a1" {
			return false
		}
		var evt domain.MessageCreatedEvent
		return json.Unmarshal(msgs[0].Value, &evt) == nil && evt.Message.ID == "m1"
	})).Return(nil).Once()

	require.NoError(t, NewKafkaPublisher(w).PublishMessageCreated(context.Background(), sampleEvent()))
	w.AssertExpectations(t)
}

func TestRabbitPublisher(t *testing.T) {
	ch := &MockRabbitChannel{}
	ch.On("Publish", "", domain.MessageCreatedTopic, false, false, mock.MatchedBy(func(p amqp.Publishing) bool {
		return p.ContentType == "application/json" && p.MessageId == "m1" && p.DeliveryMode == amqp.Persistent
	})).Return(nil).Once()

	p := &RabbitPublisher{channel: ch, queue: domain.MessageCreatedTopic}
	assert.NoError(t, p.PublishMessageCreated(context.Background(), sampleEvent()))
	ch.AssertExpectations(t)
}
