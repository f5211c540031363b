package app

import (
	"context"
	"time"

	"reelconnect_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert message
func (m *MockMessageRepository) Insert(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error) {
	args := m.Called(ctx, conv, draft)
	return args.Get(0).(domain.Message), args.Error(1)
}

// LatestPage moke newest page
func (m *MockMessageRepository) LatestPage(ctx context.Context, conv domain.Conversation, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conv, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// PageAfter moke older page
func (m *MockMessageRepository) PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conv, cursor, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSummaryRepository Mock SummaryRepository
type MockSummaryRepository struct {
	mock.Mock
}

// Upsert moke upsert summary
func (m *MockSummaryRepository) Upsert(ctx context.Context, conv domain.Conversation, last *domain.LastMessage, updatedAt time.Time) error {
	args := m.Called(ctx, conv, last, updatedAt)
	return args.Error(0)
}

// ListByParticipant moke list summaries
func (m *MockSummaryRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ConversationSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockParticipantRepository Mock ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

// FindProject moke find project
func (m *MockParticipantRepository) FindProject(ctx context.Context, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Project), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindUsers moke find users
func (m *MockParticipantRepository) FindUsers(ctx context.Context, ids []string) ([]domain.Participant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Participant), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockChangeNotifier Mock ChangeNotifier
type MockChangeNotifier struct {
	mock.Mock
}

// Notify moke notify
func (m *MockChangeNotifier) Notify(ctx context.Context, conv domain.Conversation, messageID string) error {
	args := m.Called(ctx, conv, messageID)
	return args.Error(0)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// PublishMessageCreated moke publish
func (m *MockEventPublisher) PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// MockParticipantCache Mock RedisRepository[[]domain.Participant]
type MockParticipantCache struct {
	mock.Mock
}

// Set moke cache set
func (m *MockParticipantCache) Set(ctx context.Context, key string, value []domain.Participant, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get moke cache get
func (m *MockParticipantCache) Get(ctx context.Context, key string) ([]domain.Participant, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Participant), args.Error(1)
	}
	return nil, args.Error(1)
}

// Del moke cache del
func (m *MockParticipantCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
