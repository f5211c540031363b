package app

import (
	"context"
	"fmt"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/repository"
	errprocess "reelconnect_service/pkg/err"
	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// ChangeNotifier tell live subscribers a conversation got a new message
type ChangeNotifier interface {
	Notify(ctx context.Context, conv domain.Conversation, messageID string) error
}

// MessageUseCase 負責寫入與讀取聊天訊息, feed 的 Committer 與 Pager
type MessageUseCase struct {
	msgRepo     repository.MessageRepository
	summaryRepo repository.SummaryRepository
	notifier    ChangeNotifier
	events      repository.EventPublisher
}

// NewMessageUseCase init message use case, notifier and events may be nil
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	summaryRepo repository.SummaryRepository,
	notifier ChangeNotifier,
	events repository.EventPublisher,
) *MessageUseCase {
	return &MessageUseCase{
		msgRepo:     msgRepo,
		summaryRepo: summaryRepo,
		notifier:    notifier,
		events:      events,
	}
}

// Commit 寫入訊息, 之後的 summary / 通知 / 事件失敗只記錄不影響結果
func (uc *MessageUseCase) Commit(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error) {
	// 1. 寫入訊息
	msg, err := uc.msgRepo.Insert(ctx, conv, draft)
	if err != nil {
		return domain.Message{}, errprocess.Wrap(fmt.Sprintf("conversation[%s] 寫入訊息失敗", conv.Key()), err)
	}

	// 2. support chat 更新 inbox summary
	if conv.Kind == domain.ConversationSupport && uc.summaryRepo != nil {
		if err := uc.summaryRepo.Upsert(ctx, conv, domain.SnapshotOf(msg), msg.CreatedAt); err != nil {
			logger.Log.Error("update conversation summary failed", zap.String("conversation", conv.Key()), zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	// 3. 通知 live feed
	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, conv, msg.ID); err != nil {
			logger.Log.Error("notify conversation failed", zap.String("conversation", conv.Key()), zap.Error(err))
		}
	}

	// 4. 發布 message created 事件
	if uc.events != nil {
		evt := domain.MessageCreatedEvent{Conversation: conv, Message: msg}
		if err := uc.events.PublishMessageCreated(ctx, evt); err != nil {
			logger.Log.Warn("publish message event failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	logger.Log.Debug("message committed", zap.String("conversation", conv.Key()), zap.String("message_id", msg.ID))
	return msg, nil
}

// PageAfter older page for load-more
func (uc *MessageUseCase) PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error) {
	return uc.msgRepo.PageAfter(ctx, conv, cursor, limit)
}

// LatestPage newest page, used by REST history
func (uc *MessageUseCase) LatestPage(ctx context.Context, conv domain.Conversation, limit int) ([]domain.Message, error) {
	return uc.msgRepo.LatestPage(ctx, conv, limit)
}
