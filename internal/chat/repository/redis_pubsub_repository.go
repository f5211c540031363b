package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/feed"
	"reelconnect_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ChannelPrefix conversation change channel prefix
const ChannelPrefix = "chat:conversation:"

// ConversationChannel redis channel of a conversation
func ConversationChannel(conv domain.Conversation) string {
	return ChannelPrefix + conv.Key()
}

// changeNotice payload of a change notification
type changeNotice struct {
	MessageID string `json:"message_id"`
}

// RedisPubSub definition redis pub/sub, also the live feed source of the mongo backend
type RedisPubSub struct {
	client   *redis.Client
	messages MessageRepository
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client, messages MessageRepository) *RedisPubSub {
	return &RedisPubSub{
		client:   client,
		messages: messages,
	}
}

// Notify 通知訂閱者這個對話有新訊息
func (r *RedisPubSub) Notify(ctx context.Context, conv domain.Conversation, messageID string) error {
	data, err := json.Marshal(changeNotice{MessageID: messageID})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, ConversationChannel(conv), data).Err()
}

// Start subscribe the conversation channel, push the newest page once and again on every notice
func (r *RedisPubSub) Start(ctx context.Context, conv domain.Conversation, limit int, onPush func([]domain.Message), onError func(error)) (feed.Handle, error) {
	channel := ConversationChannel(conv)
	sub := r.client.Subscribe(ctx, channel)
	// 等訂閱確認後才查第一頁, 避免漏掉中間的通知
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &liveHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer sub.Close()

		refresh := func() {
			msgs, err := r.messages.LatestPage(runCtx, conv, limit)
			if runCtx.Err() != nil {
				return
			}
			if err != nil {
				onError(err)
				return
			}
			onPush(msgs)
		}

		refresh()
		ch := sub.Channel()
		for {
			select {
			case <-runCtx.Done():
				logger.Log.Debug("live feed closed", zap.String("channel", channel))
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				// 合併已排隊的通知, 只重查一次
				drain(ch)
				refresh()
			}
		}
	}()

	return h, nil
}

func drain(ch <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// liveHandle Stop returns after the subscription goroutine exited
type liveHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *liveHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}
