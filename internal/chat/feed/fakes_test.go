package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelconnect_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// fakeSource 可以在 Stop 之後繼續推送, 用來模擬遲到的 push
type fakeSource struct {
	mu       sync.Mutex
	subs     []*fakeSub
	startErr error
}

type fakeSub struct {
	conv    domain.Conversation
	limit   int
	onPush  func([]domain.Message)
	onError func(error)

	mu      sync.Mutex
	stopped int
}

func (s *fakeSource) Start(ctx context.Context, conv domain.Conversation, limit int, onPush func([]domain.Message), onError func(error)) (Handle, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	sub := &fakeSub{conv: conv, limit: limit, onPush: onPush, onError: onError}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub, nil
}

func (s *fakeSource) last() *fakeSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[len(s.subs)-1]
}

func (s *fakeSub) Stop() {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
}

func (s *fakeSub) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *fakeSub) push(msgs []domain.Message) {
	s.onPush(msgs)
}

type recordingNotifier struct {
	mu       sync.Mutex
	windows  []Window
	scrolls  []bool
	failures []string
}

func (n *recordingNotifier) WindowChanged(w Window, scroll bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.windows = append(n.windows, w)
	n.scrolls = append(n.scrolls, scroll)
}

func (n *recordingNotifier) SendFailed(tempID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, tempID)
}

func (n *recordingNotifier) lastScroll() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scrolls[len(n.scrolls)-1]
}

func (n *recordingNotifier) allWindows() []Window {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Window(nil), n.windows...)
}

func (n *recordingNotifier) failureCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failures)
}

type mockPager struct{ mock.Mock }

func (m *mockPager) PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, conv, cursor, limit)
	if fn, ok := args.Get(0).(func() []domain.Message); ok {
		return fn(), args.Error(1)
	}
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

type mockCommitter struct{ mock.Mock }

func (m *mockCommitter) Commit(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error) {
	args := m.Called(ctx, conv, draft)
	return args.Get(0).(domain.Message), args.Error(1)
}

type mockStorage struct{ mock.Mock }

func (m *mockStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Remove(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockThumbnailer struct{ mock.Mock }

func (m *mockThumbnailer) Thumbnail(ctx context.Context, video []byte) ([]byte, error) {
	args := m.Called(ctx, video)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// page 產生 n 筆由新到舊的訊息, id 為 prefix-start ... prefix-(start+n-1)
func page(prefix string, start, n int) []domain.Message {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Message, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, domain.Message{
			ID:        fmt.Sprintf("%s-%02d", prefix, i),
			SenderID:  "u1",
			Text:      fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return out
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
