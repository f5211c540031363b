package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/feed"
	"reelconnect_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordConn struct {
	mu     sync.Mutex
	frames []domain.WSResponse
}

func (c *recordConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var resp domain.WSResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, resp)
	c.mu.Unlock()
	return nil
}

func (c *recordConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordConn) all() []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.WSResponse(nil), c.frames...)
}

func (c *recordConn) actions() []string {
	var out []string
	for _, f := range c.all() {
		out = append(out, f.Action)
	}
	return out
}

func (c *recordConn) last() domain.WSResponse {
	frames := c.all()
	return frames[len(frames)-1]
}

type stubHandle struct{}

func (stubHandle) Stop() {}

// stubSource 記錄最後一次訂閱, 由測試手動 push
type stubSource struct {
	mu     sync.Mutex
	conv   domain.Conversation
	onPush func([]domain.Message)
	err    error
}

func (s *stubSource) Start(ctx context.Context, conv domain.Conversation, limit int, onPush func([]domain.Message), onError func(error)) (feed.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.conv = conv
	s.onPush = onPush
	return stubHandle{}, nil
}

func (s *stubSource) push(msgs []domain.Message) {
	s.mu.Lock()
	fn := s.onPush
	s.mu.Unlock()
	fn(msgs)
}

type failingStorage struct{}

func (failingStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", errors.New("minio down")
}

func (failingStorage) Remove(ctx context.Context, key string) error { return nil }

type wsHarness struct {
	handler *ChatWebsocketHandler
	client  *wsClient
	conn    *recordConn
	src     *stubSource
	msgRepo *MockMessageRepository
	parts   *MockParticipantRepository
	sums    *MockSummaryRepository
}

func newWSHarness(t *testing.T, memberID string, role token.RoleType) *wsHarness {
	t.Helper()
	h := &wsHarness{
		conn:    &recordConn{},
		src:     &stubSource{},
		msgRepo: new(MockMessageRepository),
		parts:   new(MockParticipantRepository),
		sums:    new(MockSummaryRepository),
	}
	messageUC := NewMessageUseCase(h.msgRepo, h.sums, nil, nil)
	newFeed := func(identity feed.Identity, notifier feed.Notifier) *feed.Feed {
		return feed.New(feed.Deps{
			Source:    h.src,
			Pager:     messageUC,
			Committer: messageUC,
			Storage:   failingStorage{},
			Notifier:  notifier,
		}, feed.Config{PageSize: 2}, identity)
	}
	h.handler = NewChatWebsocketHandler(newFeed, NewConversationUseCase(h.parts, h.sums, nil), 0)
	h.client = &wsClient{memberID: memberID, role: string(role), conn: h.conn}
	h.client.feed = newFeed(feed.Identity{ID: memberID, Name: "Amy"}, h.client)
	return h
}

func (h *wsHarness) do(t *testing.T, req domain.WSRequest) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	h.handler.execWebsocketAction(context.Background(), h.client, websocket.TextMessage, data)
	h.client.wg.Wait()
}

func TestWebsocket_EnterRoomStreamsWindow(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)

	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})
	assert.Equal(t, []string{string(domain.WindowChanged), string(domain.EnterRoom)}, h.conn.actions())
	assert.True(t, h.conn.last().Success)
	assert.Equal(t, domain.GroupConversation("p1"), h.src.conv)

	h.src.push([]domain.Message{
		{ID: "m2", SenderID: "u2", Text: "b", CreatedAt: createdAt},
		{ID: "m1", SenderID: "u1", Text: "a", CreatedAt: createdAt},
	})
	win := h.conn.last()
	assert.Equal(t, string(domain.WindowChanged), win.Action)
	assert.Equal(t, true, win.Payload["has_more"])
	assert.Equal(t, false, win.Payload["scroll_to_bottom"])
	msgs := win.Payload["messages"].([]interface{})
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]interface{})
	assert.Equal(t, "m2", first["id"])
	assert.Equal(t, domain.FormatMessageTime(createdAt), first["time"])
}

func TestWebsocket_EnterRoomInvalid(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)

	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "dm", RoomID: "p1"})
	resp := h.conn.last()
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestWebsocket_SupportRoomAccess(t *testing.T) {
	outsider := newWSHarness(t, "u9", token.RoleUser)
	outsider.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "support", RoomID: "u1_a1"})
	assert.False(t, outsider.conn.last().Success)
	assert.Equal(t, []string{string(domain.EnterRoom)}, outsider.conn.actions())

	owner := newWSHarness(t, "u1", token.RoleUser)
	owner.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "support", RoomID: "u1_a1"})
	assert.True(t, owner.conn.last().Success)

	agent := newWSHarness(t, "a2", token.RoleAgent)
	agent.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "support", RoomID: "u1_a1"})
	assert.True(t, agent.conn.last().Success)
}

func TestWebsocket_EnterRoomSubscriptionError(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.src.err = errors.New("redis down")

	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})
	assert.False(t, h.conn.last().Success)
}

func TestWebsocket_SendText(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})

	draft := domain.MessageDraft{SenderID: "u1", Text: "hello"}
	h.msgRepo.On("Insert", mock.Anything, domain.GroupConversation("p1"), draft).Return(confirmed("m1", "u1", "hello"), nil)

	h.do(t, domain.WSRequest{Action: string(domain.SendMessage), Content: "  hello  "})

	frames := h.conn.all()
	require.Len(t, frames, 5)
	placeholder := frames[2]
	assert.Equal(t, string(domain.WindowChanged), placeholder.Action)
	assert.Equal(t, true, placeholder.Payload["scroll_to_bottom"])
	reconciled := frames[3].Payload["messages"].([]interface{})
	assert.Equal(t, "m1", reconciled[0].(map[string]interface{})["id"])

	resp := frames[4]
	assert.Equal(t, string(domain.SendMessage), resp.Action)
	assert.True(t, resp.Success)
}

func TestWebsocket_SendEmptyIsSilent(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})
	before := len(h.conn.all())

	h.do(t, domain.WSRequest{Action: string(domain.SendMessage), Content: "   "})
	assert.Len(t, h.conn.all(), before)
}

func TestWebsocket_SendUploadFailureNotifiesOnce(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})

	h.do(t, domain.WSRequest{
		Action: string(domain.SendMessage),
		Media: &domain.WSMedia{
			Name: "cat.png",
			Type: "image/png",
			Data: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		},
	})

	var failed []domain.WSResponse
	for _, f := range h.conn.all() {
		if f.Action == string(domain.SendFailed) {
			failed = append(failed, f)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, sendFailedText, failed[0].Error)
	assert.Contains(t, failed[0].Payload["temp_id"], domain.TempIDPrefix)
	h.msgRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)

	win := h.conn.last()
	assert.Equal(t, string(domain.SendFailed), win.Action)
}

func TestWebsocket_SendBadMedia(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.SendMessage), Media: &domain.WSMedia{Name: "x.png", Data: "%%%"}})

	resp := h.conn.last()
	assert.Equal(t, string(domain.SendMessage), resp.Action)
	assert.False(t, resp.Success)
}

func TestWebsocket_SendNotAttached(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.SendMessage), Content: "hi"})

	resp := h.conn.last()
	assert.False(t, resp.Success)
	assert.Equal(t, feed.ErrNotAttached.Error(), resp.Error)
}

func TestWebsocket_LoadOlder(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})
	page := []domain.Message{confirmed("m4", "u2", "d"), confirmed("m3", "u2", "c")}
	h.src.push(page)

	h.msgRepo.On("PageAfter", mock.Anything, domain.GroupConversation("p1"), page[1], 2).
		Return([]domain.Message{confirmed("m2", "u2", "b")}, nil)

	h.do(t, domain.WSRequest{Action: string(domain.LoadOlder)})

	win := h.conn.last()
	assert.Equal(t, string(domain.WindowChanged), win.Action)
	assert.Len(t, win.Payload["messages"], 3)
	assert.Equal(t, false, win.Payload["has_more"])
}

func TestWebsocket_LeaveRoom(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)
	h.do(t, domain.WSRequest{Action: string(domain.EnterRoom), RoomType: "group", RoomID: "p1"})
	h.do(t, domain.WSRequest{Action: string(domain.LeaveRoom)})
	before := len(h.conn.all())

	// 離開後的 push 不再送出
	h.src.push([]domain.Message{confirmed("m1", "u2", "late")})
	assert.Len(t, h.conn.all(), before)
	_, attached := h.client.feed.Conversation()
	assert.False(t, attached)
}

func TestWebsocket_GetParticipantsAndInbox(t *testing.T) {
	h := newWSHarness(t, "a1", token.RoleAgent)
	ctx := mock.Anything
	h.parts.On("FindProject", ctx, "p1").Return(&domain.Project{ID: "p1", JoinedUsers: []string{"u1"}}, nil)
	h.parts.On("FindUsers", ctx, []string{"u1"}).Return([]domain.Participant{{ID: "u1", FullName: "Amy"}}, nil)
	h.sums.On("ListByParticipant", ctx, "a1").Return([]domain.ConversationSummary{
		{ConversationID: "u1_a1", LastMessage: &domain.LastMessage{Text: "hi", Type: domain.LastMessageText}, UpdatedAt: createdAt},
	}, nil)

	h.do(t, domain.WSRequest{Action: string(domain.GetParticipants), RoomID: "p1"})
	resp := h.conn.last()
	assert.True(t, resp.Success)
	assert.Len(t, resp.Payload["participants"], 1)

	h.do(t, domain.WSRequest{Action: string(domain.GetInbox)})
	resp = h.conn.last()
	assert.True(t, resp.Success)
	inbox := resp.Payload["inbox"].([]interface{})
	require.Len(t, inbox, 1)
	assert.Equal(t, "Amy", inbox[0].(map[string]interface{})["name"])
}

func TestWebsocket_BadRequests(t *testing.T) {
	h := newWSHarness(t, "u1", token.RoleUser)

	h.handler.execWebsocketAction(context.Background(), h.client, websocket.TextMessage, []byte("{not json"))
	assert.Equal(t, "invalid request", h.conn.last().Error)

	h.do(t, domain.WSRequest{Action: "dance"})
	assert.Equal(t, "unknown action", h.conn.last().Error)

	h.handler.execWebsocketAction(context.Background(), h.client, websocket.BinaryMessage, []byte{1})
	assert.Equal(t, "unsupported message type", h.conn.last().Error)
}

func TestReadLimitFitsLargestSend(t *testing.T) {
	assert.Equal(t, int64(0), readLimit(0))
	assert.Equal(t, int64(0), readLimit(-1))

	const maxMedia = 3<<20 + 1
	frame, err := json.Marshal(domain.WSRequest{
		Action:   "send_message",
		RoomType: string(domain.ConversationSupport),
		RoomID:   "u1_a1",
		Content:  "here is the clip you asked for",
		Media: &domain.WSMedia{
			Name: "holiday.mp4",
			Type: "video/mp4",
			Data: base64.StdEncoding.EncodeToString(make([]byte, maxMedia)),
		},
	})
	require.NoError(t, err)
	limit := readLimit(maxMedia)
	assert.LessOrEqual(t, int64(len(frame)), limit)
	// 不會大到讓超過上限的附件也能進來
	assert.Less(t, limit, int64(maxMedia*2))
}
