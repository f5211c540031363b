package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/feed"
	"reelconnect_service/pkg"
	"reelconnect_service/pkg/logger"
	"reelconnect_service/pkg/metrics"
	"reelconnect_service/pkg/middlewares"
	"reelconnect_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	pingInterval = 10 * time.Minute
	writeTimeout = 10 * time.Second
	// frameOverhead json envelope and text around the base64 media
	frameOverhead = 64 << 10

	// sendFailedText 顯示給使用者的訊息, 真正原因只寫 log
	sendFailedText = "Failed to send message. Please try again."
)

// FeedFactory build the live feed of one websocket connection
type FeedFactory func(identity feed.Identity, notifier feed.Notifier) *feed.Feed

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	newFeed        FeedFactory
	conversationUC *ConversationUseCase
	readLimit      int64
}

// NewChatWebsocketHandler create ChatWebsocketHandler, maxMediaBytes 0 means no frame limit
func NewChatWebsocketHandler(newFeed FeedFactory, conversationUC *ConversationUseCase, maxMediaBytes int64) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		newFeed:        newFeed,
		conversationUC: conversationUC,
		readLimit:      readLimit(maxMediaBytes),
	}
}

// readLimit largest frame a send_message with maxMedia bytes of media can need
func readLimit(maxMedia int64) int64 {
	if maxMedia <= 0 {
		return 0
	}
	// base64 每 3 byte 變 4 byte
	return (maxMedia+2)/3*4 + frameOverhead
}

// wsConn the part of *websocket.Conn the handler writes to
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// wsClient 一條連線: 身份, feed 與寫入鎖
type wsClient struct {
	memberID string
	role     string
	feed     *feed.Feed

	mu   sync.Mutex
	conn wsConn
	// 背景 load / send
	wg sync.WaitGroup
}

func (c *wsClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsClient) send(resp domain.WSResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("websocket marshal response failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}
	if err := c.write(websocket.TextMessage, data); err != nil {
		logger.Log.Warn("websocket write failed", zap.String("userID", c.memberID), zap.Error(err))
	}
}

func (c *wsClient) sendError(action, message string) {
	c.send(domain.WSResponse{Action: action, Success: false, Error: message})
}

// wsMessage message with the display time
type wsMessage struct {
	domain.Message
	Time string `json:"time"`
}

func toWSMessages(msgs []domain.Message) []wsMessage {
	out := make([]wsMessage, len(msgs))
	for i, m := range msgs {
		out[i] = wsMessage{Message: m, Time: domain.FormatMessageTime(m.CreatedAt)}
	}
	return out
}

// WindowChanged feed.Notifier, push the whole window to the client
func (c *wsClient) WindowChanged(w feed.Window, scrollToBottom bool) {
	c.send(domain.WSResponse{
		Action:  string(domain.WindowChanged),
		Success: true,
		Payload: map[string]interface{}{
			"room_type":        string(w.Conversation.Kind),
			"room_id":          w.Conversation.ID,
			"messages":         toWSMessages(w.Messages),
			"has_more":         w.HasMore,
			"scroll_to_bottom": scrollToBottom,
		},
	})
}

// SendFailed feed.Notifier, one notice per failed send
func (c *wsClient) SendFailed(tempID string, err error) {
	metrics.SendFailures.Inc()
	logger.Log.Error("send message failed", zap.String("userID", c.memberID), zap.String("temp_id", tempID), zap.Error(err))
	c.send(domain.WSResponse{
		Action:  string(domain.SendFailed),
		Success: false,
		Payload: map[string]interface{}{"temp_id": tempID},
		Error:   sendFailedText,
	})
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	name, _ := conn.Locals(middlewares.TokenName).(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	logger.Log.Info("websocket handle memberID", zap.String("userID", memberID), zap.String("role", role))

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}
	client := &wsClient{memberID: memberID, role: role, conn: conn}
	client.feed = h.newFeed(feed.Identity{ID: memberID, Name: name}, client)

	ticker := time.NewTicker(pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)
	metrics.ActiveConnections.Inc()

	defer func() {
		metrics.ActiveConnections.Dec()
		ticker.Stop()
		client.feed.Detach()
		cancel()
		client.wg.Wait()
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket closed by client", zap.String("userID", memberID), zap.Int("code", code))
		return nil
	})

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("userID", memberID))
		return nil
	})

	//client發出ping
	conn.SetPingHandler(func(appData string) error {
		client.mu.Lock()
		defer client.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := client.write(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Warn("ping error", zap.String("userID", memberID), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("userID", memberID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("userID", memberID), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctxClose, client, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, c *wsClient, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, c, msg)
	default:
		c.sendError("", "unsupported message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, c *wsClient, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Warn("json unmarshal error", zap.String("userID", c.memberID), zap.Error(err))
		c.sendError("", "invalid request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch domain.Action(req.Action) {
	//進入聊天室, 切換 feed
	case domain.EnterRoom:
		conv, err := domain.NewConversation(req.RoomType, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		if !canEnter(c, conv) {
			resp.Error = "not a participant of this conversation"
			break
		}
		if err := c.feed.Attach(ctx, conv); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["room_id"] = conv.ID

	//離開聊天室
	case domain.LeaveRoom:
		c.feed.Detach()
		resp.Success = true

	//載入更舊訊息, 結果由 window_changed 推送
	case domain.LoadOlder:
		metrics.OlderPages.Inc()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.feed.LoadOlder(ctx); err != nil {
				c.sendError(req.Action, err.Error())
			}
		}()
		return

	case domain.SendMessage:
		in, err := decodeSendInput(req)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			h.send(ctx, c, in)
		}()
		return

	case domain.GetParticipants:
		participants, err := h.conversationUC.Participants(ctx, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["participants"] = participants

	case domain.GetInbox:
		entries, err := h.conversationUC.Inbox(ctx, c.memberID, req.Content)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["inbox"] = entries

	default:
		resp.Error = "unknown action"
	}
	c.send(resp)
}

func (h *ChatWebsocketHandler) send(ctx context.Context, c *wsClient, in feed.SendInput) {
	confirmed, err := c.feed.Send(ctx, in)
	switch {
	case err == nil:
		if conv, ok := c.feed.Conversation(); ok {
			metrics.MessagesSent.WithLabelValues(string(conv.Kind)).Inc()
		}
		c.send(domain.WSResponse{
			Action:  string(domain.SendMessage),
			Success: true,
			Payload: map[string]interface{}{"message": toWSMessages([]domain.Message{*confirmed})[0]},
		})
	case errors.Is(err, feed.ErrNothingToSend), errors.Is(err, feed.ErrUnknownSender):
		// 空白訊息或未登入, 直接忽略
		logger.Log.Debug("send ignored", zap.String("userID", c.memberID), zap.Error(err))
	case errors.Is(err, feed.ErrNotAttached), errors.Is(err, feed.ErrMediaTooLarge):
		c.sendError(string(domain.SendMessage), err.Error())
	default:
		// SendFailed 已通知
	}
}

func decodeSendInput(req domain.WSRequest) (feed.SendInput, error) {
	in := feed.SendInput{Text: req.Content}
	if req.Media == nil || req.Media.Data == "" {
		return in, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.Media.Data)
	if err != nil {
		return in, errors.New("media data must be base64")
	}
	in.Media = &feed.Upload{Name: req.Media.Name, ContentType: req.Media.Type, Data: data}
	return in, nil
}

// canEnter group chats are open, support chats only for the two sides and staff
func canEnter(c *wsClient, conv domain.Conversation) bool {
	if conv.Kind != domain.ConversationSupport {
		return true
	}
	switch token.RoleType(c.role) {
	case token.RoleAdmin, token.RoleAgent:
		return true
	}
	return pkg.Contains(conv.Participants(), c.memberID)
}
