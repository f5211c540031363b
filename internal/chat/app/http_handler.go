package app

import (
	"strconv"
	"time"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/pkg/config"
	"reelconnect_service/pkg/logger"
	"reelconnect_service/pkg/middlewares"
	"reelconnect_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler REST side of the chat service
type ChatHTTPHandler struct {
	messageUC      *MessageUseCase
	conversationUC *ConversationUseCase
	pageSize       int
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(messageUC *MessageUseCase, conversationUC *ConversationUseCase, pageSize int) *ChatHTTPHandler {
	if pageSize <= 0 {
		pageSize = domain.PageSize
	}
	return &ChatHTTPHandler{
		messageUC:      messageUC,
		conversationUC: conversationUC,
		pageSize:       pageSize,
	}
}

// ConnectCheck check chat service start
func ConnectCheck(c *fiber.Ctx) error {
	return c.SendString("chat service start!")
}

// DebugLogFlag toggle debug log
func DebugLogFlag(c *fiber.Ctx) error {
	status, err := strconv.ParseBool(c.Query("status"))
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	logger.Log.Info("debug", zap.Bool("status", status))
	logger.Log.SetDebugMode(status)
	return c.JSON(fiber.Map{"debug": status})
}

// DevToken 本機開發用, 直接簽發 token
func DevToken(c *fiber.Ctx) error {
	if !config.IsLocal() {
		return c.SendStatus(fiber.StatusNotFound)
	}
	memberID := c.Query("member_id")
	if memberID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "member_id is required"})
	}
	role := c.Query("role", string(token.RoleUser))
	tokenStr, err := token.GenerateJWT(memberID, c.Query("name"), role, config.EnvConfig.ChatService)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"token": tokenStr})
}

// History 最新一頁訊息, 或 before 之前的一頁
// before_time is the cursor's created_at as returned, RFC3339 with nanoseconds
func (h *ChatHTTPHandler) History(c *fiber.Ctx) error {
	conv, err := domain.NewConversation(c.Params("room_type"), c.Params("room_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	role, _ := c.Locals(middlewares.TokenRole).(string)
	if !canEnter(&wsClient{memberID: memberID, role: role}, conv) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a participant of this conversation"})
	}

	var msgs []domain.Message
	if before := c.Query("before_id"); before != "" {
		at, err := time.Parse(time.RFC3339Nano, c.Query("before_time"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "before_time is required with before_id"})
		}
		cursor := domain.Message{ID: before, CreatedAt: at.UTC()}
		msgs, err = h.messageUC.PageAfter(c.UserContext(), conv, cursor, h.pageSize)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	} else {
		msgs, err = h.messageUC.LatestPage(c.UserContext(), conv, h.pageSize)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.JSON(fiber.Map{
		"messages": toWSMessages(msgs),
		"has_more": len(msgs) == h.pageSize,
	})
}

// Participants group chat members
func (h *ChatHTTPHandler) Participants(c *fiber.Ctx) error {
	participants, err := h.conversationUC.Participants(c.UserContext(), c.Params("project_id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"participants": participants})
}

// Inbox support conversations of the caller
func (h *ChatHTTPHandler) Inbox(c *fiber.Ctx) error {
	memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
	entries, err := h.conversationUC.Inbox(c.UserContext(), memberID, c.Query("search"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"inbox": entries})
}
