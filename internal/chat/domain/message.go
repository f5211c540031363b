package domain

import (
	"strings"
	"time"
)

// PageSize 一頁訊息數量 (live 與 load older 相同)
const PageSize = 15

// TempIDPrefix optimistic placeholder id prefix
const TempIDPrefix = "temp-"

// Media 訊息附件
type Media struct {
	URL          string `json:"url" bson:"url"`
	Type         string `json:"type" bson:"type"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty"`
}

// IsVideo media MIME type is video/*
func (m *Media) IsVideo() bool {
	return m != nil && strings.HasPrefix(m.Type, "video/")
}

// IsImage media MIME type is image/*
func (m *Media) IsImage() bool {
	return m != nil && strings.HasPrefix(m.Type, "image/")
}

// Message 表示一則聊天訊息
type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"-" bson:"conversation_id"`
	SenderID       string    `json:"sender_id" bson:"sender_id"`
	Text           string    `json:"text,omitempty" bson:"text,omitempty"`
	Media          *Media    `json:"media,omitempty" bson:"media,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	// Optimistic 尚未被 server 確認的 placeholder
	Optimistic bool `json:"optimistic" bson:"-"`
}

// MessageDraft 寫入前的訊息內容, CreatedAt 由 store 指定
type MessageDraft struct {
	SenderID string
	Text     string
	Media    *Media
}

// IsTemp placeholder id check
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// FormatMessageTime 顯示用時間 "03:04 PM", 尚未有 server 時間時回傳空字串
func FormatMessageTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("03:04 PM")
}
