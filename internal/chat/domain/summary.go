package domain

import "time"

// LastMessageType summary snapshot type
type LastMessageType string

const (
	// LastMessageText text only message
	LastMessageText LastMessageType = "text"
	// LastMessageMedia message carrying media
	LastMessageMedia LastMessageType = "media"
)

// inbox preview
const (
	PreviewEmpty = "No messages yet"
	PreviewImage = "📷 Image"
	PreviewVideo = "🎥 Video"
)

// LastMessage denormalized snapshot of the newest message
type LastMessage struct {
	SenderID     string          `json:"sender_id" bson:"sender_id" firestore:"senderId"`
	Text         string          `json:"text,omitempty" bson:"text,omitempty" firestore:"text,omitempty"`
	MediaURL     string          `json:"media_url,omitempty" bson:"media_url,omitempty" firestore:"mediaUrl,omitempty"`
	MediaType    string          `json:"media_type,omitempty" bson:"media_type,omitempty" firestore:"mediaType,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty" firestore:"thumbnailUrl,omitempty"`
	Type         LastMessageType `json:"type" bson:"type" firestore:"type"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at" firestore:"createdAt"`
}

// ConversationSummary support chat summary document
type ConversationSummary struct {
	ConversationID string       `json:"conversation_id" bson:"_id"`
	Participants   []string     `json:"participants" bson:"participants"`
	LastMessage    *LastMessage `json:"last_message,omitempty" bson:"last_message,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`
}

// SnapshotOf build the summary snapshot of a confirmed message
func SnapshotOf(m Message) *LastMessage {
	lm := &LastMessage{
		SenderID:  m.SenderID,
		Text:      m.Text,
		Type:      LastMessageText,
		CreatedAt: m.CreatedAt,
	}
	if m.Media != nil {
		lm.Type = LastMessageMedia
		lm.MediaURL = m.Media.URL
		lm.MediaType = m.Media.Type
		lm.ThumbnailURL = m.Media.ThumbnailURL
	}
	return lm
}

// Preview inbox line for the summary
func (s ConversationSummary) Preview() string {
	lm := s.LastMessage
	if lm == nil {
		return PreviewEmpty
	}
	media := &Media{Type: lm.MediaType}
	switch {
	case lm.Text != "":
		return lm.Text
	case media.IsImage():
		return PreviewImage
	case media.IsVideo():
		return PreviewVideo
	}
	return PreviewEmpty
}
