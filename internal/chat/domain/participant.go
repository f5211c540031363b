package domain

import (
	"strings"
	"time"
)

// placeholder profile for senders that can't be resolved
const (
	UnknownUserName  = "Unknown User"
	UnknownUserPhoto = "https://via.placeholder.com/150"
)

// Participant user profile shown next to messages
type Participant struct {
	ID           string `json:"id" bson:"_id" firestore:"-"`
	FullName     string `json:"fullname" bson:"fullname" firestore:"fullname"`
	ProfilePhoto string `json:"profile_photo,omitempty" bson:"profilePhoto,omitempty" firestore:"profilePhoto"`
}

// UnknownParticipant fallback profile
func UnknownParticipant(id string) Participant {
	return Participant{ID: id, FullName: UnknownUserName, ProfilePhoto: UnknownUserPhoto}
}

// Project only the fields chat needs
type Project struct {
	ID          string   `bson:"_id" firestore:"-"`
	JoinedUsers []string `bson:"joinedUsers" firestore:"joinedUsers"`
}

// InboxEntry support inbox row
type InboxEntry struct {
	ConversationID string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Image          string    `json:"image,omitempty"`
	LastText       string    `json:"last_text"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Matches case-insensitive search on name and preview, empty term matches all
func (e InboxEntry) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Name), term) ||
		strings.Contains(strings.ToLower(e.LastText), term)
}
