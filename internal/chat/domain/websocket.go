package domain

// Action websocket request action
type Action string

const (
	// EnterRoom websocket action enter_room, attach the feed
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room, detach the feed
	LeaveRoom Action = "leave_room"
	// LoadOlder websocket action load_older
	LoadOlder Action = "load_older"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// GetParticipants websocket action get_participants
	GetParticipants Action = "get_participants"
	// GetInbox websocket action get_inbox
	GetInbox Action = "get_inbox"

	// WindowChanged server push, feed window replaced or extended
	WindowChanged Action = "window_changed"
	// SendFailed server push, optimistic send reverted
	SendFailed Action = "send_failed"
)

// WSMedia base64 encoded upload
type WSMedia struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// WSRequest websocket Request
type WSRequest struct {
	Action   string   `json:"action"`
	RoomType string   `json:"room_type"`
	RoomID   string   `json:"room_id"`
	Content  string   `json:"content"`
	Media    *WSMedia `json:"media,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
