package domain

// MessageCreatedTopic default event topic / routing key
const MessageCreatedTopic = "chat.message.created"

// MessageCreatedEvent published after a message is committed
type MessageCreatedEvent struct {
	Conversation Conversation `json:"conversation"`
	Message      Message      `json:"message"`
}
