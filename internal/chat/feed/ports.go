package feed

import (
	"context"

	"reelconnect_service/internal/chat/domain"
)

// Handle live subscription handle, Stop must be safe to call more than once
type Handle interface {
	Stop()
}

// Source open a live subscription on the newest page of a conversation.
// onPush receives the full page newest first, onError reports listener failures.
type Source interface {
	Start(ctx context.Context, conv domain.Conversation, limit int, onPush func([]domain.Message), onError func(error)) (Handle, error)
}

// Pager one-shot fetch of the page strictly older than cursor
type Pager interface {
	PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error)
}

// Committer write a confirmed message and return it with its id and server time
type Committer interface {
	Commit(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error)
}

// Storage object storage for message media
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Thumbnailer derive a jpeg still frame from a video
type Thumbnailer interface {
	Thumbnail(ctx context.Context, video []byte) ([]byte, error)
}

// Notifier receive window changes and send failures, called in order and outside the feed lock.
// It may read the feed (Window, Conversation) but must not call Attach, LoadOlder or Send.
type Notifier interface {
	WindowChanged(w Window, scrollToBottom bool)
	SendFailed(tempID string, err error)
}
