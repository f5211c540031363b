package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/media"
	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// Upload one media file attached to a send
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// SendInput message attempt, at least one of Text and Media
type SendInput struct {
	Text  string
	Media *Upload
}

// Send optimistic send: placeholder first, then upload, commit and reconcile.
// Every call is independent and keyed by its own temp id.
func (f *Feed) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	text := strings.TrimSpace(in.Text)
	up := in.Media
	if up != nil && len(up.Data) == 0 {
		up = nil
	}
	if text == "" && up == nil {
		return nil, ErrNothingToSend
	}
	if f.identity.ID == "" {
		return nil, ErrUnknownSender
	}
	if up != nil {
		if f.cfg.MaxMediaBytes > 0 && int64(len(up.Data)) > f.cfg.MaxMediaBytes {
			return nil, ErrMediaTooLarge
		}
		if up.ContentType == "" {
			up.ContentType = http.DetectContentType(up.Data)
		}
	}

	f.mu.Lock()
	s := f.sess
	if s == nil {
		f.mu.Unlock()
		return nil, ErrNotAttached
	}
	tempID := domain.TempIDPrefix + f.newID()
	placeholder := domain.Message{
		ID:         tempID,
		SenderID:   f.identity.ID,
		Text:       text,
		CreatedAt:  f.now(),
		Optimistic: true,
	}
	if up != nil {
		placeholder.Media = &domain.Media{Type: up.ContentType}
	}
	s.messages = append([]domain.Message{placeholder}, s.messages...)
	conv := s.conv
	f.queueWindow(s, true)
	f.mu.Unlock()
	f.flush()

	confirmed, err := f.deliver(ctx, conv, text, up)

	defer f.flush()
	f.mu.Lock()
	defer f.mu.Unlock()

	live := f.sess == s && !s.detached
	if err != nil {
		if live && s.remove(tempID) {
			f.queueWindow(s, false)
		}
		f.queueFailed(tempID, err)
		return nil, err
	}

	if live {
		f.reconcile(s, tempID, confirmed)
	}
	return &confirmed, nil
}

// reconcile swap the placeholder for the confirmed record, unless a push already delivered it
func (f *Feed) reconcile(s *session, tempID string, confirmed domain.Message) {
	i := s.indexOf(tempID)
	if i < 0 {
		// push 已經整頁取代, placeholder 不在清單內
		return
	}
	if s.indexOf(confirmed.ID) >= 0 {
		s.remove(tempID)
	} else {
		confirmed.Optimistic = false
		s.messages[i] = confirmed
	}
	f.queueWindow(s, false)
}

// deliver upload media (with a best-effort video thumbnail) then commit
func (f *Feed) deliver(ctx context.Context, conv domain.Conversation, text string, up *Upload) (domain.Message, error) {
	draft := domain.MessageDraft{SenderID: f.identity.ID, Text: text}
	var uploaded []string

	if up != nil {
		upCtx, cancel := context.WithTimeout(ctx, f.cfg.UploadTimeout)
		defer cancel()

		keys := media.KeysFor(conv, up.Name, up.ContentType, f.now())
		url, err := f.deps.Storage.Put(upCtx, keys.Media, up.Data, up.ContentType)
		if err != nil {
			logger.Log.Error(ErrUpload.Error(), zap.String("key", keys.Media), zap.Error(err))
			return domain.Message{}, fmt.Errorf("%w: %w", ErrUpload, err)
		}
		uploaded = append(uploaded, keys.Media)
		draft.Media = &domain.Media{URL: url, Type: up.ContentType}

		if media.IsVideo(up.ContentType) {
			thumbURL, err := f.thumbnail(upCtx, keys.Thumbnail, up.Data)
			if err != nil {
				logger.Log.Warn(ErrThumbnail.Error(), zap.String("key", keys.Thumbnail), zap.Error(err))
			} else {
				uploaded = append(uploaded, keys.Thumbnail)
				draft.Media.ThumbnailURL = thumbURL
			}
		}
	}

	msg, err := f.deps.Committer.Commit(ctx, conv, draft)
	if err != nil {
		logger.Log.Error(ErrCommit.Error(), zap.String("conversation", conv.Key()), zap.Error(err))
		f.removeObjects(ctx, uploaded)
		return domain.Message{}, fmt.Errorf("%w: %w", ErrCommit, err)
	}
	return msg, nil
}

func (f *Feed) thumbnail(ctx context.Context, key string, video []byte) (string, error) {
	if f.deps.Thumbnailer == nil {
		return "", fmt.Errorf("no thumbnailer configured")
	}
	jpg, err := f.deps.Thumbnailer.Thumbnail(ctx, video)
	if err != nil {
		return "", err
	}
	return f.deps.Storage.Put(ctx, key, jpg, media.ThumbnailContentType)
}

// removeObjects compensating delete after a failed commit, errors only logged
func (f *Feed) removeObjects(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, k := range keys {
		if err := f.deps.Storage.Remove(ctx, k); err != nil {
			logger.Log.Warn("remove orphaned object failed", zap.String("key", k), zap.Error(err))
		}
	}
}
