package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// default settings
const (
	DefaultUploadTimeout = 60 * time.Second
	cleanupTimeout       = 10 * time.Second
)

// Identity sender of the connection, read once when the feed is built
type Identity struct {
	ID   string
	Name string
}

// Window feed state handed to the notifier, Messages newest first
type Window struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
	Cursor       *domain.Message     `json:"cursor,omitempty"`
	HasMore      bool                `json:"has_more"`
}

// Deps backends of a feed, Thumbnailer may be nil
type Deps struct {
	Source      Source
	Pager       Pager
	Committer   Committer
	Storage     Storage
	Thumbnailer Thumbnailer
	Notifier    Notifier
}

// Config feed setting
type Config struct {
	PageSize      int
	UploadTimeout time.Duration
	// MaxMediaBytes 0 means unlimited
	MaxMediaBytes int64
}

// Feed live paginated chat feed of one viewer
type Feed struct {
	deps     Deps
	cfg      Config
	identity Identity

	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	sess *session
	// outbox 在 mu 內排隊, flush 在鎖外依序送給 Notifier
	outbox  []notice
	flushMu sync.Mutex
}

// notice one queued Notifier call, window or send failure
type notice struct {
	window *Window
	scroll bool
	tempID string
	err    error
}

// session state of one attached conversation, replaced on every attach
type session struct {
	conv     domain.Conversation
	messages []domain.Message
	cursor   *domain.Message
	hasMore  bool

	seenFirstPush bool
	loading       bool
	detached      bool
	handle        Handle
}

// New create Feed
func New(deps Deps, cfg Config, identity Identity) *Feed {
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.PageSize
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	return &Feed{
		deps:     deps,
		cfg:      cfg,
		identity: identity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Attach detach the current conversation and open a live subscription on conv
func (f *Feed) Attach(ctx context.Context, conv domain.Conversation) error {
	f.Detach()

	s := &session{conv: conv}

	f.mu.Lock()
	f.sess = s
	f.queueWindow(s, false)
	f.mu.Unlock()
	f.flush()

	// Start 不持有鎖, source 可能同步送出第一筆 push
	h, err := f.deps.Source.Start(ctx, conv, f.cfg.PageSize,
		func(msgs []domain.Message) { f.applyPush(s, msgs) },
		func(err error) { f.subscriptionError(s, err) },
	)
	if err != nil {
		logger.Log.Error("feed subscribe failed", zap.String("conversation", conv.Key()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSubscription, err)
	}

	f.mu.Lock()
	if s.detached {
		f.mu.Unlock()
		h.Stop()
		return nil
	}
	s.handle = h
	f.mu.Unlock()

	logger.Log.Debug("feed attached", zap.String("conversation", conv.Key()), zap.String("viewer", f.identity.ID))
	return nil
}

// Detach stop the live subscription, safe when nothing is attached
func (f *Feed) Detach() {
	f.mu.Lock()
	s := f.sess
	f.sess = nil
	var h Handle
	if s != nil {
		s.detached = true
		h = s.handle
		s.handle = nil
	}
	f.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Window snapshot of the current window
func (f *Feed) Window() (Window, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return Window{}, false
	}
	return f.sess.window(), true
}

// Conversation currently attached conversation
func (f *Feed) Conversation() (domain.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return domain.Conversation{}, false
	}
	return f.sess.conv, true
}

// applyPush full replace of the window by a pushed page
func (f *Feed) applyPush(s *session, msgs []domain.Message) {
	defer f.flush()
	f.mu.Lock()
	defer f.mu.Unlock()

	// 已 detach 或換了對話的 handle 送來的 push 一律忽略
	if f.sess != s || s.detached {
		return
	}

	s.messages = append([]domain.Message(nil), msgs...)
	s.cursor = nil
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		s.cursor = &last
	}
	s.hasMore = len(msgs) >= f.cfg.PageSize

	scroll := s.seenFirstPush
	s.seenFirstPush = true
	f.queueWindow(s, scroll)
}

func (f *Feed) subscriptionError(s *session, err error) {
	f.mu.Lock()
	stale := f.sess != s || s.detached
	f.mu.Unlock()
	if stale {
		return
	}
	logger.Log.Error(ErrSubscription.Error(), zap.String("conversation", s.conv.Key()), zap.Error(err))
}

// queueWindow snapshot the window for the notifier, caller holds f.mu
func (f *Feed) queueWindow(s *session, scroll bool) {
	w := s.window()
	f.outbox = append(f.outbox, notice{window: &w, scroll: scroll})
}

// queueFailed caller holds f.mu
func (f *Feed) queueFailed(tempID string, err error) {
	f.outbox = append(f.outbox, notice{tempID: tempID, err: err})
}

// flush deliver queued notices in order without holding f.mu.
// Only one flusher runs at a time.
func (f *Feed) flush() {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()
	for {
		f.mu.Lock()
		batch := f.outbox
		f.outbox = nil
		f.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, n := range batch {
			if n.window != nil {
				f.deps.Notifier.WindowChanged(*n.window, n.scroll)
				continue
			}
			f.deps.Notifier.SendFailed(n.tempID, n.err)
		}
	}
}

func (s *session) window() Window {
	w := Window{
		Conversation: s.conv,
		Messages:     append([]domain.Message{}, s.messages...),
		HasMore:      s.hasMore,
	}
	if s.cursor != nil {
		c := *s.cursor
		w.Cursor = &c
	}
	return w
}

func (s *session) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *session) remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
	return true
}
