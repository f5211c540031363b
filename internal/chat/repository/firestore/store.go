package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/feed"
	"reelconnect_service/internal/chat/repository"
	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// Store messages, summaries and profiles on firestore, live feed on query snapshots
type Store struct {
	client *firestore.Client
}

// NewStore wrap a firestore client
func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close release the client
func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) conversationDoc(conv domain.Conversation) *firestore.DocumentRef {
	return s.client.Collection(conv.Namespace()).Doc(conv.ID)
}

func (s *Store) messagesCol(conv domain.Conversation) *firestore.CollectionRef {
	return s.conversationDoc(conv).Collection("messages")
}

func (s *Store) newestFirst(conv domain.Conversation, limit int) firestore.Query {
	return s.messagesCol(conv).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(limit)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	SenderID     string    `firestore:"senderId"`
	Text         string    `firestore:"text,omitempty"`
	MediaURL     string    `firestore:"mediaUrl,omitempty"`
	MediaType    string    `firestore:"mediaType,omitempty"`
	ThumbnailURL string    `firestore:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,serverTimestamp"`
}

type summaryDoc struct {
	Participants []string            `firestore:"participants"`
	LastMessage  *domain.LastMessage `firestore:"lastMessage"`
	UpdatedAt    time.Time           `firestore:"updatedAt"`
}

func toMessage(conv domain.Conversation, id string, d messageDoc) domain.Message {
	m := domain.Message{
		ID:             id,
		ConversationID: conv.Key(),
		SenderID:       d.SenderID,
		Text:           d.Text,
		CreatedAt:      d.CreatedAt,
	}
	if d.MediaURL != "" {
		m.Media = &domain.Media{URL: d.MediaURL, Type: d.MediaType, ThumbnailURL: d.ThumbnailURL}
	}
	return m
}

func decodeMessages(conv domain.Conversation, snaps []*firestore.DocumentSnapshot) ([]domain.Message, error) {
	out := make([]domain.Message, 0, len(snaps))
	for _, snap := range snaps {
		var d messageDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode messageDoc %s: %w", snap.Ref.ID, err)
		}
		out = append(out, toMessage(conv, snap.Ref.ID, d))
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageRepository implementation
// ─────────────────────────────────────────

// Insert create the message with a server timestamp
func (s *Store) Insert(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error) {
	d := messageDoc{SenderID: draft.SenderID, Text: draft.Text}
	if draft.Media != nil {
		d.MediaURL = draft.Media.URL
		d.MediaType = draft.Media.Type
		d.ThumbnailURL = draft.Media.ThumbnailURL
	}

	ref := s.messagesCol(conv).NewDoc()
	wr, err := ref.Create(ctx, d)
	if err != nil {
		return domain.Message{}, fmt.Errorf("firestore Insert: %w", err)
	}
	d.CreatedAt = wr.UpdateTime
	return toMessage(conv, ref.ID, d), nil
}

// LatestPage newest limit messages
func (s *Store) LatestPage(ctx context.Context, conv domain.Conversation, limit int) ([]domain.Message, error) {
	snaps, err := s.newestFirst(conv, limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore LatestPage: %w", err)
	}
	return decodeMessages(conv, snaps)
}

// PageAfter limit messages older than cursor
func (s *Store) PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error) {
	snaps, err := s.newestFirst(conv, limit).StartAfter(cursor.CreatedAt, cursor.ID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore PageAfter: %w", err)
	}
	return decodeMessages(conv, snaps)
}

// ─────────────────────────────────────────
// feed.Source implementation
// ─────────────────────────────────────────

// Start listen on the newest page query, every snapshot is pushed as a full page
func (s *Store) Start(ctx context.Context, conv domain.Conversation, limit int, onPush func([]domain.Message), onError func(error)) (feed.Handle, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	it := s.newestFirst(conv, limit).Snapshots(runCtx)
	h := &snapshotHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if runCtx.Err() != nil {
				return
			}
			if err != nil {
				if status.Code(err) != codes.Canceled {
					onError(err)
				}
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				onError(err)
				continue
			}
			msgs, err := decodeMessages(conv, docs)
			if err != nil {
				onError(err)
				continue
			}
			onPush(msgs)
		}
	}()

	logger.Log.Debug("firestore listener started", zap.String("conversation", conv.Key()))
	return h, nil
}

type snapshotHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *snapshotHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
	})
}

// ─────────────────────────────────────────
// SummaryRepository implementation
// ─────────────────────────────────────────

// Upsert merge lastMessage / updatedAt into the support chat document
func (s *Store) Upsert(ctx context.Context, conv domain.Conversation, last *domain.LastMessage, updatedAt time.Time) error {
	_, err := s.conversationDoc(conv).Set(ctx, map[string]interface{}{
		"participants": conv.Participants(),
		"lastMessage":  last,
		"updatedAt":    updatedAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore Upsert summary: %w", err)
	}
	return nil
}

// ListByParticipant support chats of userID, newest first
func (s *Store) ListByParticipant(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	iter := s.client.Collection(domain.NamespaceSupport).
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var out []domain.ConversationSummary
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListByParticipant: %w", err)
		}

		var doc summaryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode summaryDoc: %w", err)
		}
		out = append(out, domain.ConversationSummary{
			ConversationID: snap.Ref.ID,
			Participants:   doc.Participants,
			LastMessage:    doc.LastMessage,
			UpdatedAt:      doc.UpdatedAt,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// ParticipantRepository implementation
// ─────────────────────────────────────────

// FindProject projects/{id}
func (s *Store) FindProject(ctx context.Context, projectID string) (*domain.Project, error) {
	snap, err := s.client.Collection("projects").Doc(projectID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("firestore FindProject: %w", err)
	}

	var p domain.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("firestore FindProject decode: %w", err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// FindUsers users/{id} for every id, missing users skipped
func (s *Store) FindUsers(ctx context.Context, ids []string) ([]domain.Participant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, s.client.Collection("users").Doc(id))
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("firestore FindUsers: %w", err)
	}

	out := make([]domain.Participant, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var p domain.Participant
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
		}
		p.ID = snap.Ref.ID
		out = append(out, p)
	}
	return out, nil
}

var (
	_ repository.MessageRepository     = (*Store)(nil)
	_ repository.SummaryRepository     = (*Store)(nil)
	_ repository.ParticipantRepository = (*Store)(nil)
	_ feed.Source                      = (*Store)(nil)
)
