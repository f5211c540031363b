package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelconnect_service/internal/chat/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound document not found
var ErrNotFound = errors.New("not found")

// MessageRepository definition conversation messages
type MessageRepository interface {
	// Insert 寫入一則訊息, 由 store 指定 id 與建立時間
	Insert(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error)
	// LatestPage newest limit messages, newest first
	LatestPage(ctx context.Context, conv domain.Conversation, limit int) ([]domain.Message, error)
	// PageAfter limit messages strictly older than cursor, newest first
	PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error)
}

// MongoMessageRepository messages in one collection keyed by conversation
type MongoMessageRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoChatMessageRepository create a MessageRepository on collection chat_messages
func NewMongoChatMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{
		coll: db.Collection("chat_messages"),
		now:  time.Now,
	}
}

// EnsureIndexes conversation + created_at desc index used by both page queries
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		},
	})
	return err
}

func (r *MongoMessageRepository) Insert(ctx context.Context, conv domain.Conversation, draft domain.MessageDraft) (domain.Message, error) {
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.Key(),
		SenderID:       draft.SenderID,
		Text:           draft.Text,
		Media:          draft.Media,
		// mongo 只保存到毫秒
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (r *MongoMessageRepository) LatestPage(ctx context.Context, conv domain.Conversation, limit int) ([]domain.Message, error) {
	return r.find(ctx, bson.M{"conversation_id": conv.Key()}, limit)
}

func (r *MongoMessageRepository) PageAfter(ctx context.Context, conv domain.Conversation, cursor domain.Message, limit int) ([]domain.Message, error) {
	at := cursor.CreatedAt.UTC().Truncate(time.Millisecond)
	filter := bson.M{
		"conversation_id": conv.Key(),
		// 同一毫秒的訊息以 _id 排序接續
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": at}},
			bson.M{"created_at": at, "_id": bson.M{"$lt": cursor.ID}},
		},
	}
	return r.find(ctx, filter, limit)
}

func (r *MongoMessageRepository) find(ctx context.Context, filter bson.M, limit int) ([]domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	msgs := make([]domain.Message, 0, limit)
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
