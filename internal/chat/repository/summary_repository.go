package repository

import (
	"context"
	"time"

	"reelconnect_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SummaryRepository definition support chat summaries
type SummaryRepository interface {
	Upsert(ctx context.Context, conv domain.Conversation, last *domain.LastMessage, updatedAt time.Time) error
	ListByParticipant(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
}

type summaryRepository struct {
	coll *mongo.Collection
}

// NewMongoSummaryRepository create SummaryRepository on collection chat_summaries
func NewMongoSummaryRepository(db *mongo.Database) SummaryRepository {
	return &summaryRepository{coll: db.Collection("chat_summaries")}
}

// Upsert 更新 last_message 與 updated_at, 第一次寫入時建立文件
func (r *summaryRepository) Upsert(ctx context.Context, conv domain.Conversation, last *domain.LastMessage, updatedAt time.Time) error {
	filter := bson.M{"_id": conv.ID}
	update := bson.M{
		"$set": bson.M{
			"last_message": last,
			"updated_at":   updatedAt.UTC().Truncate(time.Millisecond),
		},
		"$setOnInsert": bson.M{"participants": conv.Participants()},
	}
	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListByParticipant summaries the user takes part in, newest first
func (r *summaryRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.ConversationSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
