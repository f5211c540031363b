package repository

import (
	"context"
	"errors"

	"reelconnect_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ParticipantRepository definition read-only profile lookups
type ParticipantRepository interface {
	FindProject(ctx context.Context, projectID string) (*domain.Project, error)
	FindUsers(ctx context.Context, ids []string) ([]domain.Participant, error)
}

type participantRepository struct {
	projects *mongo.Collection
	users    *mongo.Collection
}

// NewMongoParticipantRepository create ParticipantRepository on projects / users
func NewMongoParticipantRepository(db *mongo.Database) ParticipantRepository {
	return &participantRepository{
		projects: db.Collection("projects"),
		users:    db.Collection("users"),
	}
}

func (r *participantRepository) FindProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var p domain.Project
	err := r.projects.FindOne(ctx, bson.M{"_id": projectID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindUsers profiles of ids, missing users are skipped
func (r *participantRepository) FindUsers(ctx context.Context, ids []string) ([]domain.Participant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
