package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelconnect_service/internal/chat/domain"
	"reelconnect_service/internal/chat/repository"
	"reelconnect_service/pkg"
	"reelconnect_service/pkg/database"
	errprocess "reelconnect_service/pkg/err"
	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// participantCacheTTL group participants cache time
const participantCacheTTL = 5 * time.Minute

// ConversationUseCase participants of group chats and the support inbox
type ConversationUseCase struct {
	participants repository.ParticipantRepository
	summaries    repository.SummaryRepository
	cache        database.RedisRepository[[]domain.Participant]
}

// NewConversationUseCase create ConversationUseCase, cache may be nil
func NewConversationUseCase(
	participants repository.ParticipantRepository,
	summaries repository.SummaryRepository,
	cache database.RedisRepository[[]domain.Participant],
) *ConversationUseCase {
	return &ConversationUseCase{
		participants: participants,
		summaries:    summaries,
		cache:        cache,
	}
}

func participantsKey(projectID string) string {
	return "chat:participants:" + projectID
}

// Participants profiles of the project's joined users, in join order
func (uc *ConversationUseCase) Participants(ctx context.Context, projectID string) ([]domain.Participant, error) {
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, participantsKey(projectID)); err == nil {
			return cached, nil
		} else if !errors.Is(err, database.ErrCacheMiss) {
			logger.Log.Warn("participants cache read failed", zap.String("project", projectID), zap.Error(err))
		}
	}

	project, err := uc.participants.FindProject(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errprocess.Set(fmt.Sprintf("project[%s] not found", projectID))
	}
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("project[%s] 讀取失敗", projectID), err)
	}

	var ids []string
	for _, id := range project.JoinedUsers {
		if id != "" && !pkg.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	users, err := uc.participants.FindUsers(ctx, ids)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("project[%s] 讀取成員失敗", projectID), err)
	}
	byID := make(map[string]domain.Participant, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]domain.Participant, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, participantsKey(projectID), out, participantCacheTTL); err != nil {
			logger.Log.Warn("participants cache write failed", zap.String("project", projectID), zap.Error(err))
		}
	}
	return out, nil
}

// ResolveSender profile of senderID, placeholder profile when unknown
func ResolveSender(participants []domain.Participant, senderID string) domain.Participant {
	for _, p := range participants {
		if p.ID == senderID {
			return p
		}
	}
	return domain.UnknownParticipant(senderID)
}

// Inbox support conversations of userID newest first, filtered by search
func (uc *ConversationUseCase) Inbox(ctx context.Context, userID, search string) ([]domain.InboxEntry, error) {
	summaries, err := uc.summaries.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("member[%s] 讀取 inbox 失敗", userID), err)
	}

	others := make([]string, len(summaries))
	var lookup []string
	for i, s := range summaries {
		conv := domain.Conversation{Kind: domain.ConversationSupport, ID: s.ConversationID}
		other, ok := conv.OtherParticipant(userID)
		if !ok {
			continue
		}
		others[i] = other
		if !pkg.Contains(lookup, other) {
			lookup = append(lookup, other)
		}
	}

	users, err := uc.participants.FindUsers(ctx, lookup)
	if err != nil {
		return nil, errprocess.Wrap(fmt.Sprintf("member[%s] 讀取 inbox 使用者失敗", userID), err)
	}
	byID := make(map[string]domain.Participant, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	entries := make([]domain.InboxEntry, 0, len(summaries))
	for i, s := range summaries {
		// 找不到對方資料的對話不顯示
		u, ok := byID[others[i]]
		if !ok {
			continue
		}
		entry := domain.InboxEntry{
			ConversationID: s.ConversationID,
			UserID:         u.ID,
			Name:           u.FullName,
			Image:          u.ProfilePhoto,
			LastText:       s.Preview(),
			UpdatedAt:      s.UpdatedAt,
		}
		if entry.Matches(search) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
