package feed

import (
	"context"
	"fmt"

	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// LoadOlder fetch the page older than the cursor and append it.
// No-op without a cursor, when nothing more is left, or while another load is running.
func (f *Feed) LoadOlder(ctx context.Context) error {
	f.mu.Lock()
	s := f.sess
	if s == nil {
		f.mu.Unlock()
		return ErrNotAttached
	}
	if !s.hasMore || s.cursor == nil || s.loading {
		f.mu.Unlock()
		return nil
	}
	s.loading = true
	cursor := *s.cursor
	conv := s.conv
	f.mu.Unlock()

	page, err := f.deps.Pager.PageAfter(ctx, conv, cursor, f.cfg.PageSize)

	defer f.flush()
	f.mu.Lock()
	defer f.mu.Unlock()
	s.loading = false

	if f.sess != s || s.detached {
		return nil
	}
	if err != nil {
		logger.Log.Error(ErrFetch.Error(), zap.String("conversation", conv.Key()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}
	// 等待期間有 push 換掉了 cursor, 這頁已經不是接在目前清單後面
	if s.cursor == nil || s.cursor.ID != cursor.ID {
		return nil
	}

	if len(page) == 0 {
		s.hasMore = false
		f.queueWindow(s, false)
		return nil
	}

	seen := make(map[string]struct{}, len(s.messages))
	for _, m := range s.messages {
		seen[m.ID] = struct{}{}
	}
	for _, m := range page {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
	}

	last := page[len(page)-1]
	s.cursor = &last
	s.hasMore = len(page) >= f.cfg.PageSize
	f.queueWindow(s, false)
	return nil
}
