package outbox

import (
	"context"
	"errors"
	"fmt"
)

type replayStore interface {
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	ResetForReplay(ctx context.Context, eventID int64) error
}

// ReplayService 将 failed 事件重置为 pending，由 Dispatcher 重新发布
type ReplayService struct {
	store replayStore
}

func NewReplayService(repo *Repository) *ReplayService {
	return &ReplayService{store: repo}
}

func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	return s.store.ResetForReplay(ctx, eventID)
}

// ReplayFailedEvents 重放最多 limit 个失败事件，返回成功重置的数量。
// 只有一个都没能重置时才返回错误
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.store.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	var errs []error
	replayed := 0
	for _, event := range events {
		if err := s.store.ResetForReplay(ctx, event.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		replayed++
	}
	if replayed == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return replayed, nil
}
