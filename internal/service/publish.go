package service

import (
	"context"
	"log/slog"

	"vk_syncer/internal/domain"
)

// PublishService is the scheduled-publish engine: any unpublished
// article with a scheduled time in the past gets flipped to published.
// The transition is monotonic; this engine never unpublishes.
type PublishService struct {
	news      NewsStore
	txManager TransactionManager
	publisher EventPublisher // nil disables event publishing
	logger    *slog.Logger
}

func NewPublishService(news NewsStore, txManager TransactionManager, publisher EventPublisher, logger *slog.Logger) *PublishService {
	return &PublishService{
		news:      news,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "publish"),
	}
}

// PublishDue marks every due article published with publish time = now
// and commits the batch as one unit. Returns how many were published.
func (s *PublishService) PublishDue(ctx context.Context) (int, error) {
	now := domain.NowMSK()

	due, err := s.news.FindDueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]int64, len(due))
	for i, news := range due {
		ids[i] = news.ID
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.news.MarkPublished(txCtx, ids, now)
	})
	if err != nil {
		return 0, err
	}

	for i := range due {
		due[i].IsPublished = true
		due[i].PublishDate = &now

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, &due[i], "published"); err != nil {
				s.logger.Warn("publish event failed", "news_id", due[i].ID, "error", err)
			}
		}
	}

	s.logger.Info("published scheduled news", "count", len(due))
	return len(due), nil
}
