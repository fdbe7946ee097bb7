package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/source/vk"
)

type IntegrationStore interface {
	Get(ctx context.Context) (*domain.Integration, error)
	ListByMode(ctx context.Context, mode domain.Mode) ([]domain.Integration, error)
	Create(ctx context.Context, integration *domain.Integration) (int64, error)
	Update(ctx context.Context, integration *domain.Integration) error
	UpdateLastChecked(ctx context.Context, id int64, checkedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type ImportedPostStore interface {
	GetBySourcePost(ctx context.Context, vkPostID, integrationID int64) (*domain.ImportedPost, error)
	Insert(ctx context.Context, entry *domain.ImportedPost) (int64, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int) ([]domain.ImportedPost, error)
	ListAll(ctx context.Context) ([]domain.ImportedPost, error)
	CountByIntegration(ctx context.Context, integrationID int64) (int64, error)
}

type NewsStore interface {
	Insert(ctx context.Context, news *domain.News) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Delete(ctx context.Context, id int64) error
	CategoryExists(ctx context.Context, id int64) (bool, error)
	FindDueScheduled(ctx context.Context, now time.Time) ([]domain.News, error)
	MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) error
}

type SourceClient interface {
	FetchPosts(ctx context.Context, groupID, accessToken string, count int) ([]vk.Post, int, error)
	ResolveGroupID(ctx context.Context, groupID, accessToken string) (string, error)
	GroupName(ctx context.Context, groupID, accessToken string) (string, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, news *domain.News, action string) error
	Close() error
}
