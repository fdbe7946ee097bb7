package service

import (
	"context"
	"fmt"

	"vk_syncer/internal/domain"
)

// IntegrationInfo is the admin-facing view of the configuration. The
// credential itself is never exposed, only whether one is set.
type IntegrationInfo struct {
	Integration   domain.Integration
	ImportedCount int64
	HasToken      bool
}

// IntegrationPatch carries a partial update; nil fields stay unchanged.
type IntegrationPatch struct {
	GroupID              *string
	AccessToken          *string
	Mode                 *domain.Mode
	DefaultCategoryID    *int64
	AutoPublish          *bool
	CheckIntervalMinutes *int
	FetchCount           *int
	HashtagCategoryMap   map[string]int64
}

// Integration returns the current configuration, or nil when none is
// set up yet.
func (s *ImportService) Integration(ctx context.Context) (*IntegrationInfo, error) {
	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, nil
	}
	return s.buildInfo(ctx, integration)
}

// CreateIntegration replaces any existing configuration with the given
// one; the deployment keeps a single row.
func (s *ImportService) CreateIntegration(ctx context.Context, integration *domain.Integration) (*IntegrationInfo, error) {
	if !integration.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	integration.FetchCount = clampFetchCount(integration.FetchCount)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		old, err := s.integrations.Get(txCtx)
		if err != nil {
			return err
		}
		if old != nil {
			if err := s.integrations.Delete(txCtx, old.ID); err != nil {
				return fmt.Errorf("delete previous integration: %w", err)
			}
		}

		id, err := s.integrations.Create(txCtx, integration)
		if err != nil {
			return fmt.Errorf("create integration: %w", err)
		}
		integration.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &IntegrationInfo{
		Integration: *integration,
		HasToken:    integration.AccessToken != "",
	}, nil
}

// UpdateIntegration applies a partial update to the configured
// integration.
func (s *ImportService) UpdateIntegration(ctx context.Context, patch IntegrationPatch) (*IntegrationInfo, error) {
	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, ErrNotConfigured
	}

	if patch.GroupID != nil {
		integration.GroupID = *patch.GroupID
	}
	if patch.AccessToken != nil {
		integration.AccessToken = *patch.AccessToken
	}
	if patch.Mode != nil {
		if !patch.Mode.Valid() {
			return nil, ErrInvalidMode
		}
		integration.Mode = *patch.Mode
	}
	if patch.DefaultCategoryID != nil {
		integration.DefaultCategoryID = patch.DefaultCategoryID
	}
	if patch.AutoPublish != nil {
		integration.AutoPublish = *patch.AutoPublish
	}
	if patch.CheckIntervalMinutes != nil {
		integration.CheckIntervalMinutes = *patch.CheckIntervalMinutes
	}
	if patch.FetchCount != nil {
		integration.FetchCount = clampFetchCount(*patch.FetchCount)
	}
	if patch.HashtagCategoryMap != nil {
		integration.HashtagCategoryMap = patch.HashtagCategoryMap
	}

	if err := s.integrations.Update(ctx, integration); err != nil {
		return nil, err
	}

	return s.buildInfo(ctx, integration)
}

// SetMode switches the integration between off, auto and manual.
func (s *ImportService) SetMode(ctx context.Context, mode domain.Mode) (*IntegrationInfo, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, ErrNotConfigured
	}

	integration.Mode = mode
	if err := s.integrations.Update(ctx, integration); err != nil {
		return nil, err
	}

	return s.buildInfo(ctx, integration)
}

// ListImported returns the most recently imported ledger entries.
func (s *ImportService) ListImported(ctx context.Context, limit int) ([]domain.ImportedPost, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.imported.List(ctx, limit)
}

// ClearImported deletes every ledger entry together with the articles
// they produced, atomically. Returns the deleted article and ledger
// counts.
func (s *ImportService) ClearImported(ctx context.Context) (deletedNews, deletedEntries int, err error) {
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := s.imported.ListAll(txCtx)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.NewsID != nil {
				exists, err := s.news.Exists(txCtx, *entry.NewsID)
				if err != nil {
					return err
				}
				if exists {
					if err := s.news.Delete(txCtx, *entry.NewsID); err != nil {
						return err
					}
					deletedNews++
				}
			}
			if err := s.imported.Delete(txCtx, entry.ID); err != nil {
				return err
			}
			deletedEntries++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.logger.Info("cleared imported posts",
		"deleted_news", deletedNews,
		"deleted_entries", deletedEntries,
	)
	return deletedNews, deletedEntries, nil
}

// DeleteIntegration removes the configuration. Ledger rows go with it
// (cascade); imported articles stay.
func (s *ImportService) DeleteIntegration(ctx context.Context) error {
	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return err
	}
	if integration == nil {
		return ErrNotConfigured
	}
	return s.integrations.Delete(ctx, integration.ID)
}

func (s *ImportService) buildInfo(ctx context.Context, integration *domain.Integration) (*IntegrationInfo, error) {
	count, err := s.imported.CountByIntegration(ctx, integration.ID)
	if err != nil {
		return nil, err
	}
	return &IntegrationInfo{
		Integration:   *integration,
		ImportedCount: count,
		HasToken:      integration.AccessToken != "",
	}, nil
}

func clampFetchCount(c int) int {
	if c == 0 {
		return domain.DefaultFetchCount
	}
	if c < domain.MinFetchCount {
		return domain.MinFetchCount
	}
	if c > domain.MaxFetchCount {
		return domain.MaxFetchCount
	}
	return c
}
