package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/source/vk"
	"vk_syncer/internal/transform"
)

// ImportService drives the ingestion engine: it sequences source
// fetches, transformation, category and slug resolution, the dedup
// ledger and the transactional commit of each integration's batch.
type ImportService struct {
	source       SourceClient
	integrations IntegrationStore
	imported     ImportedPostStore
	news         NewsStore
	txManager    TransactionManager
	publisher    EventPublisher // nil disables event publishing
	logger       *slog.Logger
}

func NewImportService(
	source SourceClient,
	integrations IntegrationStore,
	imported ImportedPostStore,
	news NewsStore,
	txManager TransactionManager,
	publisher EventPublisher,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		source:       source,
		integrations: integrations,
		imported:     imported,
		news:         news,
		txManager:    txManager,
		publisher:    publisher,
		logger:       logger.With("component", "import"),
	}
}

// SyncAuto is one ingestion tick: every integration in auto mode whose
// poll interval has elapsed gets one fetch-and-import pass. Failures
// are isolated per integration and only logged; the loop is silent to
// end users.
func (s *ImportService) SyncAuto(ctx context.Context) error {
	integrations, err := s.integrations.ListByMode(ctx, domain.ModeAuto)
	if err != nil {
		return fmt.Errorf("list integrations: %w", err)
	}

	for i := range integrations {
		integration := &integrations[i]
		now := domain.NowMSK()

		if !s.intervalElapsed(integration, now) {
			continue
		}

		stats, err := s.runIntegration(ctx, integration, now)
		if err != nil {
			s.logger.Error("integration sync failed",
				"integration_id", integration.ID,
				"group", integration.GroupID,
				"error", err,
			)
			continue
		}

		if stats.Imported > 0 {
			s.logger.Info("imported posts",
				"integration_id", integration.ID,
				"group", integration.GroupID,
				"imported", stats.Imported,
				"checked", stats.Checked,
				"duration", stats.Duration,
			)
		}
	}

	return nil
}

// FetchNow is the synchronous manual trigger. Unlike the loop it does
// no interval throttling and surfaces every failure to the caller.
// Mode "off" is rejected outright.
func (s *ImportService) FetchNow(ctx context.Context) (*domain.ImportStats, error) {
	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, ErrNotConfigured
	}
	if integration.Mode == domain.ModeOff {
		return nil, ErrIntegrationOff
	}

	return s.runIntegration(ctx, integration, domain.NowMSK())
}

// TestConnection performs a single-post fetch plus a name lookup with
// the stored credentials. Remote refusals come back in the result, not
// as errors.
func (s *ImportService) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	integration, err := s.integrations.Get(ctx)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return &domain.TestResult{Success: false, Error: ErrNotConfigured.Error()}, nil
	}

	_, total, err := s.source.FetchPosts(ctx, integration.GroupID, integration.AccessToken, 1)
	if err != nil {
		var apiErr *vk.APIError
		if errors.As(err, &apiErr) {
			return &domain.TestResult{Success: false, Error: apiErr.Message}, nil
		}
		return &domain.TestResult{Success: false, Error: err.Error()}, nil
	}

	groupName := integration.GroupID
	if numericID, err := s.source.ResolveGroupID(ctx, integration.GroupID, integration.AccessToken); err == nil {
		if name, err := s.source.GroupName(ctx, numericID, integration.AccessToken); err == nil && name != "" {
			groupName = name
		}
	}

	return &domain.TestResult{
		Success:    true,
		GroupName:  groupName,
		PostsCount: total,
	}, nil
}

func (s *ImportService) intervalElapsed(integration *domain.Integration, now time.Time) bool {
	if integration.LastCheckedAt == nil {
		return true
	}
	interval := time.Duration(integration.CheckIntervalMinutes) * time.Minute
	return now.Sub(*integration.LastCheckedAt) >= interval
}

// runIntegration fetches one batch and imports it. A fetch failure
// (transport or API envelope) aborts before any write, leaving the
// checkpoint untouched so the next eligible tick retries. On success
// all imports and the checkpoint advance commit as one transaction;
// any store error rolls the whole batch back.
func (s *ImportService) runIntegration(ctx context.Context, integration *domain.Integration, now time.Time) (*domain.ImportStats, error) {
	start := time.Now()

	posts, _, err := s.source.FetchPosts(ctx,
		integration.GroupID,
		integration.AccessToken,
		integration.ClampedFetchCount(),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	stats := &domain.ImportStats{
		IntegrationID: integration.ID,
		GroupID:       integration.GroupID,
		Checked:       len(posts),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, post := range posts {
			imported, err := s.importPost(txCtx, post, integration)
			if err != nil {
				return fmt.Errorf("import post %d: %w", post.ID, err)
			}
			if imported {
				stats.Imported++
			} else {
				stats.Skipped++
			}
		}

		return s.integrations.UpdateLastChecked(txCtx, integration.ID, now)
	})
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// importPost is the idempotent per-post import. It returns false for
// every skip reason (ad marker, empty text, already imported) and
// errors only on store failures, which abort the caller's batch.
func (s *ImportService) importPost(ctx context.Context, post vk.Post, integration *domain.Integration) (bool, error) {
	if post.IsAd() || post.Text == "" {
		return false, nil
	}

	entry, err := s.imported.GetBySourcePost(ctx, post.ID, integration.ID)
	if err != nil {
		return false, err
	}
	if entry != nil {
		if entry.NewsID != nil {
			exists, err := s.news.Exists(ctx, *entry.NewsID)
			if err != nil {
				return false, err
			}
			if exists {
				return false, nil
			}
		}
		// Stale ledger row: the linked article is gone (or was never
		// set). Purge it and reimport within the same transaction.
		if err := s.imported.Delete(ctx, entry.ID); err != nil {
			return false, err
		}
	}

	draft, ok := transform.BuildDraft(post)
	if !ok {
		return false, nil
	}

	categoryID, err := s.resolveCategory(ctx, post.Text, integration)
	if err != nil {
		return false, err
	}

	newsSlug, err := s.uniqueSlug(ctx, slugBase(draft.Title, post.ID))
	if err != nil {
		return false, err
	}

	news := &domain.News{
		Title:         draft.Title,
		Slug:          newsSlug,
		Excerpt:       &draft.Excerpt,
		Content:       &draft.Content,
		FeaturedImage: draft.FeaturedImage,
		Gallery:       draft.Gallery,
		VideoURL:      draft.VideoURL,
		CategoryID:    categoryID,
		IsPublished:   integration.AutoPublish,
		IsFeatured:    integration.AutoPublish,
		CreatedAt:     draft.PostDate,
	}
	if integration.AutoPublish {
		news.PublishDate = &draft.PostDate
	}

	newsID, err := s.news.Insert(ctx, news)
	if err != nil {
		return false, err
	}
	news.ID = newsID

	_, err = s.imported.Insert(ctx, &domain.ImportedPost{
		VKPostID:      post.ID,
		IntegrationID: integration.ID,
		NewsID:        &newsID,
		VKPostDate:    &draft.PostDate,
	})
	if err != nil {
		return false, err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, news, "imported"); err != nil {
			s.logger.Warn("publish event failed", "news_id", newsID, "error", err)
		}
	}

	return true, nil
}

// resolveCategory maps the post's hashtags onto the integration's
// hashtag map, case-insensitively and ignoring a leading '#' on map
// keys, keeping only matches that still point at an existing category.
// No match means the integration default, which may be nil.
func (s *ImportService) resolveCategory(ctx context.Context, text string, integration *domain.Integration) (*int64, error) {
	if len(integration.HashtagCategoryMap) > 0 {
		for _, tag := range transform.ExtractHashtags(text) {
			tagLower := strings.ToLower(tag)
			for mapTag, categoryID := range integration.HashtagCategoryMap {
				if strings.ToLower(strings.TrimPrefix(mapTag, "#")) != tagLower {
					continue
				}
				exists, err := s.news.CategoryExists(ctx, categoryID)
				if err != nil {
					return nil, err
				}
				if exists {
					id := categoryID
					return &id, nil
				}
			}
		}
	}
	return integration.DefaultCategoryID, nil
}

// uniqueSlug probes the news table for base, base-1, base-2, ... until
// a free slug is found. Batches are processed sequentially, so there is
// no race within one tick.
func (s *ImportService) uniqueSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		exists, err := s.news.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}

func slugBase(title string, postID int64) string {
	if s := slug.Make(title); s != "" {
		return s
	}
	return fmt.Sprintf("vk-post-%d", postID)
}
