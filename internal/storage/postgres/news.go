package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vk_syncer/internal/domain"
)

type NewsStore struct {
	db *sqlx.DB
}

func NewNewsStore(db *sqlx.DB) *NewsStore {
	return &NewsStore{db: db}
}

type newsRow struct {
	ID                 int64      `db:"id"`
	Title              string     `db:"title"`
	Slug               string     `db:"slug"`
	Excerpt            *string    `db:"excerpt"`
	Content            *string    `db:"content"`
	FeaturedImage      *string    `db:"featured_image"`
	Gallery            *string    `db:"gallery"`
	VideoURL           *string    `db:"video_url"`
	CategoryID         *int64     `db:"category_id"`
	IsPublished        bool       `db:"is_published"`
	IsFeatured         bool       `db:"is_featured"`
	PublishDate        *time.Time `db:"publish_date"`
	ScheduledPublishAt *time.Time `db:"scheduled_publish_at"`
	CreatedAt          time.Time  `db:"created_at"`
}

func (r newsRow) toDomain() (*domain.News, error) {
	news := &domain.News{
		ID:                 r.ID,
		Title:              r.Title,
		Slug:               r.Slug,
		Excerpt:            r.Excerpt,
		Content:            r.Content,
		FeaturedImage:      r.FeaturedImage,
		VideoURL:           r.VideoURL,
		CategoryID:         r.CategoryID,
		IsPublished:        r.IsPublished,
		IsFeatured:         r.IsFeatured,
		PublishDate:        r.PublishDate,
		ScheduledPublishAt: r.ScheduledPublishAt,
		CreatedAt:          r.CreatedAt,
	}
	if r.Gallery != nil && *r.Gallery != "" {
		if err := json.Unmarshal([]byte(*r.Gallery), &news.Gallery); err != nil {
			return nil, fmt.Errorf("parse gallery: %w", err)
		}
	}
	return news, nil
}

// Gallery is persisted as an ordered JSON list, null when empty.
func marshalGallery(gallery []string) (*string, error) {
	if len(gallery) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(gallery)
	if err != nil {
		return nil, fmt.Errorf("serialize gallery: %w", err)
	}
	s := string(data)
	return &s, nil
}

func (s *NewsStore) Insert(ctx context.Context, news *domain.News) (int64, error) {
	galleryJSON, err := marshalGallery(news.Gallery)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO news (
			title, slug, excerpt, content, featured_image, gallery, video_url,
			category_id, is_published, is_featured, publish_date,
			scheduled_publish_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var id int64
	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		news.Title,
		news.Slug,
		news.Excerpt,
		news.Content,
		news.FeaturedImage,
		galleryJSON,
		news.VideoURL,
		news.CategoryID,
		news.IsPublished,
		news.IsFeatured,
		news.PublishDate,
		news.ScheduledPublishAt,
		news.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *NewsStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM news WHERE id = $1)`, id)
	return exists, err
}

func (s *NewsStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM news WHERE slug = $1)`, slug)
	return exists, err
}

func (s *NewsStore) Delete(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM news WHERE id = $1`, id)
	return err
}

func (s *NewsStore) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM news_categories WHERE id = $1)`, id)
	return exists, err
}

// FindDueScheduled returns unpublished articles whose scheduled publish
// time is at or before now.
func (s *NewsStore) FindDueScheduled(ctx context.Context, now time.Time) ([]domain.News, error) {
	var rows []newsRow
	query := `
		SELECT id, title, slug, excerpt, content, featured_image, gallery,
		       video_url, category_id, is_published, is_featured,
		       publish_date, scheduled_publish_at, created_at
		FROM news
		WHERE is_published = FALSE
		  AND scheduled_publish_at IS NOT NULL
		  AND scheduled_publish_at <= $1
		ORDER BY scheduled_publish_at`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, now); err != nil {
		return nil, err
	}

	due := make([]domain.News, 0, len(rows))
	for _, r := range rows {
		news, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		due = append(due, *news)
	}
	return due, nil
}

// MarkPublished flips the publish flag for the given articles. The
// transition is monotonic: rows already published are left alone.
func (s *NewsStore) MarkPublished(ctx context.Context, ids []int64, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE news SET is_published = TRUE, publish_date = $2
		 WHERE id = ANY($1) AND is_published = FALSE`,
		pq.Array(ids), publishedAt,
	)
	return err
}
