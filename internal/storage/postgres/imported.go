package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"vk_syncer/internal/domain"
)

type ImportedPostStore struct {
	db *sqlx.DB
}

func NewImportedPostStore(db *sqlx.DB) *ImportedPostStore {
	return &ImportedPostStore{db: db}
}

// GetBySourcePost returns the ledger entry for (post, integration), or
// nil when none exists. The pair is unique.
func (s *ImportedPostStore) GetBySourcePost(ctx context.Context, vkPostID, integrationID int64) (*domain.ImportedPost, error) {
	var entry domain.ImportedPost
	query := `
		SELECT id, vk_post_id, vk_integration_id, news_id, vk_post_date, imported_at
		FROM vk_imported_posts
		WHERE vk_post_id = $1 AND vk_integration_id = $2`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &entry, query, vkPostID, integrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *ImportedPostStore) Insert(ctx context.Context, entry *domain.ImportedPost) (int64, error) {
	query := `
		INSERT INTO vk_imported_posts (vk_post_id, vk_integration_id, news_id, vk_post_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		entry.VKPostID,
		entry.IntegrationID,
		entry.NewsID,
		entry.VKPostDate,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *ImportedPostStore) Delete(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM vk_imported_posts WHERE id = $1`, id)
	return err
}

// List returns the most recently imported entries.
func (s *ImportedPostStore) List(ctx context.Context, limit int) ([]domain.ImportedPost, error) {
	var entries []domain.ImportedPost
	query := `
		SELECT id, vk_post_id, vk_integration_id, news_id, vk_post_date, imported_at
		FROM vk_imported_posts
		ORDER BY imported_at DESC
		LIMIT $1`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query, limit)
	return entries, err
}

// ListAll returns every ledger entry; used by bulk clear.
func (s *ImportedPostStore) ListAll(ctx context.Context) ([]domain.ImportedPost, error) {
	var entries []domain.ImportedPost
	query := `
		SELECT id, vk_post_id, vk_integration_id, news_id, vk_post_date, imported_at
		FROM vk_imported_posts
		ORDER BY id`

	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query)
	return entries, err
}

func (s *ImportedPostStore) CountByIntegration(ctx context.Context, integrationID int64) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &count,
		`SELECT COUNT(*) FROM vk_imported_posts WHERE vk_integration_id = $1`,
		integrationID,
	)
	return count, err
}
