package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"vk_syncer/internal/domain"
)

type IntegrationStore struct {
	db *sqlx.DB
}

func NewIntegrationStore(db *sqlx.DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

// integrationRow is the persisted shape; the hashtag map is JSON text
// and only crosses into map form at this boundary.
type integrationRow struct {
	ID                   int64      `db:"id"`
	GroupID              string     `db:"group_id"`
	AccessToken          string     `db:"access_token"`
	Mode                 string     `db:"mode"`
	DefaultCategoryID    *int64     `db:"default_category_id"`
	AutoPublish          bool       `db:"auto_publish"`
	CheckIntervalMinutes int        `db:"check_interval_minutes"`
	FetchCount           int        `db:"fetch_count"`
	HashtagCategoryMap   *string    `db:"hashtag_category_map"`
	LastCheckedAt        *time.Time `db:"last_checked_at"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            *time.Time `db:"updated_at"`
}

func (r integrationRow) toDomain() (*domain.Integration, error) {
	integration := &domain.Integration{
		ID:                   r.ID,
		GroupID:              r.GroupID,
		AccessToken:          r.AccessToken,
		Mode:                 domain.Mode(r.Mode),
		DefaultCategoryID:    r.DefaultCategoryID,
		AutoPublish:          r.AutoPublish,
		CheckIntervalMinutes: r.CheckIntervalMinutes,
		FetchCount:           r.FetchCount,
		LastCheckedAt:        r.LastCheckedAt,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.HashtagCategoryMap != nil && *r.HashtagCategoryMap != "" {
		if err := json.Unmarshal([]byte(*r.HashtagCategoryMap), &integration.HashtagCategoryMap); err != nil {
			return nil, fmt.Errorf("parse hashtag map: %w", err)
		}
	}
	return integration, nil
}

func marshalHashtagMap(m map[string]int64) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("serialize hashtag map: %w", err)
	}
	s := string(data)
	return &s, nil
}

const integrationColumns = `
	id, group_id, access_token, mode, default_category_id, auto_publish,
	check_interval_minutes, fetch_count, hashtag_category_map,
	last_checked_at, created_at, updated_at`

// Get returns the configured integration, or nil when none exists.
// The deployment carries at most one row; the oldest wins if that ever
// stops holding.
func (s *IntegrationStore) Get(ctx context.Context) (*domain.Integration, error) {
	var row integrationRow
	query := `SELECT ` + integrationColumns + ` FROM vk_integrations ORDER BY id LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListByMode returns every integration in the given mode.
func (s *IntegrationStore) ListByMode(ctx context.Context, mode domain.Mode) ([]domain.Integration, error) {
	var rows []integrationRow
	query := `SELECT ` + integrationColumns + ` FROM vk_integrations WHERE mode = $1 ORDER BY id`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, string(mode)); err != nil {
		return nil, err
	}

	integrations := make([]domain.Integration, 0, len(rows))
	for _, r := range rows {
		integration, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}
	return integrations, nil
}

func (s *IntegrationStore) Create(ctx context.Context, integration *domain.Integration) (int64, error) {
	hashtagJSON, err := marshalHashtagMap(integration.HashtagCategoryMap)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO vk_integrations (
			group_id, access_token, mode, default_category_id, auto_publish,
			check_interval_minutes, fetch_count, hashtag_category_map
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id int64
	err = GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		integration.GroupID,
		integration.AccessToken,
		string(integration.Mode),
		integration.DefaultCategoryID,
		integration.AutoPublish,
		integration.CheckIntervalMinutes,
		integration.FetchCount,
		hashtagJSON,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *IntegrationStore) Update(ctx context.Context, integration *domain.Integration) error {
	hashtagJSON, err := marshalHashtagMap(integration.HashtagCategoryMap)
	if err != nil {
		return err
	}

	query := `
		UPDATE vk_integrations SET
			group_id = $2,
			access_token = $3,
			mode = $4,
			default_category_id = $5,
			auto_publish = $6,
			check_interval_minutes = $7,
			fetch_count = $8,
			hashtag_category_map = $9,
			updated_at = NOW()
		WHERE id = $1`

	_, err = GetExecutor(ctx, s.db).ExecContext(ctx, query,
		integration.ID,
		integration.GroupID,
		integration.AccessToken,
		string(integration.Mode),
		integration.DefaultCategoryID,
		integration.AutoPublish,
		integration.CheckIntervalMinutes,
		integration.FetchCount,
		hashtagJSON,
	)
	return err
}

// UpdateLastChecked advances the poll checkpoint.
func (s *IntegrationStore) UpdateLastChecked(ctx context.Context, id int64, checkedAt time.Time) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE vk_integrations SET last_checked_at = $2 WHERE id = $1`,
		id, checkedAt,
	)
	return err
}

func (s *IntegrationStore) Delete(ctx context.Context, id int64) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM vk_integrations WHERE id = $1`, id)
	return err
}
