//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vk_syncer/internal/domain"
	"vk_syncer/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_news.up.sql"),
			filepath.Join(migrationsPath, "002_create_vk_integration.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM vk_imported_posts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM vk_integrations")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM news")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM news_categories")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) sampleIntegration() *domain.Integration {
	return &domain.Integration{
		GroupID:              "examplegroup",
		AccessToken:          "token",
		Mode:                 domain.ModeAuto,
		AutoPublish:          true,
		CheckIntervalMinutes: 10,
		FetchCount:           20,
		HashtagCategoryMap:   map[string]int64{"#результаты": 7},
	}
}

func (s *PostgresIntegrationSuite) TestIntegrationStore_CreateAndGet() {
	store := NewIntegrationStore(s.db)

	id, err := store.Create(s.ctx, s.sampleIntegration())
	s.NoError(err)
	s.Greater(id, int64(0))

	got, err := store.Get(s.ctx)
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal("examplegroup", got.GroupID)
	s.Equal(domain.ModeAuto, got.Mode)
	s.Equal(map[string]int64{"#результаты": 7}, got.HashtagCategoryMap)
	s.Nil(got.LastCheckedAt)
}

func (s *PostgresIntegrationSuite) TestIntegrationStore_GetEmpty() {
	store := NewIntegrationStore(s.db)

	got, err := store.Get(s.ctx)
	s.NoError(err)
	s.Nil(got)
}

func (s *PostgresIntegrationSuite) TestIntegrationStore_ListByMode() {
	store := NewIntegrationStore(s.db)

	auto := s.sampleIntegration()
	_, err := store.Create(s.ctx, auto)
	s.NoError(err)

	off := s.sampleIntegration()
	off.GroupID = "othergroup"
	off.Mode = domain.ModeOff
	_, err = store.Create(s.ctx, off)
	s.NoError(err)

	list, err := store.ListByMode(s.ctx, domain.ModeAuto)
	s.NoError(err)
	s.Require().Len(list, 1)
	s.Equal("examplegroup", list[0].GroupID)
}

func (s *PostgresIntegrationSuite) TestIntegrationStore_Update() {
	store := NewIntegrationStore(s.db)

	id, err := store.Create(s.ctx, s.sampleIntegration())
	s.NoError(err)

	got, err := store.Get(s.ctx)
	s.Require().NoError(err)
	got.Mode = domain.ModeManual
	got.FetchCount = 50
	got.HashtagCategoryMap = nil

	s.NoError(store.Update(s.ctx, got))

	updated, err := store.Get(s.ctx)
	s.NoError(err)
	s.Equal(id, updated.ID)
	s.Equal(domain.ModeManual, updated.Mode)
	s.Equal(50, updated.FetchCount)
	s.Nil(updated.HashtagCategoryMap)
	s.NotNil(updated.UpdatedAt)
}

func (s *PostgresIntegrationSuite) TestIntegrationStore_UpdateLastChecked() {
	store := NewIntegrationStore(s.db)

	id, err := store.Create(s.ctx, s.sampleIntegration())
	s.NoError(err)

	checkedAt := time.Now().Truncate(time.Microsecond)
	s.NoError(store.UpdateLastChecked(s.ctx, id, checkedAt))

	got, err := store.Get(s.ctx)
	s.NoError(err)
	s.Require().NotNil(got.LastCheckedAt)
	s.WithinDuration(checkedAt, *got.LastCheckedAt, time.Second)
}

func (s *PostgresIntegrationSuite) TestNewsStore_InsertAndFlags() {
	store := NewNewsStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	news := &domain.News{
		Title:         "Итоги матча",
		Slug:          "itogi-matcha",
		Excerpt:       utils.Ptr("Итоги матча"),
		Content:       utils.Ptr("Итоги матча<br/>подробности"),
		FeaturedImage: utils.Ptr("https://img/big"),
		Gallery:       []string{"https://img/1", "https://img/2"},
		IsPublished:   true,
		IsFeatured:    true,
		PublishDate:   &now,
		CreatedAt:     now,
	}

	id, err := store.Insert(s.ctx, news)
	s.NoError(err)
	s.Greater(id, int64(0))

	exists, err := store.Exists(s.ctx, id)
	s.NoError(err)
	s.True(exists)

	exists, err = store.SlugExists(s.ctx, "itogi-matcha")
	s.NoError(err)
	s.True(exists)

	exists, err = store.SlugExists(s.ctx, "missing")
	s.NoError(err)
	s.False(exists)

	var gallery string
	err = s.db.GetContext(s.ctx, &gallery, "SELECT gallery FROM news WHERE id = $1", id)
	s.NoError(err)
	s.JSONEq(`["https://img/1","https://img/2"]`, gallery)
}

func (s *PostgresIntegrationSuite) TestNewsStore_ScheduledPublishing() {
	store := NewNewsStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	insert := func(slug string, scheduledAt *time.Time, published bool) int64 {
		id, err := store.Insert(s.ctx, &domain.News{
			Title:              slug,
			Slug:               slug,
			IsPublished:        published,
			ScheduledPublishAt: scheduledAt,
			CreatedAt:          now,
		})
		s.Require().NoError(err)
		return id
	}

	dueID := insert("due", utils.Ptr(now.Add(-time.Hour)), false)
	insert("future", utils.Ptr(now.Add(time.Hour)), false)
	insert("already-published", utils.Ptr(now.Add(-time.Hour)), true)
	insert("unscheduled", nil, false)

	due, err := store.FindDueScheduled(s.ctx, now)
	s.NoError(err)
	s.Require().Len(due, 1)
	s.Equal(dueID, due[0].ID)

	s.NoError(store.MarkPublished(s.ctx, []int64{dueID}, now))

	due, err = store.FindDueScheduled(s.ctx, now)
	s.NoError(err)
	s.Len(due, 0)

	var publishDate time.Time
	err = s.db.GetContext(s.ctx, &publishDate, "SELECT publish_date FROM news WHERE id = $1", dueID)
	s.NoError(err)
	s.WithinDuration(now, publishDate, time.Second)
}

func (s *PostgresIntegrationSuite) TestNewsStore_CategoryExists() {
	store := NewNewsStore(s.db)

	var categoryID int64
	err := s.db.QueryRowxContext(s.ctx,
		`INSERT INTO news_categories (name, slug) VALUES ('Результаты', 'rezultaty') RETURNING id`,
	).Scan(&categoryID)
	s.Require().NoError(err)

	exists, err := store.CategoryExists(s.ctx, categoryID)
	s.NoError(err)
	s.True(exists)

	exists, err = store.CategoryExists(s.ctx, categoryID+1000)
	s.NoError(err)
	s.False(exists)
}

func (s *PostgresIntegrationSuite) TestImportedPostStore_Ledger() {
	integrations := NewIntegrationStore(s.db)
	imported := NewImportedPostStore(s.db)

	integrationID, err := integrations.Create(s.ctx, s.sampleIntegration())
	s.Require().NoError(err)

	postDate := time.Now().Truncate(time.Microsecond)
	id, err := imported.Insert(s.ctx, &domain.ImportedPost{
		VKPostID:      777,
		IntegrationID: integrationID,
		VKPostDate:    &postDate,
	})
	s.NoError(err)
	s.Greater(id, int64(0))

	entry, err := imported.GetBySourcePost(s.ctx, 777, integrationID)
	s.NoError(err)
	s.Require().NotNil(entry)
	s.Equal(id, entry.ID)
	s.Nil(entry.NewsID)

	entry, err = imported.GetBySourcePost(s.ctx, 999, integrationID)
	s.NoError(err)
	s.Nil(entry)

	count, err := imported.CountByIntegration(s.ctx, integrationID)
	s.NoError(err)
	s.Equal(int64(1), count)

	s.NoError(imported.Delete(s.ctx, id))

	count, err = imported.CountByIntegration(s.ctx, integrationID)
	s.NoError(err)
	s.Equal(int64(0), count)
}

func (s *PostgresIntegrationSuite) TestImportedPostStore_DuplicatePairRejected() {
	integrations := NewIntegrationStore(s.db)
	imported := NewImportedPostStore(s.db)

	integrationID, err := integrations.Create(s.ctx, s.sampleIntegration())
	s.Require().NoError(err)

	_, err = imported.Insert(s.ctx, &domain.ImportedPost{VKPostID: 777, IntegrationID: integrationID})
	s.NoError(err)

	_, err = imported.Insert(s.ctx, &domain.ImportedPost{VKPostID: 777, IntegrationID: integrationID})
	s.Error(err)
}

func (s *PostgresIntegrationSuite) TestImportedPostStore_NewsDeletionKeepsEntry() {
	integrations := NewIntegrationStore(s.db)
	imported := NewImportedPostStore(s.db)
	newsStore := NewNewsStore(s.db)

	integrationID, err := integrations.Create(s.ctx, s.sampleIntegration())
	s.Require().NoError(err)

	newsID, err := newsStore.Insert(s.ctx, &domain.News{
		Title: "t", Slug: "t", CreatedAt: time.Now(),
	})
	s.Require().NoError(err)

	_, err = imported.Insert(s.ctx, &domain.ImportedPost{
		VKPostID:      777,
		IntegrationID: integrationID,
		NewsID:        &newsID,
	})
	s.NoError(err)

	// Deleting the article nulls the link; the ledger entry survives so
	// the post is recognized as stale rather than fresh.
	s.NoError(newsStore.Delete(s.ctx, newsID))

	entry, err := imported.GetBySourcePost(s.ctx, 777, integrationID)
	s.NoError(err)
	s.Require().NotNil(entry)
	s.Nil(entry.NewsID)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewIntegrationStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := store.Create(ctx, s.sampleIntegration())
		return err
	})
	s.NoError(err)

	got, err := store.Get(s.ctx)
	s.NoError(err)
	s.NotNil(got)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	store := NewIntegrationStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if _, err := store.Create(ctx, s.sampleIntegration()); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	got, err := store.Get(s.ctx)
	s.NoError(err)
	s.Nil(got)
}
