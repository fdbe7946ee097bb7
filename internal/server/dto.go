package server

import (
	"time"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/service"
)

type createIntegrationRequest struct {
	GroupID              string           `json:"group_id" binding:"required"`
	AccessToken          string           `json:"access_token" binding:"required"`
	Mode                 string           `json:"mode"`
	DefaultCategoryID    *int64           `json:"default_category_id"`
	AutoPublish          *bool            `json:"auto_publish"`
	CheckIntervalMinutes *int             `json:"check_interval_minutes"`
	FetchCount           *int             `json:"fetch_count"`
	HashtagCategoryMap   map[string]int64 `json:"hashtag_category_map"`
}

func (r createIntegrationRequest) toDomain() *domain.Integration {
	integration := &domain.Integration{
		GroupID:              r.GroupID,
		AccessToken:          r.AccessToken,
		Mode:                 domain.ModeOff,
		DefaultCategoryID:    r.DefaultCategoryID,
		AutoPublish:          true,
		CheckIntervalMinutes: 10,
		FetchCount:           domain.DefaultFetchCount,
		HashtagCategoryMap:   r.HashtagCategoryMap,
	}
	if r.Mode != "" {
		integration.Mode = domain.Mode(r.Mode)
	}
	if r.AutoPublish != nil {
		integration.AutoPublish = *r.AutoPublish
	}
	if r.CheckIntervalMinutes != nil {
		integration.CheckIntervalMinutes = *r.CheckIntervalMinutes
	}
	if r.FetchCount != nil {
		integration.FetchCount = *r.FetchCount
	}
	return integration
}

type updateIntegrationRequest struct {
	GroupID              *string          `json:"group_id"`
	AccessToken          *string          `json:"access_token"`
	Mode                 *string          `json:"mode"`
	DefaultCategoryID    *int64           `json:"default_category_id"`
	AutoPublish          *bool            `json:"auto_publish"`
	CheckIntervalMinutes *int             `json:"check_interval_minutes"`
	FetchCount           *int             `json:"fetch_count"`
	HashtagCategoryMap   map[string]int64 `json:"hashtag_category_map"`
}

func (r updateIntegrationRequest) toPatch() service.IntegrationPatch {
	patch := service.IntegrationPatch{
		GroupID:              r.GroupID,
		AccessToken:          r.AccessToken,
		DefaultCategoryID:    r.DefaultCategoryID,
		AutoPublish:          r.AutoPublish,
		CheckIntervalMinutes: r.CheckIntervalMinutes,
		FetchCount:           r.FetchCount,
		HashtagCategoryMap:   r.HashtagCategoryMap,
	}
	if r.Mode != nil {
		mode := domain.Mode(*r.Mode)
		patch.Mode = &mode
	}
	return patch
}

type integrationResponse struct {
	ID                   int64            `json:"id"`
	GroupID              string           `json:"group_id"`
	Mode                 string           `json:"mode"`
	DefaultCategoryID    *int64           `json:"default_category_id"`
	AutoPublish          bool             `json:"auto_publish"`
	CheckIntervalMinutes int              `json:"check_interval_minutes"`
	FetchCount           int              `json:"fetch_count"`
	HashtagCategoryMap   map[string]int64 `json:"hashtag_category_map,omitempty"`
	LastCheckedAt        *time.Time       `json:"last_checked_at"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at"`
	ImportedCount        int64            `json:"imported_count"`
	HasToken             bool             `json:"has_token"`
}

func toIntegrationResponse(info *service.IntegrationInfo) integrationResponse {
	i := info.Integration
	return integrationResponse{
		ID:                   i.ID,
		GroupID:              i.GroupID,
		Mode:                 string(i.Mode),
		DefaultCategoryID:    i.DefaultCategoryID,
		AutoPublish:          i.AutoPublish,
		CheckIntervalMinutes: i.CheckIntervalMinutes,
		FetchCount:           i.FetchCount,
		HashtagCategoryMap:   i.HashtagCategoryMap,
		LastCheckedAt:        i.LastCheckedAt,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
		ImportedCount:        info.ImportedCount,
		HasToken:             info.HasToken,
	}
}

type importedPostResponse struct {
	ID         int64      `json:"id"`
	VKPostID   int64      `json:"vk_post_id"`
	NewsID     *int64     `json:"news_id"`
	VKPostDate *time.Time `json:"vk_post_date"`
	ImportedAt time.Time  `json:"imported_at"`
}

func toImportedPostResponses(entries []domain.ImportedPost) []importedPostResponse {
	out := make([]importedPostResponse, len(entries))
	for i, e := range entries {
		out[i] = importedPostResponse{
			ID:         e.ID,
			VKPostID:   e.VKPostID,
			NewsID:     e.NewsID,
			VKPostDate: e.VKPostDate,
			ImportedAt: e.ImportedAt,
		}
	}
	return out
}

type testResultResponse struct {
	Success    bool   `json:"success"`
	GroupName  string `json:"group_name,omitempty"`
	PostsCount int    `json:"posts_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

type fetchNowResponse struct {
	Imported     int `json:"imported"`
	TotalChecked int `json:"total_checked"`
}

type clearImportedResponse struct {
	DeletedNews    int `json:"deleted_news"`
	DeletedRecords int `json:"deleted_records"`
}
