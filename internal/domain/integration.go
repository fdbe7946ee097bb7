package domain

import "time"

// Mode is the operating state of an integration.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeAuto || m == ModeManual
}

const (
	MinFetchCount     = 1
	MaxFetchCount     = 100
	DefaultFetchCount = 20
)

// Integration is one configured connection to a VK community.
type Integration struct {
	ID                   int64
	GroupID              string
	AccessToken          string
	Mode                 Mode
	DefaultCategoryID    *int64
	AutoPublish          bool
	CheckIntervalMinutes int
	FetchCount           int
	HashtagCategoryMap   map[string]int64
	LastCheckedAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}

// ClampedFetchCount bounds the configured batch size to what the
// remote API accepts. Stored values may predate the write-side clamp.
func (i *Integration) ClampedFetchCount() int {
	c := i.FetchCount
	if c == 0 {
		c = DefaultFetchCount
	}
	if c < MinFetchCount {
		c = MinFetchCount
	}
	if c > MaxFetchCount {
		c = MaxFetchCount
	}
	return c
}

// ImportedPost is the dedup ledger row for one processed source post.
// (vk_post_id, vk_integration_id) is unique; NewsID is nil when the
// post was recorded but produced no article, and the row is stale once
// the linked article has been deleted.
type ImportedPost struct {
	ID            int64      `db:"id"`
	VKPostID      int64      `db:"vk_post_id"`
	IntegrationID int64      `db:"vk_integration_id"`
	NewsID        *int64     `db:"news_id"`
	VKPostDate    *time.Time `db:"vk_post_date"`
	ImportedAt    time.Time  `db:"imported_at"`
}
