package domain

import "time"

// News is the article entity owned by the content subsystem. The
// import engine creates and deletes rows; rendering is elsewhere.
type News struct {
	ID                 int64
	Title              string
	Slug               string
	Excerpt            *string
	Content            *string
	FeaturedImage      *string
	Gallery            []string
	VideoURL           *string
	CategoryID         *int64
	IsPublished        bool
	IsFeatured         bool
	PublishDate        *time.Time
	ScheduledPublishAt *time.Time
	CreatedAt          time.Time
}

type Category struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}

// Draft is the normalized pre-persistence form of an article derived
// from one source post.
type Draft struct {
	Title         string
	Excerpt       string
	Content       string
	FeaturedImage *string
	Gallery       []string
	VideoURL      *string
	PostDate      time.Time
}
