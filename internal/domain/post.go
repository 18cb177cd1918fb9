package domain

import "time"

// Post statuses.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// MaxPostLength is the Threads text limit.
const MaxPostLength = 500

// Post is a drafted or published piece of content.
type Post struct {
	ID                int64
	UserID            int64
	Content           string
	ImageURL          string
	Status            string
	Platform          string
	PlatformPostID    string
	PublishedAt       *time.Time
	Likes             int
	Comments          int
	Shares            int
	Impressions       int
	LastAnalyticsSync *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
