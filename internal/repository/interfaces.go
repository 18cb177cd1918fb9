package repository

import (
	"context"
	"errors"
	"time"

	"github.com/threadcast/threadcast/internal/domain"
)

// ErrNotFound signals a missing row regardless of backing store.
var ErrNotFound = errors.New("repository: not found")

// ConnectStateStore persists short-lived authorization round-trip state.
type ConnectStateStore interface {
	SaveState(ctx context.Context, key string, data domain.ConnectState, ttl time.Duration) error
	GetState(ctx context.Context, key string) (*domain.ConnectState, error)
	DeleteState(ctx context.Context, key string) error
}

// AccountRepository stores one token record per (user, platform) pair.
type AccountRepository interface {
	Upsert(ctx context.Context, account domain.SocialAccount) error
	GetActive(ctx context.Context, userID int64, platform string) (*domain.SocialAccount, error)
	ListActive(ctx context.Context, platform string) ([]domain.SocialAccount, error)
	// UpdateTokenIfCurrent persists a refreshed token only while the stored
	// token still matches the one that triggered the refresh. Returns false
	// when a concurrent refresh already wrote a fresher token.
	UpdateTokenIfCurrent(ctx context.Context, id int64, currentToken, newToken string, expiresAt time.Time) (bool, error)
	Deactivate(ctx context.Context, userID int64, platform string) error
}

// PostRepository stores drafted and published posts.
type PostRepository interface {
	Create(ctx context.Context, post domain.Post) (domain.Post, error)
	Get(ctx context.Context, userID, postID int64) (*domain.Post, error)
	ListPublished(ctx context.Context, userID int64, platform string) ([]domain.Post, error)
	MarkPublished(ctx context.Context, postID int64, platform, platformPostID string, publishedAt time.Time) error
	UpdateEngagement(ctx context.Context, postID int64, likes, comments, shares, impressions int, syncedAt time.Time) error
}
