package service

import (
	"context"

	"github.com/threadcast/threadcast/internal/platform/threads"
)

// PlatformClient is the outbound surface of the Threads client consumed by
// the services. *threads.Client satisfies it; tests substitute fakes.
type PlatformClient interface {
	AuthorizationURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*threads.TokenResponse, error)
	ExchangeLongLived(ctx context.Context, accessToken string) (*threads.TokenResponse, error)
	Refresh(ctx context.Context, accessToken string) (*threads.TokenResponse, error)
	FetchProfile(ctx context.Context, userID, accessToken string) (*threads.Profile, error)
	Publish(ctx context.Context, accountID, accessToken, text, imageURL string) (string, error)
	FetchInsights(ctx context.Context, platformPostID, accessToken string) (*threads.Insights, error)
}

var _ PlatformClient = (*threads.Client)(nil)
