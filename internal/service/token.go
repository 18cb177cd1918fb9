package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
)

// TokenFreshener implements the caller-side token-freshness policy shared by
// the publish and sync paths: refuse expired tokens outright, refresh
// proactively inside the lookahead window, and never fall back to a stale
// token after a failed refresh.
type TokenFreshener struct {
	client   PlatformClient
	accounts repository.AccountRepository
	cfg      config.Config
	logger   *zap.Logger
}

func NewTokenFreshener(client PlatformClient, accounts repository.AccountRepository, cfg config.Config, logger *zap.Logger) *TokenFreshener {
	return &TokenFreshener{client: client, accounts: accounts, cfg: cfg, logger: logger}
}

// EnsureFresh returns a token safe to use for one platform call.
//
// An expired token fails with ErrReconnectRequired before any network call.
// A token expiring within the lookahead window is refreshed exactly once;
// the refreshed value is used even when persisting it fails (the write is
// conditional on the stored token being unchanged, so concurrent refreshes
// cannot clobber a fresher token).
func (f *TokenFreshener) EnsureFresh(ctx context.Context, account *domain.SocialAccount) (string, error) {
	now := time.Now()

	if account.Expired(now) {
		return "", ErrReconnectRequired
	}
	if !account.ExpiresWithin(now, f.cfg.TokenRefreshLookahead) {
		return account.AccessToken, nil
	}

	refreshed, err := f.client.Refresh(ctx, account.AccessToken)
	if err != nil {
		f.logger.Warn("token refresh failed, account needs reconnection",
			zap.Int64("account_id", account.ID),
			zap.String("token", threads.Redact(account.AccessToken)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrReconnectRequired, err)
	}

	expiresAt := now.Add(f.cfg.LongLivedTokenTTL)
	if refreshed.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	}

	updated, err := f.accounts.UpdateTokenIfCurrent(ctx, account.ID, account.AccessToken, refreshed.AccessToken, expiresAt)
	switch {
	case err != nil:
		// Use the in-memory refreshed token for this call anyway; only the
		// persistence failed.
		f.logger.Error("failed to persist refreshed token",
			zap.Int64("account_id", account.ID),
			zap.Error(err),
		)
	case !updated:
		f.logger.Warn("refreshed token not persisted, a fresher token already exists",
			zap.Int64("account_id", account.ID),
		)
	default:
		account.AccessToken = refreshed.AccessToken
		account.TokenExpiresAt = &expiresAt
	}

	return refreshed.AccessToken, nil
}
