package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
)

// SyncService pulls engagement metrics for published posts. Per-item
// failures are accumulated, never propagated: one bad post or account must
// not stop the rest of the batch.
type SyncService struct {
	client    PlatformClient
	freshener *TokenFreshener
	accounts  repository.AccountRepository
	posts     repository.PostRepository
	logger    *zap.Logger
}

func NewSyncService(
	client PlatformClient,
	freshener *TokenFreshener,
	accounts repository.AccountRepository,
	posts repository.PostRepository,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		client:    client,
		freshener: freshener,
		accounts:  accounts,
		posts:     posts,
		logger:    logger,
	}
}

// SyncUserEngagement refreshes engagement counters for every published post
// of one user.
func (s *SyncService) SyncUserEngagement(ctx context.Context, userID int64) (*SyncSummary, error) {
	account, err := s.accounts.GetActive(ctx, userID, domain.PlatformThreads)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotConnected
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	accessToken, err := s.freshener.EnsureFresh(ctx, account)
	if err != nil {
		return nil, err
	}

	return s.syncPosts(ctx, account, accessToken)
}

// SyncAllAccounts runs one sync pass over every active account. Accounts are
// isolated from each other: a failed refresh or a rate limit on one account
// is recorded in the summary and the loop continues.
func (s *SyncService) SyncAllAccounts(ctx context.Context) (*BatchSummary, error) {
	accounts, err := s.accounts.ListActive(ctx, domain.PlatformThreads)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	summary := &BatchSummary{Accounts: len(accounts)}
	for i := range accounts {
		account := &accounts[i]

		accessToken, err := s.freshener.EnsureFresh(ctx, account)
		if err != nil {
			summary.Failures = append(summary.Failures, AccountFailure{
				AccountID: account.AccountID,
				UserID:    account.UserID,
				Reason:    err.Error(),
			})
			continue
		}

		posts, err := s.syncPosts(ctx, account, accessToken)
		if err != nil {
			summary.Failures = append(summary.Failures, AccountFailure{
				AccountID: account.AccountID,
				UserID:    account.UserID,
				Reason:    err.Error(),
			})
			continue
		}
		summary.PostsSynced += posts.Synced
	}

	return summary, nil
}

func (s *SyncService) syncPosts(ctx context.Context, account *domain.SocialAccount, accessToken string) (*SyncSummary, error) {
	posts, err := s.posts.ListPublished(ctx, account.UserID, domain.PlatformThreads)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}

	summary := &SyncSummary{}
	now := time.Now()
	for _, post := range posts {
		insights, err := s.fetchInsightsWithRetry(ctx, post.PlatformPostID, accessToken)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("post %d: %v", post.ID, err))
			continue
		}

		// Shares on Threads is the sum of reposts and quotes.
		if err := s.posts.UpdateEngagement(ctx, post.ID,
			int(insights.Likes), int(insights.Replies),
			int(insights.Reposts+insights.Quotes), int(insights.Views), now,
		); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("post %d: %v", post.ID, err))
			continue
		}
		summary.Synced++
	}

	s.logger.Info("engagement sync finished",
		zap.Int64("user_id", account.UserID),
		zap.Int("synced", summary.Synced),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// fetchInsightsWithRetry retries only transport-level failures. Explicit
// platform rejections are returned immediately.
func (s *SyncService) fetchInsightsWithRetry(ctx context.Context, platformPostID, accessToken string) (*threads.Insights, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	var insights *threads.Insights
	op := func() error {
		var err error
		insights, err = s.client.FetchInsights(ctx, platformPostID, accessToken)
		if err != nil {
			var transient *threads.TransientError
			if errors.As(err, &transient) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return insights, nil
}
