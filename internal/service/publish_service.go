package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
)

// PublishService pushes a drafted post to the platform under the
// token-freshness policy.
type PublishService struct {
	client    PlatformClient
	freshener *TokenFreshener
	accounts  repository.AccountRepository
	posts     repository.PostRepository
	logger    *zap.Logger
}

func NewPublishService(
	client PlatformClient,
	freshener *TokenFreshener,
	accounts repository.AccountRepository,
	posts repository.PostRepository,
	logger *zap.Logger,
) *PublishService {
	return &PublishService{
		client:    client,
		freshener: freshener,
		accounts:  accounts,
		posts:     posts,
		logger:    logger,
	}
}

// GetPost returns one of the caller's posts.
func (s *PublishService) GetPost(ctx context.Context, userID, postID int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

// PublishPost publishes one drafted post. On a publish that succeeded at the
// platform but failed to record locally, the returned outcome still carries
// the platform post id alongside the error.
func (s *PublishService) PublishPost(ctx context.Context, userID, postID int64) (*PublishOutcome, error) {
	post, err := s.posts.Get(ctx, userID, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("load post: %w", err)
	}
	if post.Status == domain.PostStatusPublished && post.PlatformPostID != "" {
		return nil, ErrAlreadyPublished
	}

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

	s.logger.Info("publishing post",
		zap.Int64("post_id", post.ID),
		zap.String("account_id", account.AccountID),
		zap.String("token", threads.Redact(accessToken)),
		zap.Bool("has_image", post.ImageURL != ""),
	)

	platformPostID, err := s.client.Publish(ctx, account.AccountID, accessToken, post.Content, post.ImageURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.posts.MarkPublished(ctx, post.ID, domain.PlatformThreads, platformPostID, now); err != nil {
		s.logger.Error("post published but status update failed",
			zap.Int64("post_id", post.ID),
			zap.String("platform_post_id", platformPostID),
			zap.Error(err),
		)
		return &PublishOutcome{PlatformPostID: platformPostID, Persisted: false},
			fmt.Errorf("record published post: %w", err)
	}

	return &PublishOutcome{PlatformPostID: platformPostID, Persisted: true}, nil
}
