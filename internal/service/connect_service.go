package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
)

const (
	statePrefix = "connect:state:"
	stateTTL    = 5 * time.Minute
)

// ConnectService orchestrates the account connect flow: authorization start,
// OAuth callback, and disconnect.
type ConnectService struct {
	client     PlatformClient
	stateStore repository.ConnectStateStore
	accounts   repository.AccountRepository
	cfg        config.Config
	logger     *zap.Logger
}

// NewConnectService wires the connect flow.
func NewConnectService(
	client PlatformClient,
	stateStore repository.ConnectStateStore,
	accounts repository.AccountRepository,
	cfg config.Config,
	logger *zap.Logger,
) *ConnectService {
	return &ConnectService{
		client:     client,
		stateStore: stateStore,
		accounts:   accounts,
		cfg:        cfg,
		logger:     logger,
	}
}

// StartAuthorization persists round-trip state and returns the consent URL.
// The state parameter sent to the platform is a random key; the return path
// stays server-side.
func (s *ConnectService) StartAuthorization(ctx context.Context, userID int64, returnPath string) (string, error) {
	state, err := secureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	payload := domain.ConnectState{
		State:      state,
		UserID:     userID,
		ReturnPath: s.sanitizeReturnPath(returnPath),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.stateStore.SaveState(ctx, stateKey(state), payload, stateTTL); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}

	return s.client.AuthorizationURL(state), nil
}

// HandleCallback completes the connect flow. Failures of the long-lived
// exchange and the profile fetch degrade gracefully; everything else is
// terminal for this attempt.
func (s *ConnectService) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	state, cleanup, err := s.loadState(ctx, in.State)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{ReturnPath: state.ReturnPath}

	// The platform reports user denial via error/error_reason and sends no
	// code; exchanging must not be attempted.
	if strings.TrimSpace(in.Error) != "" {
		result.Declined = true
		result.DeclineReason = in.ErrorReason
		if result.DeclineReason == "" {
			result.DeclineReason = in.Error
		}
		return result, nil
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, ErrMissingCode
	}

	token, err := s.client.ExchangeCode(ctx, in.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	accessToken := token.AccessToken
	platformUserID := token.UserID

	// Upgrade to a long-lived token. On failure keep the short-lived token
	// with a conservative assumed expiry; the connection is still worth
	// saving.
	expiresAt := time.Now().Add(s.cfg.ShortLivedTokenTTL)
	if longLived, err := s.client.ExchangeLongLived(ctx, accessToken); err != nil {
		s.logger.Warn("long-lived token exchange failed, keeping short-lived token",
			zap.Int64("user_id", state.UserID),
			zap.Error(err),
		)
	} else {
		accessToken = longLived.AccessToken
		if longLived.ExpiresIn > 0 {
			expiresAt = time.Now().Add(time.Duration(longLived.ExpiresIn) * time.Second)
		} else {
			expiresAt = time.Now().Add(s.cfg.LongLivedTokenTTL)
		}
	}

	profile, err := s.client.FetchProfile(ctx, platformUserID, accessToken)
	if err != nil {
		s.logger.Warn("profile fetch failed, using placeholder",
			zap.Int64("user_id", state.UserID),
			zap.String("account_id", platformUserID),
			zap.Error(err),
		)
		profile = &threads.Profile{ID: platformUserID, Username: "unknown"}
	}

	account := domain.SocialAccount{
		UserID:            state.UserID,
		Platform:          domain.PlatformThreads,
		AccountID:         platformUserID,
		AccountHandle:     profile.Username,
		ProfilePictureURL: profile.AvatarURL,
		AccessToken:       accessToken,
		TokenExpiresAt:    &expiresAt,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("persist connection: %w", err)
	}

	s.logger.Info("threads account connected",
		zap.Int64("user_id", state.UserID),
		zap.String("handle", profile.Username),
		zap.String("token", threads.Redact(accessToken)),
		zap.Time("token_expires_at", expiresAt),
	)

	result.AccountHandle = profile.Username
	return result, nil
}

// Disconnect marks the connection inactive. The row is kept for audit.
func (s *ConnectService) Disconnect(ctx context.Context, userID int64) error {
	if err := s.accounts.Deactivate(ctx, userID, domain.PlatformThreads); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotConnected
		}
		return fmt.Errorf("disconnect: %w", err)
	}
	s.logger.Info("threads account disconnected", zap.Int64("user_id", userID))
	return nil
}

func (s *ConnectService) loadState(ctx context.Context, stateParam string) (*domain.ConnectState, func(), error) {
	if strings.TrimSpace(stateParam) == "" {
		return nil, nil, ErrInvalidState
	}
	key := stateKey(stateParam)
	state, err := s.stateStore.GetState(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	if state == nil {
		return nil, nil, ErrInvalidState
	}
	cleanup := func() {
		if err := s.stateStore.DeleteState(ctx, key); err != nil {
			s.logger.Warn("failed to delete connect state", zap.Error(err))
		}
	}
	return state, cleanup, nil
}

// sanitizeReturnPath accepts only internal paths; anything else (absolute
// URLs, protocol-relative paths) falls back to the default. The value came
// from an unauthenticated query parameter and would otherwise be an open
// redirect.
func (s *ConnectService) sanitizeReturnPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return s.cfg.DefaultReturnPath
	}
	if strings.ContainsAny(path, "\\\r\n") {
		return s.cfg.DefaultReturnPath
	}
	return path
}

func stateKey(state string) string {
	return statePrefix + strings.TrimSpace(state)
}

func secureRandomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
