package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/domain"
	httpHandler "github.com/threadcast/threadcast/internal/http/handler"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
	"github.com/threadcast/threadcast/internal/service"
)

const testUserID int64 = 7

func testPostsConfig() config.Config {
	return config.Config{
		TokenRefreshLookahead: 7 * 24 * time.Hour,
		LongLivedTokenTTL:     60 * 24 * time.Hour,
		CronSecret:            "cron-secret",
	}
}

func newPostsHandler(t *testing.T, client service.PlatformClient, accounts *memAccountRepo, posts *memPostRepo) *httpHandler.PostsHandler {
	t.Helper()
	logger := zap.NewNop()
	cfg := testPostsConfig()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	freshener := service.NewTokenFreshener(client, accounts, cfg, logger)
	drafts := service.NewDraftService(posts, nil, node, logger)
	publish := service.NewPublishService(client, freshener, accounts, posts, logger)
	sync := service.NewSyncService(client, freshener, accounts, posts, logger)
	return httpHandler.NewPostsHandler(drafts, publish, sync, cfg, logger)
}

func doJSON(handler gin.HandlerFunc, method, target string, body any, authenticated bool) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if authenticated {
		c.Set("auth_user_id", testUserID)
	}
	handler(c)
	return w
}

func TestPublishSuccess(t *testing.T) {
	accounts := newMemAccountRepo()
	accounts.add(connectedAccount(time.Now().Add(30 * 24 * time.Hour)))
	posts := newMemPostRepo()
	posts.add(domain.Post{ID: 42, UserID: testUserID, Content: "hello", Status: domain.PostStatusDraft})

	h := newPostsHandler(t, &stubPlatform{publishID: "thread-1"}, accounts, posts)
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "42"}, true)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "thread-1")
	stored := posts.get(42)
	require.Equal(t, domain.PostStatusPublished, stored.Status)
}

func TestPublishPostNotFound(t *testing.T) {
	h := newPostsHandler(t, &stubPlatform{}, newMemAccountRepo(), newMemPostRepo())
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "99"}, true)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "post_not_found")
}

func TestPublishNotConnected(t *testing.T) {
	posts := newMemPostRepo()
	posts.add(domain.Post{ID: 42, UserID: testUserID, Content: "hello", Status: domain.PostStatusDraft})

	h := newPostsHandler(t, &stubPlatform{}, newMemAccountRepo(), posts)
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "42"}, true)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "not_connected")
}

func TestPublishExpiredTokenRequiresReconnect(t *testing.T) {
	accounts := newMemAccountRepo()
	accounts.add(connectedAccount(time.Now().Add(-time.Hour)))
	posts := newMemPostRepo()
	posts.add(domain.Post{ID: 42, UserID: testUserID, Content: "hello", Status: domain.PostStatusDraft})

	client := &stubPlatform{}
	h := newPostsHandler(t, client, accounts, posts)
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "42"}, true)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "reconnect_required")
	require.Zero(t, client.publishCalls)
}

func TestPublishPlatformRejectionSurfacesMessage(t *testing.T) {
	accounts := newMemAccountRepo()
	accounts.add(connectedAccount(time.Now().Add(30 * 24 * time.Hour)))
	posts := newMemPostRepo()
	posts.add(domain.Post{ID: 42, UserID: testUserID, Content: "hello", Status: domain.PostStatusDraft})

	client := &stubPlatform{publishErr: &threads.ContainerCreationError{
		APIError: threads.APIError{Message: "Media violates policy", Code: 368, Status: 400},
	}}
	h := newPostsHandler(t, client, accounts, posts)
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "42"}, true)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), "Media violates policy")
}

func TestPublishRequiresSession(t *testing.T) {
	h := newPostsHandler(t, &stubPlatform{}, newMemAccountRepo(), newMemPostRepo())
	w := doJSON(h.PublishPost, http.MethodPost, "/posts/publish", gin.H{"post_id": "42"}, false)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateDraft(t *testing.T) {
	posts := newMemPostRepo()
	h := newPostsHandler(t, &stubPlatform{}, newMemAccountRepo(), posts)
	w := doJSON(h.Create, http.MethodPost, "/posts", gin.H{"content": "a fresh draft"}, true)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "a fresh draft")
}

func TestCronSyncRejectsBadSecret(t *testing.T) {
	h := newPostsHandler(t, &stubPlatform{}, newMemAccountRepo(), newMemPostRepo())

	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodPost, "/cron/sync-analytics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.CronSync(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCronSyncRunsBatch(t *testing.T) {
	accounts := newMemAccountRepo()
	accounts.add(connectedAccount(time.Now().Add(30 * 24 * time.Hour)))
	posts := newMemPostRepo()
	published := time.Now().Add(-time.Hour)
	posts.add(domain.Post{
		ID: 42, UserID: testUserID, Content: "hello",
		Status: domain.PostStatusPublished, Platform: domain.PlatformThreads,
		PlatformPostID: "thread-1", PublishedAt: &published,
	})

	h := newPostsHandler(t, &stubPlatform{insights: &threads.Insights{Likes: 3, Views: 10}}, accounts, posts)

	gin.SetMode(gin.TestMode)
	req := httptest.NewRequest(http.MethodPost, "/cron/sync-analytics", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	h.CronSync(c)
	require.Equal(t, http.StatusOK, w.Code)

	stored := posts.get(42)
	require.Equal(t, 3, stored.Likes)
	require.Equal(t, 10, stored.Impressions)
}

func connectedAccount(expiresAt time.Time) domain.SocialAccount {
	return domain.SocialAccount{
		ID:             1,
		UserID:         testUserID,
		Platform:       domain.PlatformThreads,
		AccountID:      "acct-1",
		AccountHandle:  "handle",
		AccessToken:    "long-lived-token",
		TokenExpiresAt: &expiresAt,
		IsActive:       true,
	}
}

type stubPlatform struct {
	publishID    string
	publishErr   error
	publishCalls int
	insights     *threads.Insights
}

var _ service.PlatformClient = (*stubPlatform)(nil)

func (s *stubPlatform) AuthorizationURL(string) string { return "https://threads.net/oauth/authorize" }

func (s *stubPlatform) ExchangeCode(context.Context, string) (*threads.TokenResponse, error) {
	return &threads.TokenResponse{AccessToken: "short"}, nil
}

func (s *stubPlatform) ExchangeLongLived(context.Context, string) (*threads.TokenResponse, error) {
	return &threads.TokenResponse{AccessToken: "long", ExpiresIn: 5184000}, nil
}

func (s *stubPlatform) Refresh(context.Context, string) (*threads.TokenResponse, error) {
	return &threads.TokenResponse{AccessToken: "refreshed", ExpiresIn: 5184000}, nil
}

func (s *stubPlatform) FetchProfile(context.Context, string, string) (*threads.Profile, error) {
	return &threads.Profile{ID: "acct-1", Username: "handle"}, nil
}

func (s *stubPlatform) Publish(context.Context, string, string, string, string) (string, error) {
	s.publishCalls++
	if s.publishErr != nil {
		return "", s.publishErr
	}
	return s.publishID, nil
}

func (s *stubPlatform) FetchInsights(context.Context, string, string) (*threads.Insights, error) {
	if s.insights != nil {
		return s.insights, nil
	}
	return &threads.Insights{}, nil
}

type memAccountRepo struct {
	accounts map[int64]domain.SocialAccount
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[int64]domain.SocialAccount)}
}

func (r *memAccountRepo) add(a domain.SocialAccount) { r.accounts[a.UserID] = a }

func (r *memAccountRepo) Upsert(_ context.Context, a domain.SocialAccount) error {
	r.accounts[a.UserID] = a
	return nil
}

func (r *memAccountRepo) GetActive(_ context.Context, userID int64, _ string) (*domain.SocialAccount, error) {
	a, ok := r.accounts[userID]
	if !ok || !a.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := a
	return &copied, nil
}

func (r *memAccountRepo) ListActive(_ context.Context, _ string) ([]domain.SocialAccount, error) {
	var out []domain.SocialAccount
	for _, a := range r.accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAccountRepo) UpdateTokenIfCurrent(_ context.Context, id int64, currentToken, newToken string, expiresAt time.Time) (bool, error) {
	for userID, a := range r.accounts {
		if a.ID == id && a.AccessToken == currentToken {
			a.AccessToken = newToken
			a.TokenExpiresAt = &expiresAt
			r.accounts[userID] = a
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccountRepo) Deactivate(_ context.Context, userID int64, _ string) error {
	a, ok := r.accounts[userID]
	if !ok {
		return repository.ErrNotFound
	}
	a.IsActive = false
	r.accounts[userID] = a
	return nil
}

type memPostRepo struct {
	posts map[int64]domain.Post
}

var _ repository.PostRepository = (*memPostRepo)(nil)

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[int64]domain.Post)}
}

func (r *memPostRepo) add(p domain.Post)        { r.posts[p.ID] = p }
func (r *memPostRepo) get(id int64) domain.Post { return r.posts[id] }

func (r *memPostRepo) Create(_ context.Context, p domain.Post) (domain.Post, error) {
	r.posts[p.ID] = p
	return p, nil
}

func (r *memPostRepo) Get(_ context.Context, userID, postID int64) (*domain.Post, error) {
	p, ok := r.posts[postID]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (r *memPostRepo) ListPublished(_ context.Context, userID int64, platform string) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range r.posts {
		if p.UserID == userID && p.Platform == platform && p.Status == domain.PostStatusPublished {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPostRepo) MarkPublished(_ context.Context, postID int64, platform, platformPostID string, publishedAt time.Time) error {
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = domain.PostStatusPublished
	p.Platform = platform
	p.PlatformPostID = platformPostID
	p.PublishedAt = &publishedAt
	r.posts[postID] = p
	return nil
}

func (r *memPostRepo) UpdateEngagement(_ context.Context, postID int64, likes, comments, shares, impressions int, syncedAt time.Time) error {
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Likes = likes
	p.Comments = comments
	p.Shares = shares
	p.Impressions = impressions
	p.LastAnalyticsSync = &syncedAt
	r.posts[postID] = p
	return nil
}
