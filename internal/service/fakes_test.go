package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
)

// ---- Platform client fake ----

type fakePlatformClient struct {
	exchangeCalls  int
	longLivedCalls int
	refreshCalls   int
	profileCalls   int
	publishCalls   int
	insightsCalls  map[string]int

	exchangeResp  *threads.TokenResponse
	exchangeErr   error
	longLivedResp *threads.TokenResponse
	longLivedErr  error
	refreshResp   *threads.TokenResponse
	refreshErr    error
	profileResp   *threads.Profile
	profileErr    error
	publishResp   string
	publishErr    error
	insightsResp  *threads.Insights
	insightsErrs  []error
}

func newFakePlatformClient() *fakePlatformClient {
	return &fakePlatformClient{insightsCalls: map[string]int{}}
}

func (f *fakePlatformClient) AuthorizationURL(state string) string {
	return "https://threads.net/oauth/authorize?client_id=app&state=" + state
}

func (f *fakePlatformClient) ExchangeCode(_ context.Context, code string) (*threads.TokenResponse, error) {
	f.exchangeCalls++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeResp, nil
}

func (f *fakePlatformClient) ExchangeLongLived(_ context.Context, _ string) (*threads.TokenResponse, error) {
	f.longLivedCalls++
	if f.longLivedErr != nil {
		return nil, f.longLivedErr
	}
	return f.longLivedResp, nil
}

func (f *fakePlatformClient) Refresh(_ context.Context, _ string) (*threads.TokenResponse, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshResp != nil {
		return f.refreshResp, nil
	}
	// Issue a distinct token per call.
	return &threads.TokenResponse{
		AccessToken: fmt.Sprintf("refreshed-%d", f.refreshCalls),
		ExpiresIn:   60 * 24 * 3600,
	}, nil
}

func (f *fakePlatformClient) FetchProfile(_ context.Context, userID, _ string) (*threads.Profile, error) {
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profileResp != nil {
		return f.profileResp, nil
	}
	return &threads.Profile{ID: userID, Username: "casterly"}, nil
}

func (f *fakePlatformClient) Publish(_ context.Context, _, _, _, _ string) (string, error) {
	f.publishCalls++
	if f.publishErr != nil {
		return "", f.publishErr
	}
	if f.publishResp != "" {
		return f.publishResp, nil
	}
	return fmt.Sprintf("platform-post-%d", f.publishCalls), nil
}

func (f *fakePlatformClient) FetchInsights(_ context.Context, platformPostID, _ string) (*threads.Insights, error) {
	f.insightsCalls[platformPostID]++
	if len(f.insightsErrs) > 0 {
		err := f.insightsErrs[0]
		f.insightsErrs = f.insightsErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.insightsResp != nil {
		return f.insightsResp, nil
	}
	return &threads.Insights{Likes: 1}, nil
}

// ---- State store fake ----

type memoryStateStore struct {
	mu   sync.RWMutex
	data map[string]domain.ConnectState
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{data: map[string]domain.ConnectState{}}
}

func (m *memoryStateStore) SaveState(_ context.Context, key string, data domain.ConnectState, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memoryStateStore) GetState(_ context.Context, key string) (*domain.ConnectState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if state, ok := m.data[key]; ok {
		copied := state
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryStateStore) DeleteState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ---- Account repository fake ----

type fakeAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[string]*domain.SocialAccount

	updateTokenErr error
	upsertErr      error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{nextID: 1, accounts: map[string]*domain.SocialAccount{}}
}

func accountKey(userID int64, platform string) string {
	return fmt.Sprintf("%d|%s", userID, platform)
}

func (f *fakeAccountRepo) Upsert(_ context.Context, account domain.SocialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := accountKey(account.UserID, account.Platform)
	if existing, ok := f.accounts[key]; ok {
		account.ID = existing.ID
	} else {
		account.ID = f.nextID
		f.nextID++
	}
	account.IsActive = true
	account.UpdatedAt = time.Now()
	f.accounts[key] = &account
	return nil
}

func (f *fakeAccountRepo) GetActive(_ context.Context, userID int64, platform string) (*domain.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountKey(userID, platform)]
	if !ok || !account.IsActive {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountRepo) ListActive(_ context.Context, platform string) ([]domain.SocialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SocialAccount
	for _, account := range f.accounts {
		if account.Platform == platform && account.IsActive {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) UpdateTokenIfCurrent(_ context.Context, id int64, currentToken, newToken string, expiresAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateTokenErr != nil {
		return false, f.updateTokenErr
	}
	for _, account := range f.accounts {
		if account.ID == id {
			if account.AccessToken != currentToken {
				return false, nil
			}
			account.AccessToken = newToken
			expiry := expiresAt
			account.TokenExpiresAt = &expiry
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepo) Deactivate(_ context.Context, userID int64, platform string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountKey(userID, platform)]
	if !ok || !account.IsActive {
		return repository.ErrNotFound
	}
	account.IsActive = false
	return nil
}

func (f *fakeAccountRepo) get(userID int64, platform string) *domain.SocialAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[accountKey(userID, platform)]
}

func (f *fakeAccountRepo) put(account domain.SocialAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == 0 {
		account.ID = f.nextID
		f.nextID++
	}
	f.accounts[accountKey(account.UserID, account.Platform)] = &account
}

// ---- Post repository fake ----

type fakePostRepo struct {
	mu    sync.Mutex
	posts map[int64]*domain.Post

	markPublishedErr error
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*domain.Post{}}
}

func (f *fakePostRepo) Create(_ context.Context, post domain.Post) (domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	f.posts[post.ID] = &post
	return post, nil
}

func (f *fakePostRepo) Get(_ context.Context, userID, postID int64) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[postID]
	if !ok || post.UserID != userID {
		return nil, repository.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (f *fakePostRepo) ListPublished(_ context.Context, userID int64, platform string) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Post
	for _, post := range f.posts {
		if post.UserID == userID && post.Status == domain.PostStatusPublished &&
			post.Platform == platform && post.PlatformPostID != "" {
			out = append(out, *post)
		}
	}
	return out, nil
}

func (f *fakePostRepo) MarkPublished(_ context.Context, postID int64, platform, platformPostID string, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markPublishedErr != nil {
		return f.markPublishedErr
	}
	post, ok := f.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	post.Status = domain.PostStatusPublished
	post.Platform = platform
	post.PlatformPostID = platformPostID
	published := publishedAt
	post.PublishedAt = &published
	return nil
}

func (f *fakePostRepo) UpdateEngagement(_ context.Context, postID int64, likes, comments, shares, impressions int, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	post, ok := f.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	post.Likes = likes
	post.Comments = comments
	post.Shares = shares
	post.Impressions = impressions
	synced := syncedAt
	post.LastAnalyticsSync = &synced
	return nil
}

func (f *fakePostRepo) put(post domain.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[post.ID] = &post
}

func (f *fakePostRepo) get(postID int64) *domain.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[postID]
}
