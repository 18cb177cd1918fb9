package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default platform endpoints. Overridable for tests.
const (
	DefaultAuthBaseURL  = "https://threads.net"
	DefaultGraphBaseURL = "https://graph.threads.net"

	apiVersion = "v1.0"
)

// Scopes requested during authorization. The platform expects a
// comma-joined list, not the space-joined form common elsewhere.
var scopes = []string{"threads_basic", "threads_content_publish"}

// Config holds the app credentials registered with the platform.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURI string

	// AuthBaseURL and GraphBaseURL default to the production endpoints.
	AuthBaseURL  string
	GraphBaseURL string

	Timeout time.Duration
}

// TokenResponse is the platform's token endpoint payload. ExpiresIn is zero
// for short-lived tokens, whose expiry the platform does not report.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Profile is the platform user profile.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"threads_profile_picture_url"`
	Biography string `json:"threads_biography"`
}

// Insights carries per-post engagement counters.
type Insights struct {
	Likes   int64
	Replies int64
	Views   int64
	Quotes  int64
	Reposts int64
}

// Client encapsulates every outbound call needed to authorize, maintain, and
// use a Threads connection. It holds no mutable state; all durable token
// state lives with the caller.
type Client struct {
	appID        string
	appSecret    string
	redirectURI  string
	authBaseURL  string
	graphBaseURL string
	httpClient   *http.Client
}

// New validates credentials and constructs the client. A partially
// configured client is never returned: missing credentials fail here, before
// any network call can be attempted.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.AppID) == "" {
		missing = append(missing, "app id")
	}
	if strings.TrimSpace(cfg.AppSecret) == "" {
		missing = append(missing, "app secret")
	}
	if strings.TrimSpace(cfg.RedirectURI) == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = DefaultAuthBaseURL
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = DefaultGraphBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		appID:        cfg.AppID,
		appSecret:    cfg.AppSecret,
		redirectURI:  cfg.RedirectURI,
		authBaseURL:  strings.TrimRight(cfg.AuthBaseURL, "/"),
		graphBaseURL: strings.TrimRight(cfg.GraphBaseURL, "/"),
		httpClient:   httpClient,
	}, nil
}

// AuthorizationURL builds the consent URL. state is echoed back verbatim on
// the callback; callers must treat it as opaque there.
func (c *Client) AuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", c.appID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("scope", strings.Join(scopes, ","))
	params.Set("response_type", "code")
	if state != "" {
		params.Set("state", state)
	}
	return c.authBaseURL + "/oauth/authorize?" + params.Encode()
}

// ExchangeCode trades a one-time authorization code for a short-lived token
// and the platform user id. A rejected code is terminal: the user must
// restart the authorization flow.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.appSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code", code)

	var token TokenResponse
	if err := c.postForm(ctx, c.graphBaseURL+"/oauth/access_token", form, &token, func(apiErr APIError) error {
		return &TokenExchangeError{apiErr}
	}); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{APIError{Message: "token endpoint returned no access token"}}
	}
	return &token, nil
}

// ExchangeLongLived upgrades a short-lived token to a long-lived one
// (60 days). Callers treat failure as non-fatal and keep the short-lived
// token with a conservative assumed expiry.
func (c *Client) ExchangeLongLived(ctx context.Context, accessToken string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "th_exchange_token")
	params.Set("client_secret", c.appSecret)
	params.Set("access_token", accessToken)

	var token TokenResponse
	if err := c.getJSON(ctx, c.graphBaseURL+"/access_token?"+params.Encode(), &token, func(apiErr APIError) error {
		return &TokenUpgradeError{apiErr}
	}); err != nil {
		return nil, err
	}
	return &token, nil
}

// Refresh extends a still-valid long-lived token by another full window. The
// platform rejects refreshing an already-expired token, so callers must
// check expiry first; a failed refresh is terminal for the token.
func (c *Client) Refresh(ctx context.Context, accessToken string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "th_refresh_token")
	params.Set("access_token", accessToken)

	var token TokenResponse
	if err := c.getJSON(ctx, c.graphBaseURL+"/refresh_access_token?"+params.Encode(), &token, func(apiErr APIError) error {
		return &TokenRefreshError{apiErr}
	}); err != nil {
		return nil, err
	}
	return &token, nil
}

// FetchProfile loads the user profile. Best-effort for callers: on failure
// they synthesize a placeholder record from the id they already hold.
func (c *Client) FetchProfile(ctx context.Context, userID, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", "id,username,threads_profile_picture_url,threads_biography")
	params.Set("access_token", accessToken)

	var profile Profile
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/%s?%s", c.graphBaseURL, apiVersion, url.PathEscape(userID), params.Encode()), &profile, func(apiErr APIError) error {
		return &ProfileFetchError{apiErr}
	}); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Publish runs the two-step publish protocol: create a media container, then
// publish it. If the create step fails the publish step is never attempted.
// If the publish step fails the container may survive unpublished on the
// platform; that orphan is accepted and no cleanup is attempted.
func (c *Client) Publish(ctx context.Context, accountID, accessToken, text, imageURL string) (string, error) {
	containerID, err := c.createContainer(ctx, accountID, accessToken, text, imageURL)
	if err != nil {
		return "", err
	}
	return c.publishContainer(ctx, accountID, accessToken, containerID)
}

func (c *Client) createContainer(ctx context.Context, accountID, accessToken, text, imageURL string) (string, error) {
	form := url.Values{}
	if imageURL != "" {
		form.Set("media_type", "IMAGE")
		form.Set("image_url", imageURL)
	} else {
		form.Set("media_type", "TEXT")
	}
	form.Set("text", text)
	form.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, fmt.Sprintf("%s/%s/%s/threads", c.graphBaseURL, apiVersion, url.PathEscape(accountID)), form, &out, func(apiErr APIError) error {
		return &ContainerCreationError{apiErr}
	}); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &ContainerCreationError{APIError{Message: "container endpoint returned no id"}}
	}
	return out.ID, nil
}

func (c *Client) publishContainer(ctx context.Context, accountID, accessToken, containerID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", accessToken)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, fmt.Sprintf("%s/%s/%s/threads_publish", c.graphBaseURL, apiVersion, url.PathEscape(accountID)), form, &out, func(apiErr APIError) error {
		return &PublishError{apiErr}
	}); err != nil {
		return "", err
	}
	return out.ID, nil
}

// FetchInsights loads lifetime engagement metrics for a published post.
func (c *Client) FetchInsights(ctx context.Context, platformPostID, accessToken string) (*Insights, error) {
	params := url.Values{}
	params.Set("metric", "likes,replies,views,quotes,reposts")
	params.Set("access_token", accessToken)

	// Each item carries total_value for lifetime metrics; older responses
	// use a values array instead.
	var out struct {
		Data []struct {
			Name       string `json:"name"`
			TotalValue *struct {
				Value int64 `json:"value"`
			} `json:"total_value"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s/%s/insights?%s", c.graphBaseURL, apiVersion, url.PathEscape(platformPostID), params.Encode()), &out, func(apiErr APIError) error {
		return &InsightsError{apiErr}
	}); err != nil {
		return nil, err
	}

	metrics := make(map[string]int64, len(out.Data))
	for _, item := range out.Data {
		switch {
		case item.TotalValue != nil:
			metrics[item.Name] = item.TotalValue.Value
		case len(item.Values) > 0:
			metrics[item.Name] = item.Values[0].Value
		}
	}
	return &Insights{
		Likes:   metrics["likes"],
		Replies: metrics["replies"],
		Views:   metrics["views"],
		Quotes:  metrics["quotes"],
		Reposts: metrics["reposts"],
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out any, wrap func(APIError) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out, wrap)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any, wrap func(APIError) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, wrap)
}

func (c *Client) do(req *http.Request, out any, wrap func(APIError) error) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient, distinct from an
		// explicit platform rejection.
		return &TransientError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &TransientError{Op: "read response " + req.URL.Path, Err: err}
	}
	if resp.StatusCode >= 300 {
		return wrap(decodeAPIError(resp.StatusCode, body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Redact shortens a bearer token for log output. Tokens are never logged in
// full.
func Redact(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
