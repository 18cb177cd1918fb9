package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/http/middleware"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/service"
)

// PostsHandler exposes drafting, publishing, and engagement sync.
type PostsHandler struct {
	Drafts  *service.DraftService
	Publish *service.PublishService
	Sync    *service.SyncService
	Config  config.Config
	Logger  *zap.Logger
}

func NewPostsHandler(drafts *service.DraftService, publish *service.PublishService, sync *service.SyncService, cfg config.Config, logger *zap.Logger) *PostsHandler {
	return &PostsHandler{Drafts: drafts, Publish: publish, Sync: sync, Config: cfg, Logger: logger}
}

type postResponse struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	ImageURL       string     `json:"image_url,omitempty"`
	Status         string     `json:"status"`
	Platform       string     `json:"platform,omitempty"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Likes          int        `json:"likes"`
	Comments       int        `json:"comments"`
	Shares         int        `json:"shares"`
	Impressions    int        `json:"impressions"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toPostResponse(post domain.Post) postResponse {
	return postResponse{
		ID:             strconv.FormatInt(post.ID, 10),
		Content:        post.Content,
		ImageURL:       post.ImageURL,
		Status:         post.Status,
		Platform:       post.Platform,
		PlatformPostID: post.PlatformPostID,
		PublishedAt:    post.PublishedAt,
		Likes:          post.Likes,
		Comments:       post.Comments,
		Shares:         post.Shares,
		Impressions:    post.Impressions,
		CreatedAt:      post.CreatedAt,
	}
}

// Create stores a user-written draft.
func (h *PostsHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Content  string `json:"content" binding:"required"`
		ImageURL string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	post, err := h.Drafts.CreateDraft(c.Request.Context(), userID, req.Content, req.ImageURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_content"})
		case errors.Is(err, service.ErrContentTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "content_too_long"})
		default:
			h.Logger.Error("create draft failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		}
		return
	}
	c.JSON(http.StatusCreated, toPostResponse(post))
}

// Generate drafts a post with the text-generation collaborator.
func (h *PostsHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Topic string `json:"topic" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	post, err := h.Drafts.GenerateDraft(c.Request.Context(), userID, req.Topic)
	if err != nil {
		if errors.Is(err, service.ErrEmptyContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty_topic"})
			return
		}
		h.Logger.Error("generate draft failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation_failed"})
		return
	}
	c.JSON(http.StatusCreated, toPostResponse(post))
}

// PublishPost pushes a draft to the platform.
func (h *PostsHandler) PublishPost(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		PostID string `json:"post_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	postID, err := strconv.ParseInt(req.PostID, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_post_id"})
		return
	}

	outcome, err := h.Publish.PublishPost(c.Request.Context(), userID, postID)
	if err != nil {
		h.respondPublishError(c, outcome, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "platform_post_id": outcome.PlatformPostID})
}

// respondPublishError maps the failure taxonomy onto user guidance. The
// platform's literal message is surfaced when available: content-policy and
// auth failures require different user actions.
func (h *PostsHandler) respondPublishError(c *gin.Context, outcome *service.PublishOutcome, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post_not_found"})
	case errors.Is(err, service.ErrAlreadyPublished):
		c.JSON(http.StatusBadRequest, gin.H{"error": "already_published"})
	case errors.Is(err, service.ErrNotConnected):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_connected"})
	case errors.Is(err, service.ErrReconnectRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": "reconnect_required"})
	default:
		var containerErr *threads.ContainerCreationError
		var publishErr *threads.PublishError
		var transient *threads.TransientError
		switch {
		case errors.As(err, &containerErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "publish_failed", "details": containerErr.UserMessage()})
		case errors.As(err, &publishErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": "publish_failed", "details": publishErr.UserMessage()})
		case errors.As(err, &transient):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "platform_unreachable"})
		case outcome != nil && outcome.PlatformPostID != "":
			// Published at the platform, but recording it locally failed.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":            "publish_recorded_failed",
				"platform_post_id": outcome.PlatformPostID,
			})
		default:
			h.Logger.Error("publish failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "publish_failed"})
		}
	}
}

// SyncEngagement refreshes engagement counters for the caller's posts.
func (h *PostsHandler) SyncEngagement(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.Sync.SyncUserEngagement(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotConnected):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_connected"})
		case errors.Is(err, service.ErrReconnectRequired):
			c.JSON(http.StatusForbidden, gin.H{"error": "reconnect_required"})
		default:
			h.Logger.Error("engagement sync failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sync_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"synced": summary.Synced,
		"failed": summary.Failed,
		"errors": summary.Errors,
	})
}

// CronSync runs the batch sync over all accounts. Guarded by the shared cron
// secret rather than a user session.
func (h *PostsHandler) CronSync(c *gin.Context) {
	if h.Config.CronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(bearer(c)), []byte(h.Config.CronSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	summary, err := h.Sync.SyncAllAccounts(c.Request.Context())
	if err != nil {
		h.Logger.Error("batch sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accounts":     summary.Accounts,
		"posts_synced": summary.PostsSynced,
		"failures":     summary.Failures,
	})
}

// Get returns one post.
func (h *PostsHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_post_id"})
		return
	}

	post, err := h.Publish.GetPost(c.Request.Context(), userID, postID)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post_not_found"})
			return
		}
		h.Logger.Error("get post failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get_failed"})
		return
	}
	c.JSON(http.StatusOK, toPostResponse(*post))
}

func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
