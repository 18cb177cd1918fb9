package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/config"
	"github.com/threadcast/threadcast/internal/http/middleware"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/service"
)

// ThreadsHandler exposes the account connect flow.
type ThreadsHandler struct {
	Connect *service.ConnectService
	Config  config.Config
	Logger  *zap.Logger
}

func NewThreadsHandler(connect *service.ConnectService, cfg config.Config, logger *zap.Logger) *ThreadsHandler {
	return &ThreadsHandler{Connect: connect, Config: cfg, Logger: logger}
}

// AuthStart redirects the user to the platform consent screen.
func (h *ThreadsHandler) AuthStart(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	authURL, err := h.Connect.StartAuthorization(c.Request.Context(), userID, c.Query("origin"))
	if err != nil {
		h.Logger.Error("start authorization failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authorization_start_failed"})
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the OAuth round-trip. The user identity comes from the
// server-side state record, not from the request.
func (h *ThreadsHandler) Callback(c *gin.Context) {
	in := service.CallbackInput{
		Code:        c.Query("code"),
		State:       c.Query("state"),
		Error:       c.Query("error"),
		ErrorReason: c.Query("error_reason"),
	}

	result, err := h.Connect.HandleCallback(c.Request.Context(), in)
	if err != nil {
		h.Logger.Warn("threads callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.failureRedirect(err))
		return
	}

	if result.Declined {
		c.Redirect(http.StatusFound, redirectWith(result.ReturnPath, "error", result.DeclineReason))
		return
	}
	c.Redirect(http.StatusFound, redirectWith(result.ReturnPath, "success", "threads_connected"))
}

// Disconnect deactivates the connection.
func (h *ThreadsHandler) Disconnect(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Connect.Disconnect(c.Request.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNotConnected) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_connected"})
			return
		}
		h.Logger.Error("disconnect failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disconnect_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ThreadsHandler) failureRedirect(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidState):
		return redirectWith(h.Config.DefaultReturnPath, "error", "invalid_state")
	case errors.Is(err, service.ErrMissingCode):
		return redirectWith(h.Config.DefaultReturnPath, "error", "missing_code")
	default:
		var exchangeErr *threads.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			return redirectWith(h.Config.DefaultReturnPath, "error", "code_rejected")
		}
		return redirectWith(h.Config.DefaultReturnPath, "error", "threads_connection_failed")
	}
}

func redirectWith(path, key, value string) string {
	return path + "?" + key + "=" + url.QueryEscape(value)
}
