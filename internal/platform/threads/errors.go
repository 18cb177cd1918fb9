package threads

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigError reports missing app credentials at construction time. It is
// fatal: no client is returned alongside it.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("threads: missing configuration: %s", strings.Join(e.Missing, ", "))
}

// APIError is the decoded platform error envelope. Message is the only field
// safe to surface to end users; Code and Type are for internal branching.
// When the body does not match the envelope, Message is empty and Raw holds
// the body verbatim.
type APIError struct {
	Message   string
	Type      string
	Code      int
	FBTraceID string
	Status    int
	Raw       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("threads api: %s (type=%s code=%d status=%d)", e.Message, e.Type, e.Code, e.Status)
	}
	return fmt.Sprintf("threads api: status=%d body=%s", e.Status, e.Raw)
}

// UserMessage returns the platform's literal message when available, so
// content-policy and auth failures can be shown verbatim.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// TokenExchangeError means the authorization code was rejected. Never retry
// with the same code; the user must restart the authorization flow.
type TokenExchangeError struct{ APIError }

func (e *TokenExchangeError) Error() string { return "exchange code: " + e.APIError.Error() }

// TokenUpgradeError means the long-lived exchange failed. Non-fatal: callers
// keep the short-lived token with a conservative assumed expiry.
type TokenUpgradeError struct{ APIError }

func (e *TokenUpgradeError) Error() string { return "long-lived exchange: " + e.APIError.Error() }

// TokenRefreshError is terminal for the current token; the account needs
// reconnection.
type TokenRefreshError struct{ APIError }

func (e *TokenRefreshError) Error() string { return "refresh token: " + e.APIError.Error() }

// ProfileFetchError is non-fatal: callers degrade to a placeholder profile.
type ProfileFetchError struct{ APIError }

func (e *ProfileFetchError) Error() string { return "fetch profile: " + e.APIError.Error() }

// ContainerCreationError means step one of the publish protocol failed; the
// publish step is never attempted after it.
type ContainerCreationError struct{ APIError }

func (e *ContainerCreationError) Error() string { return "create container: " + e.APIError.Error() }

// PublishError means the container was created but publishing it failed. The
// container may survive unpublished on the platform; no cleanup is attempted.
type PublishError struct{ APIError }

func (e *PublishError) Error() string { return "publish container: " + e.APIError.Error() }

// InsightsError reports a failed engagement-metrics lookup.
type InsightsError struct{ APIError }

func (e *InsightsError) Error() string { return "fetch insights: " + e.APIError.Error() }

// TransientError wraps transport-level failures (timeouts, refused
// connections). Unlike explicit platform rejections it is safe to retry
// with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("threads: %s: %v", e.Op, e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// decodeAPIError parses the platform envelope {error:{message,type,code,
// fbtrace_id}} defensively; an unknown shape yields an APIError carrying the
// raw body only.
func decodeAPIError(status int, body []byte) APIError {
	var envelope struct {
		Error struct {
			Message   string `json:"message"`
			Type      string `json:"type"`
			Code      int    `json:"code"`
			FBTraceID string `json:"fbtrace_id"`
		} `json:"error"`
	}
	apiErr := APIError{Status: status, Raw: string(body)}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
		apiErr.FBTraceID = envelope.Error.FBTraceID
	}
	return apiErr
}
