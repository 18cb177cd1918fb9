package service

import "errors"

// Sentinel errors surfaced to the transport layer.
var (
	// ErrReconnectRequired means the stored token is expired or could not be
	// refreshed; the user must run the authorization flow again.
	ErrReconnectRequired = errors.New("service: account reconnect required")
	ErrNotConnected      = errors.New("service: no active platform connection")
	ErrPostNotFound      = errors.New("service: post not found")
	ErrAlreadyPublished  = errors.New("service: post already published")
	ErrEmptyContent      = errors.New("service: post content is empty")
	ErrContentTooLong    = errors.New("service: post content exceeds platform limit")
	ErrInvalidState      = errors.New("service: authorization state invalid or expired")
	ErrMissingCode       = errors.New("service: authorization callback carried no code")
)

// CallbackInput captures the platform's redirect-callback query parameters.
// All fields are unauthenticated input.
type CallbackInput struct {
	Code        string
	State       string
	Error       string
	ErrorReason string
}

// CallbackResult tells the transport layer where to send the user after the
// connect flow finished. Declined is set when the platform reported a user
// denial or provider-side failure; no exchange was attempted in that case.
type CallbackResult struct {
	ReturnPath    string
	Declined      bool
	DeclineReason string
	AccountHandle string
}

// PublishOutcome reports a publish attempt. PlatformPostID is set as soon as
// the platform accepted the post, even when recording it locally failed
// afterwards (Persisted false); callers need the id for reconciliation.
type PublishOutcome struct {
	PlatformPostID string
	Persisted      bool
}

// SyncSummary accumulates per-post results of one account's engagement sync.
type SyncSummary struct {
	Synced int
	Failed int
	Errors []string
}

// AccountFailure identifies one account that failed during a batch sync.
type AccountFailure struct {
	AccountID string
	UserID    int64
	Reason    string
}

// BatchSummary reports a sync pass over all active accounts. One account's
// failure never aborts the others.
type BatchSummary struct {
	Accounts    int
	PostsSynced int
	Failures    []AccountFailure
}
