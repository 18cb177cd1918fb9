package domain

import "time"

// PlatformThreads is the only platform currently supported.
const PlatformThreads = "threads"

// SocialAccount is the persisted token record for one (user, platform) pair.
// AccessToken always holds the most recently issued token for the account;
// only the connect/refresh paths may mutate it.
type SocialAccount struct {
	ID                int64
	UserID            int64
	Platform          string
	AccountID         string
	AccountHandle     string
	ProfilePictureURL string
	AccessToken       string
	// TokenExpiresAt is nil during the short-lived-token window, in which
	// case the token is treated as non-expiring.
	TokenExpiresAt *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RefreshEligible reports whether a long-lived token has been issued for the
// account. Short-lived tokens cannot be refreshed, only upgraded.
func (a SocialAccount) RefreshEligible() bool {
	return a.TokenExpiresAt != nil
}

// Expired reports whether the token's absolute expiry has passed.
func (a SocialAccount) Expired(now time.Time) bool {
	return a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(now)
}

// ExpiresWithin reports whether the token expires inside the lookahead
// window. Always false for tokens without a recorded expiry.
func (a SocialAccount) ExpiresWithin(now time.Time, window time.Duration) bool {
	return a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(now.Add(window))
}
