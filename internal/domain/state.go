package domain

import "time"

// ConnectState is the ephemeral value carried through one authorization
// round-trip. The opaque state parameter sent to the platform is a random
// key into the state store; the return path itself never leaves the backend.
type ConnectState struct {
	State      string    `json:"state"`
	UserID     int64     `json:"user_id"`
	ReturnPath string    `json:"return_path"`
	CreatedAt  time.Time `json:"created_at"`
}
