// Package domain contains entity without logic, just meta-data
package domain

const (
	// AnonymousName is the display name every session starts with.
	// It is exempt from the uniqueness rules that apply to chosen names.
	AnonymousName = "Anonymous"

	MaxUsernameLen = 60
)

// SessionID is the opaque token the connection layer assigns to one live
// client connection. The core never mints these, only consumes them.
type SessionID string

// User is the read-only view of one connected session as shown in the
// user list: cosmetic identity only, no transport fields.
type User struct {
	SessionID SessionID `json:"sessionId"`
	Username  string    `json:"username"`
	Color     string    `json:"color,omitempty"`
}
