package domain

import "time"

// HighlightOrigin says which side of the cross-reference started it.
type HighlightOrigin string

const (
	HighlightFromCanvas   HighlightOrigin = "canvas"
	HighlightFromActivity HighlightOrigin = "activity"
)

// Highlight is an ephemeral marker linking a canvas die to the activity
// that produced it. It expires on its own unless marked permanent.
type Highlight struct {
	ID         string          `json:"id"`
	Origin     HighlightOrigin `json:"type"`
	CanvasID   string          `json:"canvasId"`
	ActivityID string          `json:"activityId"`
	Color      string          `json:"color"`
	IsActive   bool            `json:"isActive"`
	Timestamp  time.Time       `json:"timestamp"`
	SessionID  SessionID       `json:"sessionId,omitempty"`
	Username   string          `json:"userId,omitempty"`
}
