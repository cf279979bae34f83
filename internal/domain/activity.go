package domain

import "time"

// ActivityType discriminates the chat-log entry kinds.
type ActivityType string

const (
	ActivityRoll          ActivityType = "ROLL"
	ActivitySystemMessage ActivityType = "SYSTEM_MESSAGE"
	ActivityChatMessage   ActivityType = "CHAT_MESSAGE"
)

// Roll is one resolved dice expression.
type Roll struct {
	ID          string `json:"id"`
	Expression  string `json:"expression"`
	Interpreted string `json:"interpretedExpression"`
	Rolls       []int  `json:"rolls"`
	Total       int    `json:"total"`
}

// Activity is one entry in the append-only chat/event log.
// Ordering is insertion order, most-recent-last.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	User      *User        `json:"user,omitempty"`
	Message   string       `json:"message,omitempty"`
	Roll      *Roll        `json:"roll,omitempty"`
}
