package domain

import "time"

// CanvasEventType discriminates dice lifecycle transitions.
type CanvasEventType string

const (
	EventSpawn     CanvasEventType = "spawn"
	EventThrow     CanvasEventType = "throw"
	EventSettle    CanvasEventType = "settle"
	EventHighlight CanvasEventType = "highlight"
	EventRemove    CanvasEventType = "remove"
	EventClear     CanvasEventType = "clear"
)

// EventData is the optional payload attached to a canvas event.
type EventData struct {
	Position     *Vec3    `json:"position,omitempty"`
	Velocity     *Vec3    `json:"velocity,omitempty"`
	Result       *int     `json:"result,omitempty"`
	DiceType     DiceType `json:"diceType,omitempty"`
	IsVirtual    bool     `json:"isVirtual,omitempty"`
	VirtualRolls []int    `json:"virtualRolls,omitempty"`
	Color        string   `json:"color,omitempty"`
}

// CanvasEvent is an immutable, timestamped record of one dice state
// transition. Events are append-only and never mutated after creation.
type CanvasEvent struct {
	ID        string          `json:"id"`
	Type      CanvasEventType `json:"type"`
	Room      RoomName        `json:"room"`
	DiceID    string          `json:"diceId,omitempty"`
	SessionID SessionID       `json:"userId"`
	Timestamp time.Time       `json:"timestamp"`
	Data      *EventData      `json:"data,omitempty"`
}
