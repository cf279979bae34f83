// Package canvas owns the authoritative per-room dice state: an append-only
// event log plus the index of dice currently on the table.
package canvas

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diceroom/internal/core"
	"diceroom/internal/domain"
)

// Manager records dice lifecycle transitions and fans them out to
// subscribers. Transitions for unknown dice ids are benign no-ops, never
// errors: disconnect and clear races legitimately produce late requests.
type Manager struct {
	mu     sync.RWMutex
	events map[domain.RoomName][]domain.CanvasEvent
	active map[domain.RoomName]map[string]domain.CanvasDice

	topic *core.Topic[domain.CanvasEvent]
	now   func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		events: make(map[domain.RoomName][]domain.CanvasEvent),
		active: make(map[domain.RoomName]map[string]domain.CanvasDice),
		topic:  core.NewTopic[domain.CanvasEvent](),
		now:    time.Now,
	}
}

// Subscribe registers a handler for every successful transition.
// Fan-out is unfiltered; selective sync is the consumer's concern.
func (m *Manager) Subscribe(handler func(domain.CanvasEvent)) func() {
	return m.topic.Subscribe(handler)
}

// SpawnDice registers dice as active in room and publishes a spawn event.
func (m *Manager) SpawnDice(room domain.RoomName, sid domain.SessionID, dice domain.CanvasDice) domain.CanvasEvent {
	result := dice.Result
	ev := domain.CanvasEvent{
		ID:        uuid.NewString(),
		Type:      domain.EventSpawn,
		Room:      room,
		DiceID:    dice.ID,
		SessionID: sid,
		Timestamp: m.now(),
		Data: &domain.EventData{
			Position:     &dice.Position,
			DiceType:     dice.Type,
			IsVirtual:    dice.IsVirtual,
			VirtualRolls: dice.VirtualRolls,
			Result:       &result,
		},
	}

	m.mu.Lock()
	if m.active[room] == nil {
		m.active[room] = make(map[string]domain.CanvasDice)
	}
	m.active[room][dice.ID] = dice
	m.events[room] = append(m.events[room], ev)
	m.mu.Unlock()

	m.topic.Publish(ev)
	return ev
}

// ThrowDice records a physics impulse for a known active die.
func (m *Manager) ThrowDice(room domain.RoomName, sid domain.SessionID, diceID string, velocity domain.Vec3) *domain.CanvasEvent {
	return m.transition(room, sid, diceID, domain.EventThrow, &domain.EventData{Velocity: &velocity}, nil)
}

// SettleDice records the final resting position and value for a known
// active die. Returns nil without publishing if diceID is untracked.
func (m *Manager) SettleDice(room domain.RoomName, sid domain.SessionID, diceID string, position domain.Vec3, result int) *domain.CanvasEvent {
	data := &domain.EventData{Position: &position, Result: &result}
	return m.transition(room, sid, diceID, domain.EventSettle, data, func(d *domain.CanvasDice) {
		d.Position = position
		d.Result = result
	})
}

// HighlightDice publishes a highlight event for a known active die.
func (m *Manager) HighlightDice(room domain.RoomName, sid domain.SessionID, diceID, color string) *domain.CanvasEvent {
	return m.transition(room, sid, diceID, domain.EventHighlight, &domain.EventData{Color: color}, nil)
}

// RemoveDice drops a die from the active set and publishes a remove event.
func (m *Manager) RemoveDice(room domain.RoomName, sid domain.SessionID, diceID string) *domain.CanvasEvent {
	m.mu.Lock()
	if _, ok := m.active[room][diceID]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.active[room], diceID)
	ev := domain.CanvasEvent{
		ID:        uuid.NewString(),
		Type:      domain.EventRemove,
		Room:      room,
		DiceID:    diceID,
		SessionID: sid,
		Timestamp: m.now(),
	}
	m.events[room] = append(m.events[room], ev)
	m.mu.Unlock()

	m.topic.Publish(ev)
	return &ev
}

// ClearRoom drops every active die in room and publishes a clear event.
// The event log itself is preserved; clears are part of the history.
func (m *Manager) ClearRoom(room domain.RoomName, sid domain.SessionID) domain.CanvasEvent {
	ev := domain.CanvasEvent{
		ID:        uuid.NewString(),
		Type:      domain.EventClear,
		Room:      room,
		SessionID: sid,
		Timestamp: m.now(),
	}

	m.mu.Lock()
	cleared := len(m.active[room])
	delete(m.active, room)
	m.events[room] = append(m.events[room], ev)
	m.mu.Unlock()

	log.Info().Str("module", "canvas").Str("room", string(room)).Int("cleared", cleared).Msg("room cleared")
	m.topic.Publish(ev)
	return ev
}

// Events returns a copy of the room's event log in append order.
func (m *Manager) Events(room domain.RoomName) []domain.CanvasEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CanvasEvent, len(m.events[room]))
	copy(out, m.events[room])
	return out
}

// ActiveDice returns a snapshot of the dice currently on the table.
func (m *Manager) ActiveDice(room domain.RoomName) []domain.CanvasDice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CanvasDice, 0, len(m.active[room]))
	for _, d := range m.active[room] {
		out = append(out, d)
	}
	return out
}

// Dice looks up one active die.
func (m *Manager) Dice(room domain.RoomName, diceID string) (domain.CanvasDice, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.active[room][diceID]
	return d, ok
}

func (m *Manager) transition(room domain.RoomName, sid domain.SessionID, diceID string, typ domain.CanvasEventType, data *domain.EventData, update func(*domain.CanvasDice)) *domain.CanvasEvent {
	m.mu.Lock()
	dice, ok := m.active[room][diceID]
	if !ok {
		m.mu.Unlock()
		log.Debug().Str("module", "canvas").Str("room", string(room)).Str("dice", diceID).Str("type", string(typ)).Msg("transition for unknown dice ignored")
		return nil
	}
	if update != nil {
		update(&dice)
		m.active[room][diceID] = dice
	}
	ev := domain.CanvasEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Room:      room,
		DiceID:    diceID,
		SessionID: sid,
		Timestamp: m.now(),
		Data:      data,
	}
	m.events[room] = append(m.events[room], ev)
	m.mu.Unlock()

	m.topic.Publish(ev)
	return &ev
}
