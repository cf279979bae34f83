// Package results keeps the bidirectional index between canvas dice and
// the chat activities that produced them.
package results

import (
	"sync"

	"github.com/rs/zerolog/log"

	"diceroom/internal/domain"
)

// DiceState is the per-die metadata held alongside the index.
type DiceState struct {
	CanvasID   string
	ActivityID string
	Room       domain.RoomName
	RollID     string
	Username   string
	SessionID  domain.SessionID
	DiceType   domain.DiceType
	IsVirtual  bool
	Result     int
	Position   domain.Vec3
	Status     domain.DiceStatus
}

// Manager owns the canvasId to activityId cross-reference table.
// Both directions are maintained together; lookups never fail loudly.
type Manager struct {
	mu         sync.RWMutex
	byCanvas   map[string]DiceState
	byActivity map[string][]string
}

func NewManager() *Manager {
	return &Manager{
		byCanvas:   make(map[string]DiceState),
		byActivity: make(map[string][]string),
	}
}

// Register inserts forward and reverse entries for one die. A canvasId is
// expected to be unique per die instance for the lifetime of the process;
// re-registering one replaces the previous entry entirely.
func (m *Manager) Register(state DiceState) {
	if state.Status == "" {
		state.Status = domain.DiceActive
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.byCanvas[state.CanvasID]; ok {
		log.Warn().Str("module", "results").Str("canvas", state.CanvasID).Msg("canvas id re-registered, replacing")
		m.dropReverseLocked(prev.ActivityID, state.CanvasID)
	}
	m.byCanvas[state.CanvasID] = state
	m.byActivity[state.ActivityID] = append(m.byActivity[state.ActivityID], state.CanvasID)
}

// DiceState returns the metadata for one die. Missing ids are a miss,
// not an error.
func (m *Manager) DiceState(canvasID string) (DiceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byCanvas[canvasID]
	return s, ok
}

// DiceForActivity resolves the reverse index: every die a single activity
// produced, in registration order. Empty slice on miss.
func (m *Manager) DiceForActivity(activityID string) []DiceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byActivity[activityID]
	out := make([]DiceState, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.byCanvas[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// UpdateStatus moves a die through active -> settled -> highlighted ->
// settled. Unknown canvas ids are ignored.
func (m *Manager) UpdateStatus(canvasID string, status domain.DiceStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byCanvas[canvasID]
	if !ok {
		return false
	}
	s.Status = status
	m.byCanvas[canvasID] = s
	return true
}

// UpdatePosition records where a die came to rest.
func (m *Manager) UpdatePosition(canvasID string, position domain.Vec3) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byCanvas[canvasID]
	if !ok {
		return false
	}
	s.Position = position
	m.byCanvas[canvasID] = s
	return true
}

// Remove drops one die from both directions of the index.
func (m *Manager) Remove(canvasID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byCanvas[canvasID]
	if !ok {
		return false
	}
	delete(m.byCanvas, canvasID)
	m.dropReverseLocked(s.ActivityID, canvasID)
	return true
}

// Clear drops every index entry. Session-reset boundary only.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCanvas = make(map[string]DiceState)
	m.byActivity = make(map[string][]string)
}

func (m *Manager) dropReverseLocked(activityID, canvasID string) {
	ids := m.byActivity[activityID]
	for i, id := range ids {
		if id == canvasID {
			m.byActivity[activityID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byActivity[activityID]) == 0 {
		delete(m.byActivity, activityID)
	}
}
