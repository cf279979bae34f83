// Package highlight manages the ephemeral cross-reference markers between
// canvas dice and chat activities, plus the one-shot camera-focus and
// scroll intents they trigger.
package highlight

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diceroom/internal/canvas"
	"diceroom/internal/core"
	"diceroom/internal/domain"
	"diceroom/internal/results"
)

// Permanent disables auto-expiry for a highlight.
const Permanent = time.Duration(-1)

// DefaultColor is used when the caller does not pick one.
const DefaultColor = "#FFD700"

// Options tune one highlight request.
type Options struct {
	Color     string
	SessionID domain.SessionID
	Username  string
	// Duration overrides the configured TTL; Permanent means no expiry.
	Duration time.Duration
}

// ChangeType discriminates highlight lifecycle notifications.
type ChangeType string

const (
	Added   ChangeType = "added"
	Removed ChangeType = "removed"
)

// Change is published on every highlight creation or removal.
type Change struct {
	Type      ChangeType       `json:"type"`
	Highlight domain.Highlight `json:"highlight"`
}

// FocusRequest is a one-shot camera intent. It carries no persisted state.
type FocusRequest struct {
	CanvasID  string           `json:"canvasId"`
	Position  domain.Vec3      `json:"position"`
	SessionID domain.SessionID `json:"sessionId,omitempty"`
}

// ScrollRequest is a one-shot activity-log scroll intent.
type ScrollRequest struct {
	ActivityID string           `json:"activityId"`
	SessionID  domain.SessionID `json:"sessionId,omitempty"`
}

// Config bounds highlight lifetime and table size.
type Config struct {
	Duration      time.Duration
	MaxHighlights int
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{Duration: 30 * time.Second, MaxHighlights: 10, SweepInterval: time.Minute}
}

type entry struct {
	highlight domain.Highlight
	expiresAt time.Time
	permanent bool
}

func (e *entry) expired(now time.Time) bool {
	return !e.permanent && !now.Before(e.expiresAt)
}

// Manager enforces at most one active highlight per die and expires
// highlights through a time-ordered index swept periodically, with lazy
// filtering on reads so short TTLs take effect between sweeps.
type Manager struct {
	cfg     Config
	results *results.Manager
	canvas  *canvas.Manager

	mu       sync.Mutex
	byID     map[string]*entry
	byCanvas map[string]string // canvasID -> highlightID, single active per die
	expiry   expiryHeap

	changes *core.Topic[Change]
	focus   *core.Topic[FocusRequest]
	scroll  *core.Topic[ScrollRequest]

	now func() time.Time
}

func NewManager(cfg Config, res *results.Manager, canv *canvas.Manager) *Manager {
	if cfg.Duration <= 0 {
		cfg = DefaultConfig()
	}
	return &Manager{
		cfg:      cfg,
		results:  res,
		canvas:   canv,
		byID:     make(map[string]*entry),
		byCanvas: make(map[string]string),
		changes:  core.NewTopic[Change](),
		focus:    core.NewTopic[FocusRequest](),
		scroll:   core.NewTopic[ScrollRequest](),
		now:      time.Now,
	}
}

// SubscribeChanges registers a handler for highlight add/remove events.
func (m *Manager) SubscribeChanges(h func(Change)) func() { return m.changes.Subscribe(h) }

// SubscribeFocus registers a handler for camera-focus intents.
func (m *Manager) SubscribeFocus(h func(FocusRequest)) func() { return m.focus.Subscribe(h) }

// SubscribeScroll registers a handler for activity-scroll intents.
func (m *Manager) SubscribeScroll(h func(ScrollRequest)) func() { return m.scroll.Subscribe(h) }

// HighlightDice marks one die. The die must be known to the result index;
// unknown dice fail softly with nil. Any previous highlight for the same
// die is replaced, never stacked.
func (m *Manager) HighlightDice(canvasID string, opts Options) *domain.Highlight {
	state, ok := m.results.DiceState(canvasID)
	if !ok {
		log.Debug().Str("module", "highlight").Str("canvas", canvasID).Msg("highlight for unknown dice ignored")
		return nil
	}
	h := m.create(state, domain.HighlightFromCanvas, opts)
	return &h
}

// HighlightActivity fans out to every die the activity produced. The empty
// slice (not nil) signals an activity with no associated dice.
func (m *Manager) HighlightActivity(activityID string, opts Options) []domain.Highlight {
	states := m.results.DiceForActivity(activityID)
	out := make([]domain.Highlight, 0, len(states))
	for _, state := range states {
		out = append(out, m.create(state, domain.HighlightFromActivity, opts))
	}
	return out
}

// RemoveHighlight is idempotent and reports whether a removal happened.
func (m *Manager) RemoveHighlight(id string) bool {
	m.mu.Lock()
	e, ok := m.byID[id]
	if ok {
		m.dropLocked(e)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.afterRemoval(e)
	return true
}

// ToggleDiceHighlight flips the highlight state of one die. The "off"
// shape is nil. A highlight already past its TTL counts as absent, so
// toggling it turns highlighting on again.
func (m *Manager) ToggleDiceHighlight(canvasID string, opts Options) *domain.Highlight {
	now := m.now()

	m.mu.Lock()
	var e *entry
	if id, ok := m.byCanvas[canvasID]; ok {
		e = m.byID[id]
		m.dropLocked(e)
	}
	m.mu.Unlock()

	if e != nil {
		m.afterRemoval(e)
		if !e.expired(now) {
			return nil
		}
	}
	return m.HighlightDice(canvasID, opts)
}

// ToggleActivityHighlight flips every highlight under one activity. The
// "off" shape is the empty slice. Highlights past their TTL count as
// absent; an activity whose highlights all expired toggles back on.
func (m *Manager) ToggleActivityHighlight(activityID string, opts Options) []domain.Highlight {
	states := m.results.DiceForActivity(activityID)
	now := m.now()

	m.mu.Lock()
	var live, stale []*entry
	for _, s := range states {
		if id, ok := m.byCanvas[s.CanvasID]; ok {
			e := m.byID[id]
			m.dropLocked(e)
			if e.expired(now) {
				stale = append(stale, e)
			} else {
				live = append(live, e)
			}
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		m.afterRemoval(e)
	}
	if len(live) > 0 {
		for _, e := range live {
			m.afterRemoval(e)
		}
		return []domain.Highlight{}
	}
	return m.HighlightActivity(activityID, opts)
}

// ActiveHighlights lists live highlights, reaping anything already past
// its expiry so callers never observe a dead one.
func (m *Manager) ActiveHighlights() []domain.Highlight {
	now := m.now()

	m.mu.Lock()
	expired := m.reapLocked(now)
	out := make([]domain.Highlight, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, e.highlight)
	}
	m.mu.Unlock()

	for _, e := range expired {
		m.afterRemoval(e)
	}
	return out
}

// HighlightForDice returns the active highlight on one die, if any.
func (m *Manager) HighlightForDice(canvasID string) (domain.Highlight, bool) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCanvas[canvasID]
	if !ok {
		return domain.Highlight{}, false
	}
	e := m.byID[id]
	if e.expired(now) {
		return domain.Highlight{}, false
	}
	return e.highlight, true
}

// RequestCameraFocus emits a one-shot camera intent for a known die,
// using its latest table position.
func (m *Manager) RequestCameraFocus(canvasID string, sid domain.SessionID) *FocusRequest {
	state, ok := m.results.DiceState(canvasID)
	if !ok {
		return nil
	}
	pos := state.Position
	if m.canvas != nil {
		if d, ok := m.canvas.Dice(state.Room, canvasID); ok {
			pos = d.Position
		}
	}
	req := FocusRequest{CanvasID: canvasID, Position: pos, SessionID: sid}
	m.focus.Publish(req)
	return &req
}

// RequestActivityScroll emits a one-shot scroll intent for the activity
// pane. No state is kept.
func (m *Manager) RequestActivityScroll(activityID string, sid domain.SessionID) ScrollRequest {
	req := ScrollRequest{ActivityID: activityID, SessionID: sid}
	m.scroll.Publish(req)
	return req
}

// Run drives the periodic sweep until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep reclaims expired highlights, drops anything older than twice the
// configured TTL (abandoned permanent highlights included), and enforces
// the max-outstanding bound by evicting oldest-first.
func (m *Manager) Sweep() {
	now := m.now()
	maxAge := 2 * m.cfg.Duration

	m.mu.Lock()
	removed := m.reapLocked(now)
	for _, e := range m.byID {
		if now.Sub(e.highlight.Timestamp) > maxAge {
			m.dropLocked(e)
			removed = append(removed, e)
		}
	}
	for len(m.byID) > m.cfg.MaxHighlights {
		oldest := m.oldestLocked()
		if oldest == nil {
			break
		}
		m.dropLocked(oldest)
		removed = append(removed, oldest)
	}
	m.mu.Unlock()

	if len(removed) > 0 {
		log.Info().Str("module", "highlight").Int("removed", len(removed)).Msg("sweep evicted highlights")
	}
	for _, e := range removed {
		m.afterRemoval(e)
	}
}

func (m *Manager) create(state results.DiceState, origin domain.HighlightOrigin, opts Options) domain.Highlight {
	color := opts.Color
	if color == "" {
		color = DefaultColor
	}
	duration := opts.Duration
	if duration == 0 {
		duration = m.cfg.Duration
	}
	now := m.now()

	h := domain.Highlight{
		ID:         uuid.NewString(),
		Origin:     origin,
		CanvasID:   state.CanvasID,
		ActivityID: state.ActivityID,
		Color:      color,
		IsActive:   true,
		Timestamp:  now,
		SessionID:  opts.SessionID,
		Username:   opts.Username,
	}
	e := &entry{highlight: h, permanent: duration == Permanent}
	if !e.permanent {
		e.expiresAt = now.Add(duration)
	}

	m.mu.Lock()
	var replaced *entry
	if prevID, ok := m.byCanvas[state.CanvasID]; ok {
		replaced = m.byID[prevID]
		m.dropLocked(replaced)
	}
	m.byID[h.ID] = e
	m.byCanvas[state.CanvasID] = h.ID
	if !e.permanent {
		m.expiry.push(expiryItem{at: e.expiresAt, id: h.ID})
	}
	m.mu.Unlock()

	if replaced != nil {
		m.changes.Publish(Change{Type: Removed, Highlight: inactive(replaced.highlight)})
	}

	m.results.UpdateStatus(state.CanvasID, domain.DiceHighlighted)
	if m.canvas != nil {
		m.canvas.HighlightDice(state.Room, opts.SessionID, state.CanvasID, color)
	}
	m.changes.Publish(Change{Type: Added, Highlight: h})
	return h
}

// dropLocked unlinks an entry from the live indexes. Heap items are left
// behind and skipped when they surface.
func (m *Manager) dropLocked(e *entry) {
	delete(m.byID, e.highlight.ID)
	if m.byCanvas[e.highlight.CanvasID] == e.highlight.ID {
		delete(m.byCanvas, e.highlight.CanvasID)
	}
}

// reapLocked pops every expired heap item and removes the entries that
// are still live. Stale items for already-removed highlights are skipped.
func (m *Manager) reapLocked(now time.Time) []*entry {
	var removed []*entry
	for {
		item, ok := m.expiry.peek()
		if !ok || item.at.After(now) {
			break
		}
		m.expiry.pop()
		e, live := m.byID[item.id]
		if !live || !e.expired(now) {
			continue
		}
		m.dropLocked(e)
		removed = append(removed, e)
	}
	return removed
}

func (m *Manager) oldestLocked() *entry {
	var oldest *entry
	for _, e := range m.byID {
		if oldest == nil || e.highlight.Timestamp.Before(oldest.highlight.Timestamp) {
			oldest = e
		}
	}
	return oldest
}

// afterRemoval restores the dice status and notifies listeners. The
// status only moves back to settled if it is still highlighted, so a
// status that has since moved on is left alone.
func (m *Manager) afterRemoval(e *entry) {
	if state, ok := m.results.DiceState(e.highlight.CanvasID); ok && state.Status == domain.DiceHighlighted {
		m.results.UpdateStatus(e.highlight.CanvasID, domain.DiceSettled)
	}
	m.changes.Publish(Change{Type: Removed, Highlight: inactive(e.highlight)})
}

func inactive(h domain.Highlight) domain.Highlight {
	h.IsActive = false
	return h
}
