package highlight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diceroom/internal/canvas"
	"diceroom/internal/domain"
	"diceroom/internal/results"
)

type fixture struct {
	m   *Manager
	res *results.Manager
	clk *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	res := results.NewManager()
	m := NewManager(cfg, res, nil)
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m.now = func() time.Time { return clk.t }
	return &fixture{m: m, res: res, clk: clk}
}

func (f *fixture) registerDice(canvasID, activityID string) {
	f.res.Register(results.DiceState{
		CanvasID:   canvasID,
		ActivityID: activityID,
		Room:       domain.DefaultRoom,
		Username:   "Alice",
		SessionID:  "s1",
		DiceType:   6,
		Result:     4,
		Status:     domain.DiceSettled,
	})
}

func TestHighlightUnknownDiceReturnsNil(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Nil(t, f.m.HighlightDice("ghost", Options{}))
}

func TestSingleActiveHighlightPerDice(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	first := f.m.HighlightDice("c1", Options{Color: "#ff0000"})
	require.NotNil(t, first)
	second := f.m.HighlightDice("c1", Options{Color: "#00ff00"})
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	active := f.m.ActiveHighlights()
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, "#00ff00", active[0].Color)
}

func TestHighlightFlipsDiceStatus(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	h := f.m.HighlightDice("c1", Options{})
	require.NotNil(t, h)
	state, _ := f.res.DiceState("c1")
	assert.Equal(t, domain.DiceHighlighted, state.Status)

	assert.True(t, f.m.RemoveHighlight(h.ID))
	state, _ = f.res.DiceState("c1")
	assert.Equal(t, domain.DiceSettled, state.Status)

	// Removal does not clobber a status that has moved on.
	h = f.m.HighlightDice("c1", Options{})
	require.NotNil(t, h)
	f.res.UpdateStatus("c1", domain.DiceActive)
	f.m.RemoveHighlight(h.ID)
	state, _ = f.res.DiceState("c1")
	assert.Equal(t, domain.DiceActive, state.Status)
}

func TestRemoveHighlightIdempotent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")
	h := f.m.HighlightDice("c1", Options{})
	require.NotNil(t, h)

	assert.True(t, f.m.RemoveHighlight(h.ID))
	assert.False(t, f.m.RemoveHighlight(h.ID))
	assert.False(t, f.m.RemoveHighlight("ghost"))
}

func TestHighlightActivityFansOut(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")
	f.registerDice("c2", "a1")

	hs := f.m.HighlightActivity("a1", Options{})
	require.Len(t, hs, 2)
	for _, h := range hs {
		assert.Equal(t, domain.HighlightFromActivity, h.Origin)
		assert.Equal(t, "a1", h.ActivityID)
	}

	// No dice registered under the activity: empty slice, not nil.
	empty := f.m.HighlightActivity("a2", Options{})
	require.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestToggleDiceHighlight(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	on := f.m.ToggleDiceHighlight("c1", Options{})
	require.NotNil(t, on)
	assert.Len(t, f.m.ActiveHighlights(), 1)

	off := f.m.ToggleDiceHighlight("c1", Options{})
	assert.Nil(t, off)
	assert.Empty(t, f.m.ActiveHighlights())
}

func TestToggleActivityHighlight(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")
	f.registerDice("c2", "a1")

	on := f.m.ToggleActivityHighlight("a1", Options{})
	assert.Len(t, on, 2)

	off := f.m.ToggleActivityHighlight("a1", Options{})
	require.NotNil(t, off)
	assert.Empty(t, off)
	assert.Empty(t, f.m.ActiveHighlights())
}

func TestToggleAfterExpiryTurnsOn(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	first := f.m.ToggleDiceHighlight("c1", Options{Duration: 100 * time.Millisecond})
	require.NotNil(t, first)

	// Past its TTL the highlight counts as absent even before a sweep,
	// so the toggle flips back to on rather than acting as removal.
	f.clk.advance(150 * time.Millisecond)
	second := f.m.ToggleDiceHighlight("c1", Options{Duration: 100 * time.Millisecond})
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, f.m.ActiveHighlights(), 1)
}

func TestToggleActivityAfterExpiryTurnsOn(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")
	f.registerDice("c2", "a1")

	on := f.m.ToggleActivityHighlight("a1", Options{Duration: 100 * time.Millisecond})
	require.Len(t, on, 2)

	f.clk.advance(150 * time.Millisecond)
	again := f.m.ToggleActivityHighlight("a1", Options{Duration: 100 * time.Millisecond})
	require.Len(t, again, 2)
	assert.Len(t, f.m.ActiveHighlights(), 2)
}

func TestHighlightAutoExpiry(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	h := f.m.HighlightDice("c1", Options{Duration: 100 * time.Millisecond})
	require.NotNil(t, h)
	assert.Len(t, f.m.ActiveHighlights(), 1)

	f.clk.advance(150 * time.Millisecond)
	assert.Empty(t, f.m.ActiveHighlights())

	state, _ := f.res.DiceState("c1")
	assert.Equal(t, domain.DiceSettled, state.Status)
}

func TestPermanentHighlightSurvivesTTL(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	h := f.m.HighlightDice("c1", Options{Duration: Permanent})
	require.NotNil(t, h)

	f.clk.advance(45 * time.Second)
	f.m.Sweep()
	assert.Len(t, f.m.ActiveHighlights(), 1)

	// Past twice the configured TTL even permanent highlights are
	// reclaimed; abandoned markers must not accumulate forever.
	f.clk.advance(30 * time.Second)
	f.m.Sweep()
	assert.Empty(t, f.m.ActiveHighlights())
}

func TestSweepEnforcesMaxHighlights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHighlights = 2
	f := newFixture(t, cfg)
	for _, id := range []string{"c1", "c2", "c3"} {
		f.registerDice(id, "a1")
		f.m.HighlightDice(id, Options{})
		f.clk.advance(time.Second)
	}
	require.Len(t, f.m.ActiveHighlights(), 3)

	f.m.Sweep()
	active := f.m.ActiveHighlights()
	require.Len(t, active, 2)
	for _, h := range active {
		assert.NotEqual(t, "c1", h.CanvasID, "oldest highlight should be evicted first")
	}
}

func TestChangesPublished(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.registerDice("c1", "a1")

	var changes []Change
	unsub := f.m.SubscribeChanges(func(c Change) { changes = append(changes, c) })
	defer unsub()

	h := f.m.HighlightDice("c1", Options{})
	require.NotNil(t, h)
	f.m.RemoveHighlight(h.ID)

	require.Len(t, changes, 2)
	assert.Equal(t, Added, changes[0].Type)
	assert.True(t, changes[0].Highlight.IsActive)
	assert.Equal(t, Removed, changes[1].Type)
	assert.False(t, changes[1].Highlight.IsActive)
}

func TestCameraFocusUsesCanvasPosition(t *testing.T) {
	res := results.NewManager()
	canv := canvas.NewManager()
	m := NewManager(DefaultConfig(), res, canv)

	pos := domain.Vec3{X: 2, Y: 0, Z: 1}
	canv.SpawnDice(domain.DefaultRoom, "s1", domain.CanvasDice{ID: "c1", Type: 6, Position: pos, Result: 3})
	res.Register(results.DiceState{CanvasID: "c1", ActivityID: "a1", Room: domain.DefaultRoom})

	var got []FocusRequest
	unsub := m.SubscribeFocus(func(r FocusRequest) { got = append(got, r) })
	defer unsub()

	req := m.RequestCameraFocus("c1", "s1")
	require.NotNil(t, req)
	assert.Equal(t, pos, req.Position)
	require.Len(t, got, 1)

	assert.Nil(t, m.RequestCameraFocus("ghost", "s1"))
	assert.Len(t, got, 1)
}

func TestActivityScrollIsStateless(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	var got []ScrollRequest
	unsub := f.m.SubscribeScroll(func(r ScrollRequest) { got = append(got, r) })
	defer unsub()

	req := f.m.RequestActivityScroll("a1", "s1")
	assert.Equal(t, "a1", req.ActivityID)
	require.Len(t, got, 1)
	assert.Empty(t, f.m.ActiveHighlights())
}
