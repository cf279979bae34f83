package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diceroom/internal/domain"
)

const room = domain.DefaultRoom

func spawnOne(m *Manager, id string) domain.CanvasEvent {
	return m.SpawnDice(room, "s1", domain.CanvasDice{
		ID:       id,
		Type:     6,
		Position: domain.Vec3{X: 1, Y: 4, Z: 0},
		Result:   3,
	})
}

func TestSpawnRegistersActiveDice(t *testing.T) {
	m := NewManager()
	ev := spawnOne(m, "dice-1")

	assert.Equal(t, domain.EventSpawn, ev.Type)
	assert.Equal(t, "dice-1", ev.DiceID)
	require.NotNil(t, ev.Data)
	assert.Equal(t, domain.DiceType(6), ev.Data.DiceType)

	active := m.ActiveDice(room)
	require.Len(t, active, 1)
	assert.Equal(t, "dice-1", active[0].ID)
	assert.Len(t, m.Events(room), 1)
}

func TestSettleUpdatesDice(t *testing.T) {
	m := NewManager()
	spawnOne(m, "dice-1")

	pos := domain.Vec3{X: 2, Y: 0, Z: 2}
	ev := m.SettleDice(room, "s1", "dice-1", pos, 5)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventSettle, ev.Type)

	d, ok := m.Dice(room, "dice-1")
	require.True(t, ok)
	assert.Equal(t, pos, d.Position)
	assert.Equal(t, 5, d.Result)
}

func TestSettleUnknownDiceIsNoOp(t *testing.T) {
	m := NewManager()
	ev := m.SettleDice(room, "s1", "ghost", domain.Vec3{}, 1)
	assert.Nil(t, ev)
	assert.Empty(t, m.Events(room))
}

func TestThrowAndHighlightUnknownDiceAreNoOps(t *testing.T) {
	m := NewManager()
	assert.Nil(t, m.ThrowDice(room, "s1", "ghost", domain.Vec3{Y: -1}))
	assert.Nil(t, m.HighlightDice(room, "s1", "ghost", "#ff0000"))
	assert.Nil(t, m.RemoveDice(room, "s1", "ghost"))
}

func TestRemoveDice(t *testing.T) {
	m := NewManager()
	spawnOne(m, "dice-1")

	ev := m.RemoveDice(room, "s1", "dice-1")
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventRemove, ev.Type)
	assert.Empty(t, m.ActiveDice(room))

	// Second removal is a no-op.
	assert.Nil(t, m.RemoveDice(room, "s1", "dice-1"))
}

func TestClearRoom(t *testing.T) {
	m := NewManager()
	spawnOne(m, "dice-1")
	spawnOne(m, "dice-2")

	ev := m.ClearRoom(room, "s1")
	assert.Equal(t, domain.EventClear, ev.Type)
	assert.Empty(t, m.ActiveDice(room))

	// History survives a clear: two spawns plus the clear itself.
	assert.Len(t, m.Events(room), 3)

	// Settling a cleared die is a late request, not an error.
	assert.Nil(t, m.SettleDice(room, "s1", "dice-1", domain.Vec3{}, 2))
}

func TestSubscribeReceivesOnlySuccessfulTransitions(t *testing.T) {
	m := NewManager()
	var got []domain.CanvasEvent
	unsub := m.Subscribe(func(ev domain.CanvasEvent) { got = append(got, ev) })

	spawnOne(m, "dice-1")
	m.SettleDice(room, "s1", "dice-1", domain.Vec3{}, 4)
	m.SettleDice(room, "s1", "ghost", domain.Vec3{}, 4)

	require.Len(t, got, 2)
	assert.Equal(t, domain.EventSpawn, got[0].Type)
	assert.Equal(t, domain.EventSettle, got[1].Type)

	unsub()
	m.ClearRoom(room, "s1")
	assert.Len(t, got, 2)
}

func TestRoomsAreIndependent(t *testing.T) {
	m := NewManager()
	spawnOne(m, "dice-1")
	m.SpawnDice("other", "s2", domain.CanvasDice{ID: "dice-9", Type: 20, Result: 17})

	assert.Len(t, m.ActiveDice(room), 1)
	assert.Len(t, m.ActiveDice("other"), 1)
	assert.Nil(t, m.SettleDice("other", "s2", "dice-1", domain.Vec3{}, 1))
}
