package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diceroom/internal/domain"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Alice", "Alice"},
		{"  Alice  ", "Alice"},
		{"O'Brien-Smith. Jr_2", "O'Brien-Smith. Jr_2"},
		{"<script>Bob</script>", "scriptBobscript"},
		{"☃☃☃", domain.AnonymousName},
		{"", domain.AnonymousName},
		{"   ", domain.AnonymousName},
		{strings.Repeat("a", 80), strings.Repeat("a", 60)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeUsername(tt.raw), "raw %q", tt.raw)
	}
}

func TestUsernameUniqueness(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	r.Connect("b")

	require.True(t, r.RegisterUsername("a", "Bob").Success)

	res := r.RegisterUsername("b", "Bob")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, domain.AnonymousName, r.Username("b"))

	// After the owner disconnects the name is free again.
	r.Disconnect("a")
	assert.True(t, r.RegisterUsername("b", "Bob").Success)
	assert.Equal(t, "Bob", r.Username("b"))
}

func TestAnonymousExemptFromUniqueness(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	r.Connect("b")
	assert.True(t, r.RegisterUsername("a", "Anonymous").Success)
	assert.True(t, r.RegisterUsername("b", "Anonymous").Success)
	assert.Equal(t, domain.AnonymousName, r.Username("a"))
	assert.Equal(t, domain.AnonymousName, r.Username("b"))
}

func TestReaffirmIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	require.True(t, r.RegisterUsername("a", "Bob").Success)

	res := r.RegisterUsername("a", "Bob")
	assert.True(t, res.Success)
	assert.False(t, res.Changed)
}

func TestRenameReleasesOldName(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	r.Connect("b")
	require.True(t, r.RegisterUsername("a", "Bob").Success)
	require.True(t, r.RegisterUsername("a", "Carol").Success)

	assert.True(t, r.RegisterUsername("b", "Bob").Success)
	assert.Equal(t, "Carol", r.Username("a"))
}

func TestRegisteringAnonymousReleasesName(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	r.Connect("b")
	require.True(t, r.RegisterUsername("a", "Bob").Success)

	res := r.RegisterUsername("a", "Anonymous")
	assert.True(t, res.Success)
	assert.True(t, res.Changed)
	assert.Equal(t, "Bob", res.Previous)

	assert.True(t, r.RegisterUsername("b", "Bob").Success)
}

func TestCompareAndDeleteRejectsWrongOwner(t *testing.T) {
	tbl := newUsernameTable()
	tbl.claim("a", "Bob")

	assert.False(t, tbl.release("b", "Bob"))
	owner, ok := tbl.owner("Bob")
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("a"), owner)

	assert.True(t, tbl.release("a", "Bob"))
	_, ok = tbl.owner("Bob")
	assert.False(t, ok)
}

func TestOrphanedUsernameIsHealed(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	require.True(t, r.RegisterUsername("a", "Bob").Success)

	// Simulate a disconnect whose cleanup never released the name.
	r.mu.Lock()
	delete(r.active, "a")
	r.mu.Unlock()

	r.Connect("b")
	res := r.RegisterUsername("b", "Bob")
	assert.True(t, res.Success)
	assert.Equal(t, "Bob", r.Username("b"))
}

func TestSetUserColor(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	initial := r.Color("a")
	require.NotEmpty(t, initial, "connect assigns a default color")

	res := r.SetUserColor("a", "#ZZZZZZ")
	assert.False(t, res.Success)
	assert.Equal(t, initial, r.Color("a"), "invalid color must not alter the stored one")

	assert.True(t, r.SetUserColor("a", "#abc").Success)
	assert.Equal(t, "#abc", r.Color("a"))
	assert.True(t, r.SetUserColor("a", "#A1B2C3").Success)

	unchanged := r.SetUserColor("a", "#A1B2C3")
	assert.True(t, unchanged.Success)
	assert.False(t, unchanged.Changed)
}

func TestColorSurvivesRenameButNotDisconnect(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	require.True(t, r.SetUserColor("a", "#123456").Success)

	r.RegisterUsername("a", "Bob")
	r.RegisterUsername("a", "Carol")
	assert.Equal(t, "#123456", r.Color("a"))

	r.Disconnect("a")
	assert.Empty(t, r.Color("a"))
}

func TestUsersView(t *testing.T) {
	r := NewRegistry()
	r.Connect("a")
	r.Connect("b")
	r.RegisterUsername("a", "Bob")

	users := r.Users()
	require.Len(t, users, 2)
	byID := make(map[domain.SessionID]domain.User)
	for _, u := range users {
		byID[u.SessionID] = u
	}
	assert.Equal(t, "Bob", byID["a"].Username)
	assert.Equal(t, domain.AnonymousName, byID["b"].Username)
	assert.NotEmpty(t, byID["b"].Color)

	r.Disconnect("b")
	assert.Len(t, r.Users(), 1)
}
