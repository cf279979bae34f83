package app

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"diceroom/internal/domain"
)

var (
	usernameStrip = regexp.MustCompile(`[^A-Za-z0-9 _'.\-]`)
	hexColor      = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// defaultColors is the palette new sessions draw from.
var defaultColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

// RegisterResult is the structured outcome of a username registration.
type RegisterResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	// Previous is the name the session held before, Anonymous included.
	Previous string `json:"-"`
	// Changed is false for idempotent re-registration of the same name.
	Changed bool `json:"-"`
}

// ColorResult is the structured outcome of a color change.
type ColorResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Color   string `json:"color,omitempty"`
	Changed bool   `json:"-"`
}

// Registry owns every session-scoped identity mapping: the active set,
// the colors, and the username table. No other component writes these.
type Registry struct {
	mu     sync.RWMutex
	active map[domain.SessionID]struct{}
	colors map[domain.SessionID]string
	names  usernameTable
}

func NewRegistry() *Registry {
	return &Registry{
		active: make(map[domain.SessionID]struct{}),
		colors: make(map[domain.SessionID]string),
		names:  newUsernameTable(),
	}
}

// Connect marks a session active and assigns a color if it has none.
// Connecting twice is harmless.
func (r *Registry) Connect(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[sid]; ok {
		return
	}
	r.active[sid] = struct{}{}
	if _, ok := r.colors[sid]; !ok {
		r.colors[sid] = defaultColors[rand.Intn(len(defaultColors))]
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session connected")
}

// Disconnect removes the session and releases its username through the
// same compare-and-delete path registration uses. All per-session
// mappings, color included, are dropped. Returns the released username
// (empty if the session was anonymous or unknown).
func (r *Registry) Disconnect(sid domain.SessionID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[sid]; !ok {
		return ""
	}
	delete(r.active, sid)
	delete(r.colors, sid)

	released := ""
	if name, ok := r.names.name(sid); ok {
		if r.names.release(sid, name) {
			released = name
		} else {
			// A name the session supposedly held but does not own
			// points at a bug elsewhere, not a disconnect race.
			log.Error().Str("module", "app.registry").Str("sid", string(sid)).Str("name", name).Msg("session held a name it did not own")
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("released", released).Msg("session disconnected")
	return released
}

// IsActive reports whether sid is currently connected.
func (r *Registry) IsActive(sid domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[sid]
	return ok
}

// Username resolves the display name for sid, Anonymous when unset.
func (r *Registry) Username(sid domain.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names.name(sid); ok {
		return name
	}
	return domain.AnonymousName
}

// Color returns the session's color, empty when unknown.
func (r *Registry) Color(sid domain.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.colors[sid]
}

// RegisterUsername claims a display name for sid. Anonymous always
// succeeds and is exempt from uniqueness; for any other name at most one
// active session may hold it.
func (r *Registry) RegisterUsername(sid domain.SessionID, raw string) RegisterResult {
	name := SanitizeUsername(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := domain.AnonymousName
	if n, ok := r.names.name(sid); ok {
		previous = n
	}

	if name == domain.AnonymousName {
		if prev, ok := r.names.name(sid); ok {
			if !r.names.release(sid, prev) {
				log.Error().Str("module", "app.registry").Str("sid", string(sid)).Str("name", prev).Msg("session held a name it did not own")
			}
		}
		return RegisterResult{
			Success:  true,
			Message:  "You are now Anonymous",
			Username: name,
			Previous: previous,
			Changed:  previous != domain.AnonymousName,
		}
	}

	if owner, taken := r.names.owner(name); taken {
		if owner == sid {
			// Idempotent reaffirm.
			return RegisterResult{Success: true, Message: fmt.Sprintf("You are already %s", name), Username: name, Previous: previous}
		}
		if _, ownerActive := r.active[owner]; ownerActive {
			return RegisterResult{
				Success:  false,
				Message:  fmt.Sprintf("The name %q is already taken", name),
				Previous: previous,
			}
		}
		// Owner is gone but the mapping survived: disconnect cleanup
		// missed it. Heal and continue; logged distinctly from a
		// normal release so the two failure origins stay tellable.
		log.Warn().Str("module", "app.registry").Str("name", name).Str("stale_owner", string(owner)).Msg("healing orphaned username mapping")
		r.names.evict(name)
	}

	r.names.claim(sid, name)
	return RegisterResult{
		Success:  true,
		Message:  fmt.Sprintf("You are now known as %s", name),
		Username: name,
		Previous: previous,
		Changed:  true,
	}
}

// SetUserColor validates and stores a #RGB or #RRGGBB color for sid.
// Setting the color it already has is a no-op success.
func (r *Registry) SetUserColor(sid domain.SessionID, color string) ColorResult {
	color = strings.TrimSpace(color)
	if !hexColor.MatchString(color) {
		return ColorResult{Success: false, Message: "Color must be a #RGB or #RRGGBB hex string"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.colors[sid] == color {
		return ColorResult{Success: true, Message: "Color unchanged", Color: color}
	}
	r.colors[sid] = color
	return ColorResult{Success: true, Message: "Color updated", Color: color, Changed: true}
}

// Users derives the active user list: connected sessions resolved
// through the name and color maps with Anonymous/empty fallbacks. It is
// a view, not stored state.
func (r *Registry) Users() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.active))
	for sid := range r.active {
		name := domain.AnonymousName
		if n, ok := r.names.name(sid); ok {
			name = n
		}
		out = append(out, domain.User{SessionID: sid, Username: name, Color: r.colors[sid]})
	}
	return out
}

// SanitizeUsername trims, strips everything outside [A-Za-z0-9 _'.-],
// truncates to the maximum length, and collapses an empty result to
// Anonymous.
func SanitizeUsername(raw string) string {
	name := strings.TrimSpace(raw)
	name = usernameStrip.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if len(name) > domain.MaxUsernameLen {
		name = name[:domain.MaxUsernameLen]
	}
	if name == "" {
		return domain.AnonymousName
	}
	return name
}
