// Package adapters owns the transport endpoints: the websocket push
// channel and the registry that fans server payloads out to it.
package adapters

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"diceroom/internal/core"
	"diceroom/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Hub maps live sessions to their push connections. A second connection
// for the same session replaces the first; stale readers get closed.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.SessionID]core.PushConnection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.SessionID]core.PushConnection)}
}

// Register binds conn to sid, closing any previous connection.
func (h *Hub) Register(sid domain.SessionID, conn core.PushConnection) {
	h.mu.Lock()
	prev := h.conns[sid]
	h.conns[sid] = conn
	h.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	log.Info().Str("module", "adapters.hub").Str("sid", string(sid)).Msg("push connection registered")
}

// Unregister drops conn if it is still the one bound to sid. A newer
// connection that replaced it is left alone. The return reports whether
// sid is left without any push connection, so the caller knows when the
// session itself is over rather than one of its sockets.
func (h *Hub) Unregister(sid domain.SessionID, conn core.PushConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.conns[sid]
	if !ok {
		return true
	}
	if cur != conn {
		return false
	}
	delete(h.conns, sid)
	return true
}

// Connected reports whether sid has a live push connection.
func (h *Hub) Connected(sid domain.SessionID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[sid]
	return ok
}

// BroadcastJSON marshals v once and pushes it to every connection.
// A connection that cannot keep up is dropped; a slow consumer must not
// stall the table for everyone else.
func (h *Hub) BroadcastJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.hub").Msg("broadcast marshal")
		return
	}

	h.mu.RLock()
	conns := make(map[domain.SessionID]core.PushConnection, len(h.conns))
	for sid, c := range h.conns {
		conns[sid] = c
	}
	h.mu.RUnlock()

	for sid, c := range conns {
		if err := c.TrySend(core.Frame(data)); err != nil {
			log.Warn().Str("module", "adapters.hub").Str("sid", string(sid)).Msg("dropping slow push connection")
			h.Unregister(sid, c)
			c.Close()
		}
	}
}

// SendJSON pushes v to a single session, if connected.
func (h *Hub) SendJSON(sid domain.SessionID, v any) {
	h.mu.RLock()
	c, ok := h.conns[sid]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.hub").Msg("send marshal")
		return
	}
	if err := c.TrySend(core.Frame(data)); err != nil {
		h.Unregister(sid, c)
		c.Close()
	}
}
