package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"diceroom/internal/app"
	"diceroom/internal/core"
	"diceroom/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsPushConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsPushConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrBackpressure
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsPushConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// PushController serves the persistent per-connection push channel.
// Mutations travel over the request/response API; the socket only pushes
// state out, answers pings, and marks the session live for its lifetime.
type PushController struct {
	Service   *app.Service
	Hub       *Hub
	ReadLimit int64
}

func NewPushController(svc *app.Service, hub *Hub, readLimit int64) *PushController {
	return &PushController{Service: svc, Hub: hub, ReadLimit: readLimit}
}

// initialState is the explicitly-served history snapshot a client gets on
// connect; live events only flow from publication onward.
type initialState struct {
	Type       string               `json:"type"`
	Activities []domain.Activity    `json:"activities"`
	Users      []domain.User        `json:"users"`
	Events     []domain.CanvasEvent `json:"canvasEvents"`
	Dice       []domain.CanvasDice  `json:"activeDice"`
	Highlights []domain.Highlight   `json:"highlights"`
}

// Handle upgrades the request and binds the connection to the cookie
// session.
func (ctl *PushController) Handle(ctx context.Context, c *gin.Context) {
	sid := domain.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("new push connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsPushConn{
		conn: ws,
		send: make(chan core.Frame, 256),
	}
	ctl.Hub.Register(sid, conn)
	ctl.Service.Connect(sid)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)

	ctl.sendInitialState(sid)
}

func (ctl *PushController) sendInitialState(sid domain.SessionID) {
	ctl.Hub.SendJSON(sid, initialState{
		Type:       "init",
		Activities: ctl.Service.Activities(),
		Users:      ctl.Service.Users(),
		Events:     ctl.Service.CanvasEvents(),
		Dice:       ctl.Service.ActiveDice(),
		Highlights: ctl.Service.ActiveHighlights(),
	})
}

func (ctl *PushController) writePump(ctx context.Context, c *wsPushConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *PushController) readPump(ctx context.Context, cancel context.CancelFunc, sid domain.SessionID, c *wsPushConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		last := ctl.Hub.Unregister(sid, c)
		c.Close()
		// A refresh or second tab replaces this connection in the hub;
		// only the last socket for the session ends the session itself.
		if last {
			ctl.Service.Disconnect(sid)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleInbound(sid, c, data)
		}
	}
}

func (ctl *PushController) handleInbound(sid domain.SessionID, c *wsPushConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("bad json on push channel")
		return
	}
	switch env.Type {
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
	case "resync":
		ctl.sendInitialState(sid)
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unexpected message on push channel")
	}
}

func (ctl *PushController) sendJSON(c *wsPushConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
