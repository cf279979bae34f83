package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"diceroom/internal/app"
	"diceroom/internal/domain"
)

// Handlers exposes the mutation API. Validation failures come back as
// structured results with a success flag, never transport-level faults;
// only malformed JSON earns a 400.
type Handlers struct {
	Svc *app.Service
}

func sessionID(c *gin.Context) domain.SessionID {
	return domain.SessionID(c.GetString("client_token"))
}

func badPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "bad payload"})
}

func (h *Handlers) Roll(c *gin.Context) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	c.JSON(http.StatusOK, h.Svc.RollDice(sessionID(c), req.Expression))
}

func (h *Handlers) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	activity, err := h.Svc.SendChat(sessionID(c), req.Message)
	if err != nil {
		if errors.Is(err, app.ErrEmptyMessage) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Message cannot be empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "activity": activity})
}

func (h *Handlers) Username(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	c.JSON(http.StatusOK, h.Svc.RegisterUsername(sessionID(c), req.Username))
}

func (h *Handlers) Color(c *gin.Context) {
	var req struct {
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	c.JSON(http.StatusOK, h.Svc.SetUserColor(sessionID(c), req.Color))
}

func (h *Handlers) ThrowDice(c *gin.Context) {
	var req struct {
		Velocity domain.Vec3 `json:"velocity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	ok := h.Svc.ThrowDice(sessionID(c), c.Param("id"), req.Velocity)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *Handlers) SettleDice(c *gin.Context) {
	var req struct {
		Position domain.Vec3 `json:"position"`
		Result   int         `json:"result"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	ok := h.Svc.SettleDice(sessionID(c), c.Param("id"), req.Position, req.Result)
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *Handlers) ToggleDiceHighlight(c *gin.Context) {
	var req struct {
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	hl := h.Svc.ToggleDiceHighlight(sessionID(c), c.Param("id"), req.Color)
	if hl == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "highlighted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "highlighted": true, "highlight": hl})
}

func (h *Handlers) ToggleActivityHighlight(c *gin.Context) {
	var req struct {
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	hls := h.Svc.ToggleActivityHighlight(sessionID(c), c.Param("id"), req.Color)
	c.JSON(http.StatusOK, gin.H{"success": true, "highlighted": len(hls) > 0, "highlights": hls})
}

func (h *Handlers) CameraFocus(c *gin.Context) {
	req := h.Svc.RequestCameraFocus(sessionID(c), c.Param("id"))
	if req == nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "unknown dice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "focus": req})
}

func (h *Handlers) ActivityScroll(c *gin.Context) {
	req := h.Svc.RequestActivityScroll(sessionID(c), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "scroll": req})
}

func (h *Handlers) ClearTable(c *gin.Context) {
	h.Svc.ClearTable(sessionID(c))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.Svc.Users()})
}

func (h *Handlers) Activities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activities": h.Svc.Activities()})
}

func (h *Handlers) Canvas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": h.Svc.CanvasEvents(), "activeDice": h.Svc.ActiveDice()})
}

func (h *Handlers) Highlights(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"highlights": h.Svc.ActiveHighlights()})
}
