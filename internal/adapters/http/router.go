package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"diceroom/internal/adapters"
	"diceroom/internal/app"
	"diceroom/internal/config"
)

const sessionKey = "sid"

// ClientTokenMiddleware assigns every browser an opaque session token,
// stored in the signed cookie session. The token is the session identity
// for both the mutation API and the push channel.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(sessionKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(sessionKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc *app.Service, hub *adapters.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("DiceroomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &Handlers{Svc: svc}
	push := adapters.NewPushController(svc, hub, cfg.ReadLimit)

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		push.Handle(ctx, c)
	})

	api.POST("/roll", h.Roll)
	api.POST("/chat", h.Chat)
	api.POST("/username", h.Username)
	api.POST("/color", h.Color)

	api.POST("/dice/:id/throw", h.ThrowDice)
	api.POST("/dice/:id/settle", h.SettleDice)
	api.POST("/dice/:id/highlight", h.ToggleDiceHighlight)
	api.POST("/dice/:id/focus", h.CameraFocus)

	api.POST("/activity/:id/highlight", h.ToggleActivityHighlight)
	api.POST("/activity/:id/scroll", h.ActivityScroll)

	api.POST("/table/clear", h.ClearTable)

	api.GET("/users", h.Users)
	api.GET("/activities", h.Activities)
	api.GET("/canvas", h.Canvas)
	api.GET("/highlights", h.Highlights)

	return r
}
