package http

import (
	"context"
	nethttp "net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/studyhall/server/internal/adapters/signal"
	"github.com/studyhall/server/internal/app/orch"
	"github.com/studyhall/server/internal/auth"
	"github.com/studyhall/server/internal/config"
	"github.com/studyhall/server/internal/core"
	"github.com/studyhall/server/internal/domain"
)

// NameCache drops a memoized display name after the user replica changes.
type NameCache interface {
	Forget(id domain.UserID)
}

type Deps struct {
	Orch     *orch.Orchestrator
	Verifier *auth.Verifier
	Users    core.UserStore
	Names    NameCache
	Limiter  *signal.RoomRateLimiter
	WS       signal.Options
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("StudyhallSessions", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{
			"status":   "ok",
			"sessions": deps.Orch.Registry.Count(),
			"channels": deps.Orch.Rooms.List(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	a := &authenticator{verifier: deps.Verifier, users: deps.Users, names: deps.Names}
	h := &chatHandlers{orch: deps.Orch}

	api := r.Group("/api")

	rooms := api.Group("/chat/rooms", a.requireToken())
	rooms.POST("", h.createRoom)
	rooms.GET("", h.listRooms)
	rooms.GET("/:id/messages", h.roomMessages)

	ctrl := signal.NewSignalWSController(deps.Orch, deps.Limiter, deps.WS)
	api.GET("/ws/chat", a.sessionUser(), func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Msg("ws chat endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
