package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dkeye/Jukebox/internal/adapters/signal"
	"github.com/dkeye/Jukebox/internal/app/orch"
	"github.com/dkeye/Jukebox/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "JukeboxSessions"
	clientTokenKey = "ct"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware gives every browser a stable id kept in the
// session cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// BearerAuth rejects requests without "Authorization: Bearer <token>".
func BearerAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := &API{Orch: o}
	r.GET("/healthz", api.Health)

	store := cookie.NewStore([]byte(cfg.Secret))
	web := r.Group("/")
	web.Use(sessions.Sessions(sessionName, store))
	web.Use(ClientTokenMiddleware())

	web.Static("/static", cfg.StaticPath)
	web.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	web.GET("/api/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	rooms := r.Group("/api/rooms")
	rooms.Use(BearerAuth(cfg.Token))
	rooms.GET("", api.ListRooms)
	rooms.DELETE("/:room", api.EvictRoom)
	rooms.GET("/:room/queue", api.Queue)
	rooms.POST("/:room/play", api.Play)
	rooms.POST("/:room/skip", api.Skip)
	rooms.POST("/:room/stop", api.Stop)
	rooms.POST("/:room/pause", api.Pause)
	rooms.POST("/:room/resume", api.Resume)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
