package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/regatta-live/regata-server/internal/auth"
	"github.com/regatta-live/regata-server/internal/config"
	"github.com/regatta-live/regata-server/internal/core"
	"github.com/regatta-live/regata-server/internal/store"
)

// NewServer builds the HTTP server: REST API, health check and the
// websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	raceHandlers := NewRaceHandlers(hub, st, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.GET("/races", raceHandlers.List)
	api.GET("/races/:id", raceHandlers.Get)

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, logger))
	authed.POST("/races", raceHandlers.Create)
	authed.POST("/races/:id/activate", raceHandlers.Activate)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
