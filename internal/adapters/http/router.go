package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/avail-chat/signaling/internal/adapters/signal"
	"github.com/avail-chat/signaling/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctrl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	// Room occupancy for the platform's admin dashboard.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Orch.Rooms.Rooms())
	})

	return r
}
