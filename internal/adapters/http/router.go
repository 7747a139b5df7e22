package http

import (
	"net/http"

	"github.com/dkeye/wsstream/internal/config"
	"github.com/dkeye/wsstream/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StatsSource is the read-only view of a session the router exposes.
type StatsSource interface {
	Stats() stream.Stats
}

func SetupRouter(cfg *config.Config, src StatsSource) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/stream", func(c *gin.Context) {
		c.JSON(http.StatusOK, src.Stats())
	})

	log.Info().Str("module", "adapters.http").Str("addr", cfg.StatusAddr).Msg("router setup")
	return r
}
