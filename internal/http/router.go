// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"freightmatch/internal/http/handlers"
	"freightmatch/internal/http/middleware"
	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/modules/matching"
)

func NewRouter(
	loadStore *load.Store,
	carrierStore *carrier.Store,
	geoIndex *carrier.GeoIndex,
	rankingService *matching.Service,
	committer *matching.Committer,
	log *logrus.Logger,
) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))

	loadHandler := handlers.NewLoadHandler(loadStore, log)
	r.POST("/api/loads", loadHandler.Create)
	r.GET("/api/loads/:id", loadHandler.Get)
	r.POST("/api/loads/:id/status", loadHandler.Transition)

	matchHandler := handlers.NewMatchHandler(loadStore, carrierStore, rankingService, committer)
	r.GET("/api/loads/:id/carriers", matchHandler.RankCarriers)
	r.GET("/api/carriers/:id/loads", matchHandler.RankLoads)
	r.POST("/api/loads/:id/auto_match", matchHandler.AutoMatch)

	carrierHandler := handlers.NewCarrierHandler(carrierStore, geoIndex, log)
	r.GET("/api/carriers/:id", carrierHandler.Get)
	r.POST("/api/carriers/:id/location", carrierHandler.UpdateLocation)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
