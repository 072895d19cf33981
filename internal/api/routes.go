package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wikimedia/labs-tools-shorturls/internal/handler"
)

// SetupRoutes configures all API routes. Static routes take priority over
// the :domain parameter, so /api.json and /healthz never shadow a domain.
func SetupRoutes(router *gin.Engine, h *handler.StatsHandler) {
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/api.json", h.Index)
	router.GET("/chart.json", h.Chart)
	router.GET("/:domain/api.json", h.Domain)
	router.GET("/:domain/chart.json", h.DomainChart)
}
