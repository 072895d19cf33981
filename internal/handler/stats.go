// Package handler contains the gin handlers for the stats endpoints.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikimedia/labs-tools-shorturls/internal/domain"
	"github.com/wikimedia/labs-tools-shorturls/internal/logger"
	"github.com/wikimedia/labs-tools-shorturls/internal/stats"
)

// StatsHandler serves aggregation and time-series data.
type StatsHandler struct {
	reader  *stats.Reader
	builder *stats.Builder
	log     logger.Logger
}

// NewStatsHandler creates a StatsHandler with the given dependencies.
func NewStatsHandler(reader *stats.Reader, builder *stats.Builder, log logger.Logger) *StatsHandler {
	return &StatsHandler{
		reader:  reader,
		builder: builder,
		log:     log,
	}
}

// Index returns the latest snapshot's full aggregation.
func (h *StatsHandler) Index(c *gin.Context) {
	agg, err := h.reader.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// Domain returns one domain's entry from the latest snapshot.
func (h *StatsHandler) Domain(c *gin.Context) {
	dc, err := h.reader.Domain(c.Request.Context(), c.Param("domain"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dc)
}

// Chart returns the grand-total time series across all snapshots.
func (h *StatsHandler) Chart(c *gin.Context) {
	series, err := h.builder.Series(c.Request.Context(), "")
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// DomainChart returns the total series plus the requested domain's series.
// The domain series may be sparser than the total series; days the domain
// never appeared carry no point.
func (h *StatsHandler) DomainChart(c *gin.Context) {
	series, err := h.builder.Series(c.Request.Context(), c.Param("domain"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// respondError maps core errors onto user-visible responses.
func (h *StatsHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no data available yet"})
	case errors.Is(err, domain.ErrDomainNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown domain specified"})
	case errors.Is(err, domain.ErrSnapshotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
	default:
		h.log.Error("Request failed",
			logger.String("path", c.Request.URL.Path),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
