package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

const maxStatsRangeDays = 366

type StatsHandler struct {
	svc   *services.StatsService
	clock *domain.DayClock
}

func NewStatsHandler(svc *services.StatsService, clock *domain.DayClock) *StatsHandler {
	return &StatsHandler{svc: svc, clock: clock}
}

func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats/weekly", h.GetWeeklyStats)
}

// GetWeeklyStats defaults to the seven days ending on the perceived day.
func (h *StatsHandler) GetWeeklyStats(c *gin.Context) {
	endDate := h.clock.PerceivedDay()
	if s := c.Query("end_date"); s != "" {
		parsed, err := domain.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date format, expected YYYY-MM-DD"})
			return
		}
		endDate = parsed
	}

	startDate := endDate.AddDays(-6)
	if s := c.Query("start_date"); s != "" {
		parsed, err := domain.ParseDate(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date format, expected YYYY-MM-DD"})
			return
		}
		startDate = parsed
	}

	if startDate.After(endDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date cannot be after end_date"})
		return
	}
	if startDate.DaysUntil(endDate) > maxStatsRangeDays {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date range too large, max 1 year allowed"})
		return
	}

	stats, err := h.svc.GetWeeklyStats(c.Request.Context(), domain.StatsInput{StartDate: startDate, EndDate: endDate})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
