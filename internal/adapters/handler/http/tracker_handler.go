package http

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/projection"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
)

const maxEventBodyBytes = 64 << 10

type Engine interface {
	State() domain.TrackerState
	Today() domain.Date
	Subscribe() (<-chan domain.TrackerState, func())
	Process(ctx context.Context, event services.Event) error
}

type TrackerHandler struct {
	engine   Engine
	mapper   *projection.Mapper
	onResume func()
}

// NewTrackerHandler serves the engine state as UI snapshots. onResume, when
// set, runs each time a client opens the stream.
func NewTrackerHandler(engine Engine, mapper *projection.Mapper, onResume func()) *TrackerHandler {
	return &TrackerHandler{
		engine:   engine,
		mapper:   mapper,
		onResume: onResume,
	}
}

func (h *TrackerHandler) RegisterRoutes(router *gin.RouterGroup) {
	tracker := router.Group("/tracker")
	{
		tracker.GET("", h.Snapshot)
		tracker.GET("/stream", h.Stream)
		tracker.POST("/events", h.SubmitEvent)
	}
}

func (h *TrackerHandler) snapshot(state domain.TrackerState) projection.TrackerUIState {
	return h.mapper.Map(state, h.engine.Today())
}

func (h *TrackerHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.snapshot(h.engine.State()))
}

// Stream sends a "state" server-sent event with every new snapshot until the
// client goes away or the engine stops.
func (h *TrackerHandler) Stream(c *gin.Context) {
	states, cancel := h.engine.Subscribe()
	defer cancel()

	if h.onResume != nil {
		h.onResume()
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-states:
			if !ok {
				return false
			}
			c.SSEvent("state", h.snapshot(state))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// SubmitEvent applies one tracker event and answers with the snapshot right
// after it. Persistence happens later, so the answer is 202.
func (h *TrackerHandler) SubmitEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := services.DecodeEvent(body)
	if err == nil {
		err = h.engine.Process(c.Request.Context(), event)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownEvent), errors.Is(err, domain.ErrInvalidEvent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[HTTP] Failed to process event: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		}
		return
	}

	c.JSON(http.StatusAccepted, h.snapshot(h.engine.State()))
}
