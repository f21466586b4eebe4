package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wurlus/suibets/internal/registry"
	"github.com/wurlus/suibets/internal/service"
	"github.com/wurlus/suibets/internal/sports"
)

// EventHandler serves the sport and event listing endpoints.
type EventHandler struct {
	events  *registry.Registry
	settled service.EventStore
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events *registry.Registry, settled service.EventStore) *EventHandler {
	return &EventHandler{events: events, settled: settled}
}

// Sports godoc
// GET /api/sports
func (h *EventHandler) Sports(c *gin.Context) {
	type sportTag struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	tags := make([]sportTag, 0, len(sports.SportNames))
	for _, id := range []int{
		sports.SportFootball, sports.SportBasketball, sports.SportTennis,
		sports.SportHockey, sports.SportBaseball,
	} {
		tags = append(tags, sportTag{ID: id, Name: sports.SportNames[id]})
	}
	respondSuccess(c, http.StatusOK, tags)
}

// Events godoc
// GET /api/events?sportId=1&isLive=true
// Listing endpoints always answer 200: upstream failures degrade to the
// snapshot or an empty list, never to a 5xx.
func (h *EventHandler) Events(c *gin.Context) {
	var sportIDs []int
	if raw := c.Query("sportId"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			sportIDs = append(sportIDs, id)
		}
	}

	var events []sports.RawEvent
	if c.Query("isLive") == "true" {
		events = h.events.GetLive(c.Request.Context(), sportIDs)
	} else {
		events = h.events.GetUpcoming(c.Request.Context(), sportIDs)
	}
	if events == nil {
		events = []sports.RawEvent{}
	}
	respondSuccess(c, http.StatusOK, events)
}

// Results godoc
// GET /api/events/results?period=today|week|month
func (h *EventHandler) Results(c *gin.Context) {
	now := time.Now().UTC()
	var since time.Time
	switch c.DefaultQuery("period", "today") {
	case "week":
		since = now.AddDate(0, 0, -7)
	case "month":
		since = now.AddDate(0, -1, 0)
	default:
		since = now.Truncate(24 * time.Hour)
	}

	results, err := h.settled.ListSince(c.Request.Context(), since)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, results)
}
