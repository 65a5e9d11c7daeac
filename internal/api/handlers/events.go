package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/takeyourtokenapp/tyt.app/internal/database/models"
	"github.com/takeyourtokenapp/tyt.app/internal/service"
	"go.uber.org/zap"
)

// EventsHandler serves the append-only event outbox to off-chain indexers.
type EventsHandler struct {
	registryService *service.RegistryService
	logger          *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(registryService *service.RegistryService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		registryService: registryService,
		logger:          logger,
	}
}

// List returns outbox events after a cursor
// @Summary List events
// @Description Poll the event stream with an id cursor
// @Produce json
// @Param after query int false "Return events with id greater than this"
// @Param limit query int false "Maximum number of events (default 100)"
// @Success 200 {array} models.Event
// @Router /api/v1/events [get]
func (h *EventsHandler) List(c *gin.Context) {
	afterID, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after cursor"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	events, err := h.registryService.Events(afterID, limit)
	if err != nil {
		h.logger.Error("Failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	if events == nil {
		events = []*models.Event{}
	}

	c.JSON(http.StatusOK, events)
}
