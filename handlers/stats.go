package handlers

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/cyberpaste/cyberpaste/services"
)

// StatsHandler serves the active paste count. The count is cached until the
// lifecycle service signals that the paste set changed; a failing backend
// degrades to a reported zero instead of erroring the page that asked.
type StatsHandler struct {
	service *services.PasteService

	mu     sync.Mutex
	cached int64
	valid  bool
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(service *services.PasteService) *StatsHandler {
	return &StatsHandler{service: service}
}

// Invalidate drops the cached count. Wired to the service's change hook.
func (h *StatsHandler) Invalidate() {
	h.mu.Lock()
	h.valid = false
	h.mu.Unlock()
}

// ActiveCount handles GET /api/stats.
func (h *StatsHandler) ActiveCount(c *gin.Context) {
	h.mu.Lock()
	if h.valid {
		count := h.cached
		h.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"active_pastes": count})
		return
	}
	h.mu.Unlock()

	count, err := h.service.ActivePasteCount(c.Request.Context())
	if err != nil {
		log.Printf("[WARN] active paste count unavailable: %v", err)
		c.JSON(http.StatusOK, gin.H{"active_pastes": 0})
		return
	}

	h.mu.Lock()
	h.cached = count
	h.valid = true
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"active_pastes": count})
}
