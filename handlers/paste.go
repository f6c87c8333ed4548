package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cyberpaste/cyberpaste/config"
	"github.com/cyberpaste/cyberpaste/models"
	"github.com/cyberpaste/cyberpaste/services"
	"github.com/cyberpaste/cyberpaste/utils"
)

// PasteHandler handles paste creation and retrieval.
type PasteHandler struct {
	service *services.PasteService
	config  *config.Config
}

// NewPasteHandler creates a new paste handler.
func NewPasteHandler(service *services.PasteService, config *config.Config) *PasteHandler {
	return &PasteHandler{
		service: service,
		config:  config,
	}
}

// CreatePasteRequest is the JSON body of POST /api/pastes.
type CreatePasteRequest struct {
	Tabs       []models.Tab `json:"tabs"`
	TTLSeconds int64        `json:"ttl_seconds"`
	Encrypted  bool         `json:"encrypted"`
}

// Helper: respondError sends a JSON error response
func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// Create handles POST /api/pastes.
func (h *PasteHandler) Create(c *gin.Context) {
	var req CreatePasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := h.service.CreatePaste(c.Request.Context(), req.Tabs, req.TTLSeconds, req.Encrypted)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[ERROR] create paste: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to create paste, please retry")
		return
	}

	if utils.IsDebugEnabled() {
		log.Printf("[DEBUG] created paste %s (tabs=%d ttl=%ds encrypted=%v)", id, len(req.Tabs), req.TTLSeconds, req.Encrypted)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":  id,
		"url": h.pasteURL(c, id),
	})
}

// Get handles GET /api/pastes/:id. The returned view count is the one from
// before this fetch; the stored counter already reflects it.
func (h *PasteHandler) Get(c *gin.Context) {
	id := c.Param("id")

	paste, err := h.service.GetPaste(c.Request.Context(), id)
	if err != nil {
		log.Printf("[ERROR] get paste %s: %v", id, err)
		respondError(c, http.StatusInternalServerError, "failed to retrieve paste, please retry")
		return
	}
	if paste == nil {
		respondError(c, http.StatusNotFound, "paste not found")
		return
	}

	c.JSON(http.StatusOK, paste)
}

// Raw handles GET /raw/:id, serving all tabs concatenated as plain text.
// Encrypted pastes are refused: the server only ever holds ciphertext.
func (h *PasteHandler) Raw(c *gin.Context) {
	id := c.Param("id")

	paste, err := h.service.GetPaste(c.Request.Context(), id)
	if err != nil {
		log.Printf("[ERROR] raw paste %s: %v", id, err)
		c.String(http.StatusInternalServerError, "failed to retrieve paste, please retry")
		return
	}
	if paste == nil {
		c.String(http.StatusNotFound, "paste not found")
		return
	}
	if paste.Encrypted {
		c.String(http.StatusForbidden, "This paste is encrypted and cannot be viewed in raw mode.")
		return
	}

	blocks := make([]string, 0, len(paste.Tabs))
	for _, tab := range paste.Tabs {
		name := tab.Name
		if name == "" {
			name = "Pasty"
		}
		blocks = append(blocks, fmt.Sprintf("--- %s (%s) ---\n\n%s", name, tab.Lang, tab.Content))
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, strings.Join(blocks, "\n\n"))
}

// pasteURL builds the shareable link for a paste id.
func (h *PasteHandler) pasteURL(c *gin.Context, id string) string {
	base := h.config.URL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	return fmt.Sprintf("%s/p/%s", strings.TrimRight(base, "/"), id)
}
