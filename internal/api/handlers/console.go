package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
)

type ConsoleHandler struct {
	console *console.Service
}

func NewConsoleHandler(svc *console.Service) *ConsoleHandler {
	return &ConsoleHandler{console: svc}
}

type bootstrapRequest struct {
	URL string `json:"url"`
}

// Bootstrap runs the startup sequence. The optional url carries a deep link
// such as "/?viewId=42".
func (h *ConsoleHandler) Bootstrap(c *gin.Context) {
	var req bootstrapRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	state, err := h.console.Bootstrap(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *ConsoleHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.console.State())
}

func (h *ConsoleHandler) ClearNotices(c *gin.Context) {
	h.console.ClearNotices()
	c.Status(http.StatusNoContent)
}
