package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
)

type HistoryHandler struct {
	console *console.Service
}

func NewHistoryHandler(svc *console.Service) *HistoryHandler {
	return &HistoryHandler{console: svc}
}

func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.console.HistoryForSelected(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"viewId":  h.console.SelectedViewID(),
		"limit":   h.console.History().Limit(),
		"entries": entries,
	})
}

func (h *HistoryHandler) Restore(c *gin.Context) {
	i, err := indexParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	d, err := h.console.RestoreVersion(c.Request.Context(), i)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
