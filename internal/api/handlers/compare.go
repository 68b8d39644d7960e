package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/compare"
	"github.com/viewdesk/viewdesk/internal/core/console"
)

type CompareHandler struct {
	console *console.Service
}

func NewCompareHandler(svc *console.Service) *CompareHandler {
	return &CompareHandler{console: svc}
}

func (h *CompareHandler) Summary(c *gin.Context) {
	id := h.console.SelectedViewID()
	if id == "" {
		respondError(c, console.ErrNoSelection)
		return
	}

	summaries, err := h.console.Compare().Summaries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewId": id, "summaries": summaries})
}

func (h *CompareHandler) WithCurrent(c *gin.Context) {
	i, err := indexParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	id := h.console.SelectedViewID()
	if id == "" {
		respondError(c, console.ErrNoSelection)
		return
	}

	result, err := h.console.Compare().CompareWithCurrent(c.Request.Context(), id, i)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Versions compares two selections given as "current" or a history index.
func (h *CompareHandler) Versions(c *gin.Context) {
	a, err := compare.ParseSelection(c.Query("a"))
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := compare.ParseSelection(c.Query("b"))
	if err != nil {
		respondError(c, err)
		return
	}
	id := h.console.SelectedViewID()
	if id == "" {
		respondError(c, console.ErrNoSelection)
		return
	}

	result, err := h.console.Compare().CompareVersions(c.Request.Context(), id, a, b)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
