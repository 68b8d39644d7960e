package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/discover"
)

type ViewHandler struct {
	console *console.Service
}

func NewViewHandler(svc *console.Service) *ViewHandler {
	return &ViewHandler{console: svc}
}

func (h *ViewHandler) List(c *gin.Context) {
	views, err := h.console.LoadViews(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

// Select makes :id the selected view and loads it into the draft.
func (h *ViewHandler) Select(c *gin.Context) {
	if err := h.console.SelectView(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.console.State())
}

func (h *ViewHandler) Load(c *gin.Context) {
	if err := h.console.LoadSelectedView(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.console.State())
}

func (h *ViewHandler) Create(c *gin.Context) {
	resp, err := h.console.CreateView(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": resp})
}

// Update reports API failures with modal set, so the editor can keep the
// unsaved draft on screen.
func (h *ViewHandler) Update(c *gin.Context) {
	resp, err := h.console.UpdateView(c.Request.Context())
	if err != nil {
		if apiErr, ok := discover.AsAPIError(err); ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr, "modal": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": resp})
}

func (h *ViewHandler) Duplicate(c *gin.Context) {
	resp, err := h.console.DuplicateView(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": resp, "selectedViewId": h.console.SelectedViewID()})
}

func (h *ViewHandler) Delete(c *gin.Context) {
	if err := h.console.DeleteView(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted."})
}

func (h *ViewHandler) Results(c *gin.Context) {
	results, err := h.console.PreviewResults(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *ViewHandler) ResultsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.console.ResultsSummary())
}
