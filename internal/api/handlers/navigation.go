package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
)

type NavigationHandler struct {
	console *console.Service
}

func NewNavigationHandler(svc *console.Service) *NavigationHandler {
	return &NavigationHandler{console: svc}
}

type navigateRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *NavigationHandler) Get(c *gin.Context) {
	h.respond(c, true)
}

func (h *NavigationHandler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.console.Navigate(c.Request.Context(), req.URL); err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, true)
}

func (h *NavigationHandler) Back(c *gin.Context) {
	moved, err := h.console.Back(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, moved)
}

func (h *NavigationHandler) Forward(c *gin.Context) {
	moved, err := h.console.Forward(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, moved)
}

func (h *NavigationHandler) respond(c *gin.Context, moved bool) {
	state := h.console.State()
	c.JSON(http.StatusOK, gin.H{
		"url":            h.console.URL(),
		"moved":          moved,
		"selectedViewId": h.console.SelectedViewID(),
		"canGoBack":      state.CanGoBack,
		"canGoForward":   state.CanGoForward,
	})
}
