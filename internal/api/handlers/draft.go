package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/core/draft"
)

type DraftHandler struct {
	console *console.Service
}

func NewDraftHandler(svc *console.Service) *DraftHandler {
	return &DraftHandler{console: svc}
}

type fieldUpdateRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type moveRequest struct {
	Direction draft.Direction `json:"direction" binding:"required"`
}

func (h *DraftHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.console.Draft())
}

func (h *DraftHandler) Replace(c *gin.Context) {
	var d draft.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.console.ReplaceDraft(d))
}

// Request shows the body that create or update would send.
func (h *DraftHandler) Request(c *gin.Context) {
	c.JSON(http.StatusOK, h.console.RequestPreview())
}

func (h *DraftHandler) AddFilter(c *gin.Context) {
	h.edit(c, http.StatusCreated, func(d *draft.Draft) error {
		d.AddFilter()
		return nil
	})
}

func (h *DraftHandler) UpdateFilter(c *gin.Context) {
	h.updateField(c, (*draft.Draft).SetFilterField)
}

func (h *DraftHandler) RemoveFilter(c *gin.Context) {
	h.editAt(c, (*draft.Draft).RemoveFilter)
}

func (h *DraftHandler) MoveFilter(c *gin.Context) {
	h.move(c, (*draft.Draft).MoveFilter)
}

func (h *DraftHandler) AddFacet(c *gin.Context) {
	h.edit(c, http.StatusCreated, func(d *draft.Draft) error {
		d.AddFacet()
		return nil
	})
}

func (h *DraftHandler) UpdateFacet(c *gin.Context) {
	h.updateField(c, (*draft.Draft).SetFacetField)
}

func (h *DraftHandler) RemoveFacet(c *gin.Context) {
	h.editAt(c, (*draft.Draft).RemoveFacet)
}

func (h *DraftHandler) MoveFacet(c *gin.Context) {
	h.move(c, (*draft.Draft).MoveFacet)
}

// ConsumeChat loads a draft handed over by the chat assistant, if any.
func (h *DraftHandler) ConsumeChat(c *gin.Context) {
	applied, err := h.console.ConsumeChatDraft(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "draft": h.console.Draft()})
}

func (h *DraftHandler) updateField(c *gin.Context, set func(*draft.Draft, int, string, string) error) {
	i, err := indexParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.edit(c, http.StatusOK, func(d *draft.Draft) error {
		return set(d, i, req.Field, req.Value)
	})
}

func (h *DraftHandler) editAt(c *gin.Context, fn func(*draft.Draft, int) error) {
	i, err := indexParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	h.edit(c, http.StatusOK, func(d *draft.Draft) error {
		return fn(d, i)
	})
}

func (h *DraftHandler) move(c *gin.Context, fn func(*draft.Draft, int, draft.Direction) error) {
	i, err := indexParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.edit(c, http.StatusOK, func(d *draft.Draft) error {
		return fn(d, i, req.Direction)
	})
}

func (h *DraftHandler) edit(c *gin.Context, status int, fn func(*draft.Draft) error) {
	d, err := h.console.EditDraft(fn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, d)
}
