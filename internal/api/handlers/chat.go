package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/chat"
	"github.com/viewdesk/viewdesk/internal/core/profile"
)

type ChatHandler struct {
	chat     *chat.Service
	profiles *profile.Service
}

func NewChatHandler(chatService *chat.Service, profiles *profile.Service) *ChatHandler {
	return &ChatHandler{chat: chatService, profiles: profiles}
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type contextRequest struct {
	View map[string]interface{} `json:"view"`
}

func (h *ChatHandler) Transcript(c *gin.Context) {
	t, err := h.chat.Transcript(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Send asks the assistant using the OpenAI key of the active profile. A
// failed completion still returns the transcript, which records the error.
func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.profiles.CurrentSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.chat.Send(c.Request.Context(), settings, req.Message)
	if err != nil {
		var ce *chat.CompletionError
		if errors.As(err, &ce) {
			c.JSON(http.StatusBadGateway, gin.H{"error": ce.Error(), "transcript": t})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *ChatHandler) Clear(c *gin.Context) {
	if err := h.chat.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) Context(c *gin.Context) {
	view, err := h.chat.Context(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view})
}

// LoadContext sets the view under discussion. Without a view in the body
// the view selected in the console is used.
func (h *ChatHandler) LoadContext(c *gin.Context) {
	var req contextRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	view := req.View
	if view == nil {
		var err error
		if view, err = h.chat.LoadContextFromConsole(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	} else if err := h.chat.LoadContext(c.Request.Context(), view); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view})
}

func (h *ChatHandler) ClearContext(c *gin.Context) {
	if err := h.chat.ClearContext(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Apply hands the JSON of the last assistant reply to the console draft.
func (h *ChatHandler) Apply(c *gin.Context) {
	doc, err := h.chat.ApplyLastDraft(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": doc, "message": "Draft handed to the console."})
}
