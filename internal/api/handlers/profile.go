package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/core/profile"
)

const maxImportSize = 1 << 20

type ProfileHandler struct {
	profiles *profile.Service
	console  *console.Service
}

func NewProfileHandler(profiles *profile.Service, svc *console.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, console: svc}
}

func (h *ProfileHandler) List(c *gin.Context) {
	entries, err := h.profiles.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range entries {
		entries[i].Profile = entries[i].Profile.Redacted()
	}
	c.JSON(http.StatusOK, gin.H{"profiles": entries})
}

func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "profile": p.Redacted()})
}

func (h *ProfileHandler) Current(c *gin.Context) {
	settings, err := h.profiles.CurrentSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings.Redacted(), "ready": settings.Ready()})
}

func (h *ProfileHandler) Create(c *gin.Context) {
	h.save(c, "", http.StatusCreated)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	h.save(c, c.Param("id"), http.StatusOK)
}

func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.profiles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.reload(c)
	c.Status(http.StatusNoContent)
}

func (h *ProfileHandler) Activate(c *gin.Context) {
	if err := h.profiles.Activate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	h.reload(c)
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "active": true})
}

// Export downloads every profile, secrets included.
func (h *ProfileHandler) Export(c *gin.Context) {
	doc, err := h.profiles.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="viewdesk-profiles.json"`)
	c.JSON(http.StatusOK, doc)
}

// Import replaces all profiles with the uploaded document. Replacing
// existing profiles needs ?confirm=true.
func (h *ProfileHandler) Import(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	confirm, _ := strconv.ParseBool(c.Query("confirm"))

	result, err := h.profiles.Import(c.Request.Context(), raw, confirm)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reload(c)
	c.JSON(http.StatusOK, result)
}

func (h *ProfileHandler) save(c *gin.Context, id string, status int) {
	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.profiles.Save(c.Request.Context(), id, p)
	if err != nil {
		respondError(c, err)
		return
	}
	h.reload(c)
	c.JSON(status, gin.H{"id": id})
}

// reload refreshes the console after the active profile may have changed.
func (h *ProfileHandler) reload(c *gin.Context) {
	if err := h.console.ReloadSettings(c.Request.Context()); err != nil {
		log.Printf("[profiles] reload console settings: %v", err)
	}
}
