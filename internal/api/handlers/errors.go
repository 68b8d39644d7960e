package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/viewdesk/viewdesk/internal/core/chat"
	"github.com/viewdesk/viewdesk/internal/core/compare"
	"github.com/viewdesk/viewdesk/internal/core/console"
	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/history"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/discover"
)

var errInvalidIndex = errors.New("index must be a non-negative integer")

// respondError maps service errors to status codes. Discover API failures
// are passed through verbatim as {status, message, data} under "error".
func respondError(c *gin.Context, err error) {
	if apiErr, ok := discover.AsAPIError(err); ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr})
		return
	}
	if ve := validation.GetValidationErrors(err); ve != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": ve.Errors})
		return
	}

	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, discover.ErrMissingSettings),
		errors.Is(err, console.ErrNotConfigured),
		errors.Is(err, chat.ErrMissingAPIKey):
		return http.StatusPreconditionFailed
	case errors.Is(err, profile.ErrNotFound),
		errors.Is(err, history.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, console.ErrNoSelection),
		errors.Is(err, profile.ErrConfirmationRequired),
		errors.Is(err, compare.ErrNoCurrent),
		errors.Is(err, chat.ErrNoSelectedView):
		return http.StatusConflict
	case errors.Is(err, chat.ErrNoAssistantMessage),
		errors.Is(err, chat.ErrNoJSON):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errInvalidIndex),
		errors.Is(err, profile.ErrNoValidProfiles),
		errors.Is(err, compare.ErrSameVersion),
		errors.Is(err, compare.ErrInvalidSelection),
		errors.Is(err, draft.ErrIndexOutOfRange),
		errors.Is(err, draft.ErrUnknownField),
		errors.Is(err, draft.ErrInvalidValue),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func indexParam(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		return 0, errInvalidIndex
	}
	return i, nil
}
