package console

import (
	"errors"

	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/navigation"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/discover"
)

var (
	ErrNoSelection   = errors.New("select a view first")
	ErrNotConfigured = errors.New("set an API key and project in the settings first")
)

// ViewSummary is one entry of the view list, read once on ingest.
type ViewSummary struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ScheduleStrategy string                 `json:"scheduleStrategy,omitempty"`
	Raw              map[string]interface{} `json:"raw"`
}

func newViewSummary(raw map[string]interface{}) ViewSummary {
	name, _ := raw["name"].(string)
	schedule, _ := raw["scheduleStrategy"].(string)
	return ViewSummary{
		ID:               draft.ViewID(raw),
		Name:             name,
		ScheduleStrategy: schedule,
		Raw:              raw,
	}
}

// Responses are the last payloads exchanged with the API. Request is the
// body most recently built from the draft.
type Responses struct {
	Request  map[string]interface{} `json:"request,omitempty"`
	Response interface{}            `json:"response,omitempty"`
	Results  interface{}            `json:"results,omitempty"`
}

type Status struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// State is a copy of the console's application state.
type State struct {
	Settings      profile.Settings    `json:"settings"`
	Ready         bool                `json:"ready"`
	Views         []ViewSummary       `json:"views"`
	Navigation    navigation.Snapshot `json:"navigation"`
	CanGoBack     bool                `json:"canGoBack"`
	CanGoForward  bool                `json:"canGoForward"`
	Draft         draft.Draft         `json:"draft"`
	UnknownFacets []string            `json:"unknownFacets,omitempty"`
	Responses     Responses           `json:"responses"`
	Status        *Status             `json:"status,omitempty"`
	Notices       []navigation.Notice `json:"notices,omitempty"`
}

// errorPayload is how a failure is shown in the response panel: API errors
// verbatim, anything else as a message.
func errorPayload(err error) interface{} {
	if apiErr, ok := discover.AsAPIError(err); ok {
		return apiErr
	}
	return map[string]interface{}{"message": err.Error()}
}
