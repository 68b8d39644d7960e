package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viewdesk/viewdesk/internal/core/draft"
)

const promptIntro = `You are AIViewManager, an assistant that creates and edits discover.swiss SearchViewRequest configurations.

Your role:
- Guide the user through building views that search tourism and hospitality data
- Suggest options based on what the discover.swiss API supports
- Produce valid JSON when asked
- Help improve search strategies`

const promptAPI = `discover.swiss API:
- Environments: Test (api.discover.swiss/test/info/v2), Production (api.discover.swiss/info/v2)
- Views are managed under /search/views

SearchViewRequest structure:
{
  "name": "string",
  "description": "string",
  "scheduleStrategy": "%s",
  "searchRequest": {
    "project": ["project-name"],
    "combinedTypeTree": ["Thing|Place|LocalBusiness"],
    "categoryTree": ["category-name"],
    "facets": [
      {
        "name": "facet-name",
        "responseNames": { "de": "Anzeigename", "en": "Display Name" },
        "filterValues": ["value1", "value2"],
        "additionalType": ["type1"],
        "orderBy": "name | count",
        "orderDirection": "asc | desc",
        "count": 10,
        "scope": "current | parent | all",
        "excludeRedundant": true
      }
    ]
  }
}
Use either combinedTypeTree or categoryTree as the main type filter.`

const promptGuidance = `Facet names (common):
- categoryTree: tourism categories (hotels, restaurants, attractions)
- combinedTypeTree: schema.org types (LocalBusiness, Restaurant)
- amenityFeature: accommodation amenities (WiFi, pool, gym)
- starRatingName: star ratings
- addressLocality: places
- award, campaignTag: awards and promotions

Best practices:
- Facets enable filtering in search results
- Set responseNames for multilingual labels
- Set excludeRedundant=true on tree facets to avoid duplicate entries
- orderBy and orderDirection control facet ordering; count limits returned values

When creating a view, ask about the data scope, determine the facets needed, suggest a schedule strategy and return the complete JSON.`

const promptOutro = `Respond with JSON in a fenced json code block when the user asks to create, generate, suggest, update or modify a view.
Keep technical details concise but complete.`

// BuildSystemPrompt assembles the system message. viewContext is the view
// the user loaded from the console, or nil when starting from scratch.
func BuildSystemPrompt(viewContext map[string]interface{}) string {
	schedules := make([]string, 0, len(draft.ScheduleStrategies))
	for _, s := range draft.ScheduleStrategies {
		schedules = append(schedules, string(s))
	}

	var b strings.Builder
	b.WriteString(promptIntro)
	if viewContext != nil {
		fmt.Fprintf(&b, "\n- Help modify the currently selected view (%s)", contextName(viewContext))
	} else {
		b.WriteString("\n- Help create new views")
	}

	b.WriteString("\n\n")
	fmt.Fprintf(&b, promptAPI, strings.Join(schedules, " | "))

	b.WriteString("\n\nFilter types:\n- ")
	b.WriteString(strings.Join(draft.FilterTypes, ", "))

	b.WriteString("\n\n")
	b.WriteString(promptGuidance)
	b.WriteString("\n\n")
	b.WriteString(contextSection(viewContext))
	b.WriteString("\n\n")
	b.WriteString(promptOutro)
	return b.String()
}

func contextSection(viewContext map[string]interface{}) string {
	if viewContext == nil {
		return "No view is currently selected. The user is creating a new view from scratch."
	}
	data, err := json.MarshalIndent(viewContext, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("CURRENT VIEW CONTEXT:\nView ID: %s\nView Name: %s\nView Data:\n%s",
		draft.ViewID(viewContext), contextName(viewContext), data)
}

func contextName(viewContext map[string]interface{}) string {
	if name, ok := viewContext["name"].(string); ok && name != "" {
		return name
	}
	return "unnamed"
}
