package draft

import (
	"encoding/json"
	"errors"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
	ErrInvalidValue    = errors.New("invalid value")
)

type ScheduleStrategy string

const (
	ScheduleEveryHour    ScheduleStrategy = "EveryHour"
	ScheduleEvery6Hours  ScheduleStrategy = "Every6Hours"
	ScheduleEvery12Hours ScheduleStrategy = "Every12Hours"
	ScheduleDaily        ScheduleStrategy = "Daily"
	ScheduleWeekly       ScheduleStrategy = "Weekly"

	DefaultSchedule = ScheduleDaily
)

var ScheduleStrategies = []ScheduleStrategy{
	ScheduleEveryHour,
	ScheduleEvery6Hours,
	ScheduleEvery12Hours,
	ScheduleDaily,
	ScheduleWeekly,
}

// FilterTypes lists the search request keys a Filter can target, in
// declaration order. ExtractFilters walks them in this order.
var FilterTypes = []string{
	"combinedTypeTree",
	"categoryTree",
	"filters",
	"award",
	"campaignTag",
	"allTag",
	"category",
	"amenityFeature",
	"starRatingName",
	"addressLocality",
	"addressPostalCode",
}

// FacetCatalog is the list of facet names the editor offers. The first entry
// is the fallback for facets without a usable name.
var FacetCatalog = []string{
	"categoryTree",
	"combinedTypeTree",
	"amenityFeature",
	"starRatingName",
	"addressLocality",
	"addressPostalCode",
	"award",
	"campaignTag",
	"allTag",
	"category",
}

const (
	OrderByName  = "name"
	OrderByCount = "count"

	ScopeCurrent = "current"
	ScopeParent  = "parent"
	ScopeAll     = "all"
)

func IsFilterType(t string) bool {
	for _, ft := range FilterTypes {
		if ft == t {
			return true
		}
	}
	return false
}

func IsCatalogFacet(name string) bool {
	for _, n := range FacetCatalog {
		if n == name {
			return true
		}
	}
	return false
}

type Filter struct {
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

type ResponseNames struct {
	De string `json:"de,omitempty"`
	En string `json:"en,omitempty"`
}

func (r ResponseNames) IsZero() bool {
	return r.De == "" && r.En == ""
}

type Facet struct {
	Name             string        `json:"name"`
	ResponseNames    ResponseNames `json:"responseNames"`
	FilterValues     []string      `json:"filterValues"`
	AdditionalType   []string      `json:"additionalType"`
	OrderBy          string        `json:"orderBy"`
	OrderDirection   string        `json:"orderDirection"`
	Count            *int          `json:"count,omitempty"`
	Scope            string        `json:"scope"`
	ExcludeRedundant bool          `json:"excludeRedundant"`
}

// InCatalog reports whether the facet name is one of FacetCatalog. Names
// outside the catalog are kept as-is and flagged for display.
func (f Facet) InCatalog() bool {
	return IsCatalogFacet(f.Name)
}

// Draft is the editing model for a view. New returns one with every field
// defaulted.
type Draft struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	ScheduleStrategy ScheduleStrategy `json:"scheduleStrategy"`
	Filters          []Filter         `json:"filters"`
	Facets           []Facet          `json:"facets"`
}

func New() Draft {
	return Draft{
		ScheduleStrategy: DefaultSchedule,
		Filters:          []Filter{},
		Facets:           []Facet{},
	}
}

// IsEmpty reports whether nothing has been entered into the draft.
func (d Draft) IsEmpty() bool {
	return d.Name == "" && d.Description == "" && len(d.Filters) == 0 && len(d.Facets) == 0
}

// UnknownFacets returns the names of facets outside the catalog.
func (d Draft) UnknownFacets() []string {
	names := []string{}
	for _, f := range d.Facets {
		if f.Name != "" && !f.InCatalog() {
			names = append(names, f.Name)
		}
	}
	return names
}

// WireFacet is a facet as the remote API expects it. Empty fields are omitted.
type WireFacet struct {
	Name             string         `json:"name"`
	ResponseNames    *ResponseNames `json:"responseNames,omitempty"`
	FilterValues     []string       `json:"filterValues,omitempty"`
	AdditionalType   []string       `json:"additionalType,omitempty"`
	OrderBy          string         `json:"orderBy,omitempty"`
	OrderDirection   string         `json:"orderDirection,omitempty"`
	Count            int            `json:"count,omitempty"`
	Scope            string         `json:"scope,omitempty"`
	ExcludeRedundant bool           `json:"excludeRedundant,omitempty"`
}

// RequestBody is the create/update payload for a search view. SearchRequest
// carries "project", "facets" and one key per populated filter type.
type RequestBody struct {
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	ScheduleStrategy ScheduleStrategy       `json:"scheduleStrategy,omitempty"`
	SearchRequest    map[string]interface{} `json:"searchRequest"`
}

// Map returns the body as a generic JSON document, the shape history
// snapshots and comparisons work with.
func (b RequestBody) Map() map[string]interface{} {
	data, err := json.Marshal(b)
	if err != nil {
		return map[string]interface{}{}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
