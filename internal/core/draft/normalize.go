package draft

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// viewIDKeys are tried in order when reading a view's identity.
var viewIDKeys = []string{"id", "identifier", "viewId", "uuid"}

// ViewID returns the identity of a remote view document, or "" when none of
// the known keys holds a usable value.
func ViewID(view map[string]interface{}) string {
	for _, key := range viewIDKeys {
		switch v := view[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func NormalizeFacetName(v interface{}) string {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return FacetCatalog[0]
}

func NormalizeFacetOrderBy(v interface{}) string {
	if s, ok := v.(string); ok && (s == OrderByName || s == OrderByCount) {
		return s
	}
	return OrderByName
}

func normalizeOrderDirection(v interface{}) string {
	if s, ok := v.(string); ok && (s == "asc" || s == "desc") {
		return s
	}
	return ""
}

func normalizeScope(v interface{}) string {
	if s, ok := v.(string); ok && (s == ScopeCurrent || s == ScopeParent || s == ScopeAll) {
		return s
	}
	return ScopeCurrent
}

// normalizeScheduleStrategy defaults a missing or blank strategy. Values the
// editor does not offer are kept so an update never rewrites them.
func normalizeScheduleStrategy(v interface{}) ScheduleStrategy {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return ScheduleStrategy(s)
	}
	return DefaultSchedule
}

func normalizeCount(v interface{}) *int {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	c := int(f)
	return &c
}

// ExtractFacets returns the facet entries of a search request. Facets may be
// stored as an array or as an object keyed by name; anything else yields an
// empty list. Views decoded by the discover client already carry object
// facets as an array in document order; any other map is ordered by key.
func ExtractFacets(searchRequest map[string]interface{}) []interface{} {
	switch facets := searchRequest["facets"].(type) {
	case []interface{}:
		return facets
	case map[string]interface{}:
		keys := make([]string, 0, len(facets))
		for k := range facets {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]interface{}, 0, len(keys))
		for _, k := range keys {
			out = append(out, facets[k])
		}
		return out
	default:
		return []interface{}{}
	}
}

// MapFacetToDraft converts one raw facet entry into the canonical editing
// shape. It returns false for entries that are not objects.
func MapFacetToDraft(raw interface{}) (*Facet, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false
	}

	facet := &Facet{
		Name:           NormalizeFacetName(m["name"]),
		FilterValues:   stringList(m["filterValues"]),
		AdditionalType: stringList(m["additionalType"]),
		OrderBy:        NormalizeFacetOrderBy(m["orderBy"]),
		OrderDirection: normalizeOrderDirection(m["orderDirection"]),
		Count:          normalizeCount(m["count"]),
		Scope:          normalizeScope(m["scope"]),
	}

	if rn, ok := m["responseNames"].(map[string]interface{}); ok {
		facet.ResponseNames.De, _ = rn["de"].(string)
		facet.ResponseNames.En, _ = rn["en"].(string)
	}
	if b, ok := m["excludeRedundant"].(bool); ok {
		facet.ExcludeRedundant = b
	}

	return facet, true
}

// ExtractFilters reads one Filter per populated filter key, in FilterTypes
// order. Non-string values are stringified.
func ExtractFilters(searchRequest map[string]interface{}) []Filter {
	filters := []Filter{}
	for _, t := range FilterTypes {
		values := stringList(searchRequest[t])
		if len(values) == 0 {
			continue
		}
		filters = append(filters, Filter{Type: t, Values: values})
	}
	return filters
}

func stringList(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		if ss, ok := v.([]string); ok {
			return append([]string{}, ss...)
		}
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		out = append(out, stringify(item))
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
