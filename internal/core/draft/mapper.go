package draft

import "strings"

type MapperOptions struct {
	// EmitScheduleStrategy includes scheduleStrategy in request bodies.
	EmitScheduleStrategy bool
	// TreeFacetsExcludeRedundant forces excludeRedundant on categoryTree and
	// combinedTypeTree facets.
	TreeFacetsExcludeRedundant bool
}

// Mapper converts between the Draft editing model and the wire request body.
// Both directions are pure.
type Mapper struct {
	opts MapperOptions
}

func NewMapper(opts MapperOptions) *Mapper {
	return &Mapper{opts: opts}
}

func (m *Mapper) BuildRequestBody(d Draft, projectID string) RequestBody {
	searchRequest := map[string]interface{}{
		"project": []string{projectID},
	}

	// later filters of the same type overwrite earlier ones
	for _, f := range d.Filters {
		if !IsFilterType(f.Type) || len(f.Values) == 0 {
			continue
		}
		searchRequest[f.Type] = append([]string{}, f.Values...)
	}

	facets := make([]WireFacet, 0, len(d.Facets))
	for _, f := range d.Facets {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		facets = append(facets, m.wireFacet(f))
	}
	searchRequest["facets"] = facets

	body := RequestBody{
		Name:          d.Name,
		Description:   d.Description,
		SearchRequest: searchRequest,
	}
	if m.opts.EmitScheduleStrategy {
		body.ScheduleStrategy = normalizeScheduleStrategy(string(d.ScheduleStrategy))
	}
	return body
}

func (m *Mapper) wireFacet(f Facet) WireFacet {
	name := strings.TrimSpace(f.Name)
	w := WireFacet{
		Name:             name,
		OrderBy:          NormalizeFacetOrderBy(f.OrderBy),
		OrderDirection:   normalizeOrderDirection(f.OrderDirection),
		Scope:            normalizeScope(f.Scope),
		ExcludeRedundant: f.ExcludeRedundant,
	}
	if !f.ResponseNames.IsZero() {
		rn := f.ResponseNames
		w.ResponseNames = &rn
	}
	if len(f.FilterValues) > 0 {
		w.FilterValues = append([]string{}, f.FilterValues...)
	}
	if len(f.AdditionalType) > 0 {
		w.AdditionalType = append([]string{}, f.AdditionalType...)
	}
	if f.Count != nil && *f.Count > 0 {
		w.Count = *f.Count
	}
	if m.opts.TreeFacetsExcludeRedundant && (name == "categoryTree" || name == "combinedTypeTree") {
		w.ExcludeRedundant = true
	}
	return w
}

// ApplyViewToDraft builds a fresh Draft from a remote view document. The
// result replaces the current draft wholesale.
func (m *Mapper) ApplyViewToDraft(view map[string]interface{}) Draft {
	return ApplyViewToDraft(view)
}

func ApplyViewToDraft(view map[string]interface{}) Draft {
	d := New()
	if view == nil {
		return d
	}

	d.Name, _ = view["name"].(string)
	d.Description, _ = view["description"].(string)
	d.ScheduleStrategy = normalizeScheduleStrategy(view["scheduleStrategy"])

	searchRequest, _ := view["searchRequest"].(map[string]interface{})
	if searchRequest == nil {
		return d
	}

	d.Filters = ExtractFilters(searchRequest)
	for _, raw := range ExtractFacets(searchRequest) {
		if facet, ok := MapFacetToDraft(raw); ok {
			d.Facets = append(d.Facets, *facet)
		}
	}
	return d
}
