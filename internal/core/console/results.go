package console

import (
	"encoding/json"
	"fmt"
	"sort"
)

const emptyCell = "-"

// ResultColumns are the fields shown for each search hit.
var ResultColumns = []string{"name", "identifier", "additionalType"}

type ResultRow map[string]string

type FacetOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Count string `json:"count"`
}

type FacetSummary struct {
	Name               string        `json:"name"`
	FilterPropertyName string        `json:"filterPropertyName"`
	Options            []FacetOption `json:"options"`
}

// ResultsSummary is the tabular form of the last result page.
type ResultsSummary struct {
	Count  int            `json:"count"`
	Rows   []ResultRow    `json:"rows"`
	Facets []FacetSummary `json:"facets"`
}

// ResultsSummary flattens the last preview results into rows of hits and
// facet options. It is empty until PreviewResults succeeded.
func (s *Service) ResultsSummary() ResultsSummary {
	s.mu.Lock()
	results, _ := s.responses.Results.(map[string]interface{})
	s.mu.Unlock()
	return summarizeResults(results)
}

func summarizeResults(results map[string]interface{}) ResultsSummary {
	summary := ResultsSummary{Rows: []ResultRow{}, Facets: []FacetSummary{}}
	if results == nil {
		return summary
	}

	if n, ok := results["count"].(float64); ok {
		summary.Count = int(n)
	}

	values, _ := results["values"].([]interface{})
	for _, item := range values {
		hit, _ := item.(map[string]interface{})
		row := ResultRow{}
		for _, col := range ResultColumns {
			row[col] = cell(hit[col])
		}
		summary.Rows = append(summary.Rows, row)
	}

	for _, raw := range resultFacets(results["facets"]) {
		f, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fs := FacetSummary{
			Name:               orDash(f["name"]),
			FilterPropertyName: orDash(f["filterPropertyName"]),
			Options:            []FacetOption{},
		}
		options, _ := f["options"].([]interface{})
		for _, o := range options {
			opt, _ := o.(map[string]interface{})
			fs.Options = append(fs.Options, FacetOption{
				Name:  orDash(opt["name"]),
				Value: orDash(opt["value"]),
				Count: cell(opt["count"]),
			})
		}
		summary.Facets = append(summary.Facets, fs)
	}
	return summary
}

// resultFacets accepts facets as an array or as a map keyed by facet name.
func resultFacets(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]interface{}, 0, len(keys))
		for _, k := range keys {
			out = append(out, t[k])
		}
		return out
	}
	return nil
}

func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return emptyCell
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return emptyCell
		}
		return string(data)
	}
}

func orDash(v interface{}) string {
	if s := cell(v); s != "" {
		return s
	}
	return emptyCell
}
