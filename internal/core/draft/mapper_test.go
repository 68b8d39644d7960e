package draft

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/viewdesk/viewdesk/internal/discover"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func intPtr(i int) *int { return &i }

func TestApplyViewToDraft_WellFormed(t *testing.T) {
	fixtures := []string{
		`{}`,
		`{"name": 5, "searchRequest": "nope"}`,
		`{"searchRequest": {"facets": 12}}`,
		`{"searchRequest": {"facets": [null, 3, "x", {}]}}`,
		`{"searchRequest": {"facets": {"b": {"name": ""}, "a": {"orderBy": "weird"}}}}`,
		`{"scheduleStrategy": "Hourly", "searchRequest": {"categoryTree": "not-an-array"}}`,
	}

	for _, fx := range fixtures {
		d := ApplyViewToDraft(decode(t, fx))

		if d.Filters == nil || d.Facets == nil {
			t.Errorf("%s: filters/facets must not be nil", fx)
		}
		if d.ScheduleStrategy == "" {
			t.Errorf("%s: schedule strategy must be defaulted", fx)
		}
		for _, f := range d.Facets {
			if f.Name == "" {
				t.Errorf("%s: facet name must not be empty", fx)
			}
			if f.OrderBy != OrderByName && f.OrderBy != OrderByCount {
				t.Errorf("%s: facet orderBy %q out of range", fx, f.OrderBy)
			}
			if f.FilterValues == nil || f.AdditionalType == nil {
				t.Errorf("%s: facet arrays must not be nil", fx)
			}
		}
	}
}

func TestApplyViewToDraft_FacetsAsObject(t *testing.T) {
	raw, err := discover.DecodeJSON([]byte(`{
		"name": "Hotels",
		"scheduleStrategy": "Weekly",
		"searchRequest": {
			"facets": {
				"stars": {"name": "starRatingName", "orderBy": "count", "count": 5},
				"loc": {"name": "  ", "orderDirection": "desc", "scope": "all"}
			}
		}
	}`))
	if err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	d := ApplyViewToDraft(raw.(map[string]interface{}))

	if d.Name != "Hotels" || d.ScheduleStrategy != ScheduleWeekly {
		t.Fatalf("unexpected header fields: %+v", d)
	}
	if len(d.Facets) != 2 {
		t.Fatalf("expected 2 facets, got %d", len(d.Facets))
	}

	// facets keep the order of the document
	stars, loc := d.Facets[0], d.Facets[1]
	if stars.Name != "starRatingName" || stars.OrderBy != OrderByCount {
		t.Errorf("unexpected stars facet: %+v", stars)
	}
	if stars.Count == nil || *stars.Count != 5 {
		t.Errorf("expected count 5, got %v", stars.Count)
	}
	if loc.Name != "categoryTree" {
		t.Errorf("blank name should fall back to catalog head, got %q", loc.Name)
	}
	if loc.OrderDirection != "desc" || loc.Scope != ScopeAll {
		t.Errorf("unexpected loc facet: %+v", loc)
	}
}

func TestExtractFacets_DecodedMapIsSortedByKey(t *testing.T) {
	sr := decode(t, `{"facets": {"b": {"name": "award"}, "a": {"name": "category"}}}`)

	got := ExtractFacets(sr)
	if len(got) != 2 || got[0].(map[string]interface{})["name"] != "category" {
		t.Errorf("unexpected facets %v", got)
	}
}

func TestApplyViewToDraft_ScheduleStrategy(t *testing.T) {
	cases := []struct {
		doc  string
		want ScheduleStrategy
	}{
		{`{}`, ScheduleDaily},
		{`{"scheduleStrategy": ""}`, ScheduleDaily},
		{`{"scheduleStrategy": 3}`, ScheduleDaily},
		{`{"scheduleStrategy": "Every6Hours"}`, ScheduleEvery6Hours},
		{`{"scheduleStrategy": "Monthly"}`, ScheduleStrategy("Monthly")},
	}
	for _, c := range cases {
		if got := ApplyViewToDraft(decode(t, c.doc)).ScheduleStrategy; got != c.want {
			t.Errorf("%s: got %q, want %q", c.doc, got, c.want)
		}
	}

	m := NewMapper(MapperOptions{EmitScheduleStrategy: true})
	body := m.BuildRequestBody(ApplyViewToDraft(decode(t, `{"scheduleStrategy": "Monthly"}`)), "p")
	if body.ScheduleStrategy != "Monthly" {
		t.Errorf("unknown strategy should be sent back unchanged, got %q", body.ScheduleStrategy)
	}
}

func TestBuildRequestBody(t *testing.T) {
	m := NewMapper(MapperOptions{EmitScheduleStrategy: true})
	d := Draft{
		Name:             "Restaurants",
		Description:      "Food",
		ScheduleStrategy: ScheduleDaily,
		Filters: []Filter{
			{Type: "combinedTypeTree", Values: []string{"Thing|Place"}},
			{Type: "award", Values: []string{}},
			{Type: "bogus", Values: []string{"x"}},
		},
		Facets: []Facet{
			{Name: "", FilterValues: []string{"dropped"}},
			{Name: "amenityFeature", OrderBy: OrderByCount, Count: intPtr(10), ResponseNames: ResponseNames{De: "Ausstattung"}},
		},
	}

	body := m.BuildRequestBody(d, "proj-1")

	if body.ScheduleStrategy != ScheduleDaily {
		t.Errorf("expected schedule strategy to be emitted")
	}
	if !reflect.DeepEqual(body.SearchRequest["project"], []string{"proj-1"}) {
		t.Errorf("unexpected project: %v", body.SearchRequest["project"])
	}
	if _, ok := body.SearchRequest["award"]; ok {
		t.Error("empty filter must not be emitted")
	}
	if _, ok := body.SearchRequest["bogus"]; ok {
		t.Error("unknown filter type must not be emitted")
	}

	facets := body.SearchRequest["facets"].([]WireFacet)
	if len(facets) != 1 {
		t.Fatalf("expected nameless facet to be dropped, got %d facets", len(facets))
	}

	raw, err := json.Marshal(facets[0])
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"amenityFeature","responseNames":{"de":"Ausstattung"},"orderBy":"count","count":10,"scope":"current"}`
	if string(raw) != want {
		t.Errorf("wire facet:\n got %s\nwant %s", raw, want)
	}
}

func TestBuildRequestBody_OmitsScheduleWhenDisabled(t *testing.T) {
	m := NewMapper(MapperOptions{})
	body := m.BuildRequestBody(New(), "p")

	raw, _ := json.Marshal(body)
	var doc map[string]interface{}
	_ = json.Unmarshal(raw, &doc)
	if _, ok := doc["scheduleStrategy"]; ok {
		t.Error("scheduleStrategy should be omitted")
	}
	sr := doc["searchRequest"].(map[string]interface{})
	if facets, ok := sr["facets"].([]interface{}); !ok || len(facets) != 0 {
		t.Errorf("facets must always be present, got %v", sr["facets"])
	}
}

func TestBuildRequestBody_TreeFacetsExcludeRedundant(t *testing.T) {
	m := NewMapper(MapperOptions{TreeFacetsExcludeRedundant: true})
	d := New()
	d.Facets = []Facet{{Name: "categoryTree"}, {Name: "award"}}

	facets := m.BuildRequestBody(d, "p").SearchRequest["facets"].([]WireFacet)
	if !facets[0].ExcludeRedundant {
		t.Error("categoryTree facet should exclude redundant entries")
	}
	if facets[1].ExcludeRedundant {
		t.Error("award facet should keep its own flag")
	}
}

func TestBuildRequestBody_TreeFacetNameIsTrimmed(t *testing.T) {
	m := NewMapper(MapperOptions{TreeFacetsExcludeRedundant: true})
	d := New()
	d.Facets = []Facet{{Name: " combinedTypeTree "}}

	facets := m.BuildRequestBody(d, "p").SearchRequest["facets"].([]WireFacet)
	if facets[0].Name != "combinedTypeTree" || !facets[0].ExcludeRedundant {
		t.Errorf("padded tree facet should be trimmed and exclude redundant entries: %+v", facets[0])
	}
}

func TestBuildRequestBody_DuplicateFilterLastWins(t *testing.T) {
	m := NewMapper(MapperOptions{})
	d := New()
	d.Filters = []Filter{
		{Type: "categoryTree", Values: []string{"A"}},
		{Type: "categoryTree", Values: []string{"B"}},
	}

	body := m.BuildRequestBody(d, "p")
	if !reflect.DeepEqual(body.SearchRequest["categoryTree"], []string{"B"}) {
		t.Errorf("expected last filter to win, got %v", body.SearchRequest["categoryTree"])
	}
}

func TestMapperRoundTrip(t *testing.T) {
	for _, opts := range []MapperOptions{{}, {EmitScheduleStrategy: true}, {EmitScheduleStrategy: true, TreeFacetsExcludeRedundant: true}} {
		m := NewMapper(opts)
		d := Draft{
			Name:             "Round",
			Description:      "trip",
			ScheduleStrategy: "NotAStrategy",
			Filters: []Filter{
				{Type: "addressLocality", Values: []string{"Bern"}},
				{Type: "categoryTree", Values: []string{"A", "B"}},
				{Type: "categoryTree", Values: []string{"C"}},
			},
			Facets: []Facet{
				{Name: " combinedTypeTree ", OrderDirection: "sideways"},
				{Name: "custom", OrderBy: OrderByCount, Count: intPtr(3), Scope: ScopeParent, ExcludeRedundant: true,
					FilterValues: []string{"x"}, AdditionalType: []string{"y"}, ResponseNames: ResponseNames{En: "Custom"}},
			},
		}

		first := m.BuildRequestBody(d, "proj").Map()
		again := m.BuildRequestBody(m.ApplyViewToDraft(first), "proj").Map()

		if !reflect.DeepEqual(first, again) {
			a, _ := json.Marshal(first)
			b, _ := json.Marshal(again)
			t.Errorf("round trip mismatch (%+v):\n%s\n%s", opts, a, b)
		}
	}
}

func TestViewID(t *testing.T) {
	cases := []struct {
		doc  string
		want string
	}{
		{`{"id": "a"}`, "a"},
		{`{"id": "", "identifier": "b"}`, "b"},
		{`{"viewId": 42}`, "42"},
		{`{"uuid": "u-1", "name": "x"}`, "u-1"},
		{`{"name": "nothing"}`, ""},
	}
	for _, c := range cases {
		if got := ViewID(decode(t, c.doc)); got != c.want {
			t.Errorf("ViewID(%s) = %q, want %q", c.doc, got, c.want)
		}
	}
}

func TestExtractFilters_DeclarationOrder(t *testing.T) {
	sr := decode(t, `{"addressPostalCode": [3000, "3001"], "combinedTypeTree": ["T"], "award": []}`)

	got := ExtractFilters(sr)
	want := []Filter{
		{Type: "combinedTypeTree", Values: []string{"T"}},
		{Type: "addressPostalCode", Values: []string{"3000", "3001"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractFilters = %+v, want %+v", got, want)
	}
}

func TestMapFacetToDraft_RejectsNonObjects(t *testing.T) {
	for _, raw := range []interface{}{nil, "x", 1.0, []interface{}{}} {
		if _, ok := MapFacetToDraft(raw); ok {
			t.Errorf("expected %v to be rejected", raw)
		}
	}
}

func TestNormalizeFacetOrderBy(t *testing.T) {
	cases := map[interface{}]string{"name": "name", "count": "count", "Count": "name", 3.0: "name"}
	for in, want := range cases {
		if got := NormalizeFacetOrderBy(in); got != want {
			t.Errorf("NormalizeFacetOrderBy(%v) = %q, want %q", in, got, want)
		}
	}
	if got := NormalizeFacetOrderBy(nil); got != "name" {
		t.Errorf("NormalizeFacetOrderBy(nil) = %q", got)
	}
}

func TestDraft_UnknownFacets(t *testing.T) {
	d := New()
	d.Facets = []Facet{{Name: "categoryTree"}, {Name: "myFacet"}}
	if got := d.UnknownFacets(); !reflect.DeepEqual(got, []string{"myFacet"}) {
		t.Errorf("UnknownFacets = %v", got)
	}
}
