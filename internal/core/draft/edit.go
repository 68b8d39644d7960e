package draft

import (
	"fmt"
	"strconv"
	"strings"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func (d *Draft) AddFilter() {
	d.Filters = append(d.Filters, Filter{Type: FilterTypes[0], Values: []string{}})
}

func (d *Draft) AddFacet() {
	d.Facets = append(d.Facets, Facet{
		FilterValues:   []string{},
		AdditionalType: []string{},
		OrderBy:        OrderByName,
		Scope:          ScopeCurrent,
	})
}

func (d *Draft) RemoveFilter(i int) error {
	if i < 0 || i >= len(d.Filters) {
		return ErrIndexOutOfRange
	}
	d.Filters = append(d.Filters[:i], d.Filters[i+1:]...)
	return nil
}

func (d *Draft) RemoveFacet(i int) error {
	if i < 0 || i >= len(d.Facets) {
		return ErrIndexOutOfRange
	}
	d.Facets = append(d.Facets[:i], d.Facets[i+1:]...)
	return nil
}

// MoveFilter swaps the filter at i with its neighbour. Moving past either
// end is a no-op.
func (d *Draft) MoveFilter(i int, dir Direction) error {
	if i < 0 || i >= len(d.Filters) {
		return ErrIndexOutOfRange
	}
	j, err := neighbour(i, len(d.Filters), dir)
	if err != nil || j == i {
		return err
	}
	d.Filters[i], d.Filters[j] = d.Filters[j], d.Filters[i]
	return nil
}

func (d *Draft) MoveFacet(i int, dir Direction) error {
	if i < 0 || i >= len(d.Facets) {
		return ErrIndexOutOfRange
	}
	j, err := neighbour(i, len(d.Facets), dir)
	if err != nil || j == i {
		return err
	}
	d.Facets[i], d.Facets[j] = d.Facets[j], d.Facets[i]
	return nil
}

func neighbour(i, n int, dir Direction) (int, error) {
	switch dir {
	case Up:
		if i > 0 {
			return i - 1, nil
		}
		return i, nil
	case Down:
		if i < n-1 {
			return i + 1, nil
		}
		return i, nil
	default:
		return i, fmt.Errorf("%w: direction %q", ErrInvalidValue, dir)
	}
}

// SetFilterField updates one filter from form text. "values" takes one
// value per line.
func (d *Draft) SetFilterField(i int, field, text string) error {
	if i < 0 || i >= len(d.Filters) {
		return ErrIndexOutOfRange
	}
	switch field {
	case "values":
		d.Filters[i].Values = SplitLines(text)
	case "type":
		d.Filters[i].Type = text
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// SetFacetField updates one facet from form text. filterValues takes one
// value per line, additionalType a comma separated list and count a positive
// number or nothing.
func (d *Draft) SetFacetField(i int, field, text string) error {
	if i < 0 || i >= len(d.Facets) {
		return ErrIndexOutOfRange
	}
	f := &d.Facets[i]

	switch field {
	case "name":
		f.Name = text
	case "filterValues":
		f.FilterValues = SplitLines(text)
	case "additionalType":
		f.AdditionalType = SplitComma(text)
	case "count":
		text = strings.TrimSpace(text)
		if text == "" {
			f.Count = nil
			return nil
		}
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: count %q", ErrInvalidValue, text)
		}
		f.Count = &n
	case "responseNames.de":
		f.ResponseNames.De = text
	case "responseNames.en":
		f.ResponseNames.En = text
	case "orderBy":
		f.OrderBy = NormalizeFacetOrderBy(text)
	case "orderDirection":
		f.OrderDirection = normalizeOrderDirection(text)
	case "scope":
		f.Scope = normalizeScope(text)
	case "excludeRedundant":
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return fmt.Errorf("%w: excludeRedundant %q", ErrInvalidValue, text)
		}
		f.ExcludeRedundant = b
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func SplitLines(text string) []string {
	return splitTrim(text, "\n")
}

func SplitComma(text string) []string {
	return splitTrim(text, ",")
}

func splitTrim(text, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(text, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
