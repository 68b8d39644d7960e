package console

import (
	"github.com/viewdesk/viewdesk/internal/core/draft"
)

func (s *Service) Draft() draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDraft(s.draft)
}

// ReplaceDraft overwrites the whole draft.
func (s *Service) ReplaceDraft(d draft.Draft) draft.Draft {
	if d.Filters == nil {
		d.Filters = []draft.Filter{}
	}
	if d.Facets == nil {
		d.Facets = []draft.Facet{}
	}
	if d.ScheduleStrategy == "" {
		d.ScheduleStrategy = draft.DefaultSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = cloneDraft(d)
	return cloneDraft(s.draft)
}

// EditDraft applies fn to the draft under the state lock. The draft is left
// unchanged when fn fails.
func (s *Service) EditDraft(fn func(d *draft.Draft) error) (draft.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := cloneDraft(s.draft)
	if err := fn(&d); err != nil {
		return cloneDraft(s.draft), err
	}
	s.draft = d
	return cloneDraft(d), nil
}

// RequestPreview builds the request body for the current draft and keeps it
// as the last request.
func (s *Service) RequestPreview() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := s.mapper.BuildRequestBody(s.draft, s.settings.Project).Map()
	s.responses.Request = body
	return body
}

func cloneDraft(d draft.Draft) draft.Draft {
	out := d
	out.Filters = make([]draft.Filter, len(d.Filters))
	for i, f := range d.Filters {
		f.Values = append([]string{}, f.Values...)
		out.Filters[i] = f
	}
	out.Facets = make([]draft.Facet, len(d.Facets))
	for i, f := range d.Facets {
		f.FilterValues = append([]string{}, f.FilterValues...)
		f.AdditionalType = append([]string{}, f.AdditionalType...)
		if f.Count != nil {
			n := *f.Count
			f.Count = &n
		}
		out.Facets[i] = f
	}
	return out
}
