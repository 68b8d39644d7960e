// Package console owns the application state of the view editor and runs
// its workflows against the discover API.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/viewdesk/viewdesk/internal/core/compare"
	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/history"
	"github.com/viewdesk/viewdesk/internal/core/navigation"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/discover"
	"github.com/viewdesk/viewdesk/internal/storage"
)

// DraftHandoff hands over a draft proposed by the chat assistant.
type DraftHandoff interface {
	ConsumeDraft(ctx context.Context) (map[string]interface{}, bool, error)
}

type Deps struct {
	KV       storage.KV
	Profiles *profile.Service
	API      *discover.Client
	Mapper   *draft.Mapper
	History  *history.Store
	Handoff  DraftHandoff
	Location *navigation.MemoryLocation
}

// Service is the single owner of the console state. The mutex guards state
// fields only and is never held across a network call, so concurrent
// workflows interleave and the last write wins.
type Service struct {
	kv       storage.KV
	profiles *profile.Service
	api      *discover.Client
	mapper   *draft.Mapper
	history  *history.Store
	handoff  DraftHandoff
	loc      *navigation.MemoryLocation
	sync     *navigation.Synchronizer
	compare  *compare.Service

	mu        sync.Mutex
	settings  profile.Settings
	views     []ViewSummary
	draft     draft.Draft
	loaded    map[string]interface{}
	responses Responses
	status    *Status
	notices   []navigation.Notice
}

func NewService(deps Deps) *Service {
	loc := deps.Location
	if loc == nil {
		loc = navigation.NewMemoryLocation("/")
	}
	s := &Service{
		kv:       deps.KV,
		profiles: deps.Profiles,
		api:      deps.API,
		mapper:   deps.Mapper,
		history:  deps.History,
		handoff:  deps.Handoff,
		loc:      loc,
		settings: profile.DefaultSettings(),
		views:    []ViewSummary{},
		draft:    draft.New(),
	}
	s.sync = navigation.NewSynchronizer(loc, s, s.addNotice)
	s.compare = compare.NewService(deps.History, s)
	return s
}

func (s *Service) Compare() *compare.Service {
	return s.compare
}

func (s *Service) History() *history.Store {
	return s.history
}

// State returns a copy of the current state with secrets redacted.
func (s *Service) State() State {
	nav := s.sync.Snapshot()
	canBack, canForward := s.loc.CanGoBack(), s.loc.CanGoForward()

	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]ViewSummary, len(s.views))
	copy(views, s.views)
	notices := make([]navigation.Notice, len(s.notices))
	copy(notices, s.notices)

	return State{
		Settings:      s.settings.Redacted(),
		Ready:         s.settings.Ready(),
		Views:         views,
		Navigation:    nav,
		CanGoBack:     canBack,
		CanGoForward:  canForward,
		Draft:         cloneDraft(s.draft),
		UnknownFacets: s.draft.UnknownFacets(),
		Responses:     s.responses,
		Status:        s.status,
		Notices:       notices,
	}
}

func (s *Service) SelectedViewID() string {
	return s.sync.SelectedID()
}

// Bootstrap is the startup sequence: settings, pending chat draft, view
// list, then the deep link in rawURL.
func (s *Service) Bootstrap(ctx context.Context, rawURL string) (State, error) {
	if rawURL != "" {
		s.loc.Navigate(rawURL)
	}

	if err := s.ReloadSettings(ctx); err != nil {
		return s.State(), err
	}
	if _, err := s.ConsumeChatDraft(ctx); err != nil {
		log.Printf("[console] chat draft handoff failed: %v", err)
	}

	s.mu.Lock()
	ready := s.settings.Ready()
	if !ready {
		s.setStatus("warning", ErrNotConfigured.Error())
	}
	s.mu.Unlock()

	if ready {
		if _, err := s.LoadViews(ctx); err != nil {
			log.Printf("[console] loading views failed: %v", err)
		}
	}
	if err := s.sync.Startup(ctx, ready); err != nil {
		log.Printf("[console] deep link could not be resolved: %v", err)
	}
	return s.State(), nil
}

// ReloadSettings re-reads the active profile.
func (s *Service) ReloadSettings(ctx context.Context) error {
	settings, err := s.profiles.CurrentSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// ConsumeChatDraft replaces the draft with the one the assistant proposed,
// if there is one waiting.
func (s *Service) ConsumeChatDraft(ctx context.Context) (bool, error) {
	if s.handoff == nil {
		return false, nil
	}
	doc, ok, err := s.handoff.ConsumeDraft(ctx)
	if err != nil || !ok {
		return false, err
	}

	d := s.mapper.ApplyViewToDraft(doc)
	s.mu.Lock()
	s.draft = d
	s.setStatus("info", "Draft loaded from the assistant.")
	s.mu.Unlock()
	return true, nil
}

// LoadViews refreshes the view list. On failure the list is emptied and the
// error is shown in the response panel.
func (s *Service) LoadViews(ctx context.Context) ([]ViewSummary, error) {
	raw, err := s.api.ListViews(ctx, s.credentials())

	s.mu.Lock()
	if err != nil {
		s.views = []ViewSummary{}
		s.responses.Response = errorPayload(err)
		s.failStatus(err)
		s.mu.Unlock()
		s.saveSnapshot(ctx)
		return nil, err
	}
	views := make([]ViewSummary, 0, len(raw))
	for _, v := range raw {
		views = append(views, newViewSummary(v))
	}
	s.views = views
	out := make([]ViewSummary, len(views))
	copy(out, views)
	s.mu.Unlock()

	s.saveSnapshot(ctx)
	return out, nil
}

// SelectView selects a view from the list and adds a navigation entry.
func (s *Service) SelectView(ctx context.Context, id string) error {
	return s.sync.Select(ctx, id)
}

// LoadSelectedView reloads the selected view into the draft.
func (s *Service) LoadSelectedView(ctx context.Context) error {
	id := s.sync.SelectedID()
	if id == "" {
		return ErrNoSelection
	}
	return s.LoadView(ctx, id)
}

// KnownViewIDs lists the ids of the loaded views.
func (s *Service) KnownViewIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.views))
	for _, v := range s.views {
		ids = append(ids, v.ID)
	}
	return ids
}

// LoadView fetches a view and replaces the draft with it.
func (s *Service) LoadView(ctx context.Context, id string) error {
	view, err := s.api.GetView(ctx, s.credentials(), id)

	s.mu.Lock()
	if err != nil {
		s.responses.Response = errorPayload(err)
		s.failStatus(err)
		s.mu.Unlock()
		return err
	}
	s.responses.Response = view
	s.loaded = view
	s.draft = s.mapper.ApplyViewToDraft(view)
	s.status = nil
	s.mu.Unlock()

	s.saveSnapshot(ctx)
	return nil
}

// CreateView posts the draft as a new view, clears the selection and
// refreshes the list.
func (s *Service) CreateView(ctx context.Context) (interface{}, error) {
	body := s.RequestPreview()

	resp, err := s.api.CreateView(ctx, s.credentials(), body)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	s.recordResponse(resp, "View created.")

	s.sync.Created()
	s.refreshAfterWrite(ctx)
	return resp, nil
}

// UpdateView saves the draft over the selected view. The version that was
// loaded before the update is recorded in its history once the update has
// succeeded.
func (s *Service) UpdateView(ctx context.Context) (interface{}, error) {
	id := s.sync.SelectedID()
	if id == "" {
		return nil, ErrNoSelection
	}
	body := s.RequestPreview()

	s.mu.Lock()
	previous := s.loaded
	s.mu.Unlock()

	resp, err := s.api.UpdateView(ctx, s.credentials(), id, body)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	if previous != nil {
		if err := s.history.Add(ctx, id, previous); err != nil {
			log.Printf("[console] recording history for %s failed: %v", id, err)
		}
	}

	s.mu.Lock()
	if view, ok := resp.(map[string]interface{}); ok {
		s.loaded = view
	} else {
		s.loaded = body
	}
	s.mu.Unlock()
	s.recordResponse(resp, "View updated.")

	s.refreshAfterWrite(ctx)
	return resp, nil
}

// DuplicateView posts a copy of the draft named "<name> (Copy)" and selects
// it.
func (s *Service) DuplicateView(ctx context.Context) (interface{}, error) {
	if s.sync.SelectedID() == "" {
		return nil, ErrNoSelection
	}

	s.mu.Lock()
	d := cloneDraft(s.draft)
	project := s.settings.Project
	s.mu.Unlock()

	d.Name = d.Name + " (Copy)"
	body := s.mapper.BuildRequestBody(d, project).Map()
	s.mu.Lock()
	s.responses.Request = body
	s.mu.Unlock()

	resp, err := s.api.CreateView(ctx, s.credentials(), body)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}
	s.recordResponse(resp, "View duplicated.")

	s.refreshAfterWrite(ctx)
	created, _ := resp.(map[string]interface{})
	if id := draft.ViewID(created); id != "" {
		if err := s.sync.Duplicated(ctx, id); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// DeleteView removes the selected view and clears the selection. Stored
// versions of the view are kept.
func (s *Service) DeleteView(ctx context.Context) error {
	id := s.sync.SelectedID()
	if id == "" {
		return ErrNoSelection
	}

	if _, err := s.api.DeleteView(ctx, s.credentials(), id); err != nil {
		s.recordFailure(err)
		return err
	}

	s.sync.Deleted()
	s.mu.Lock()
	s.loaded = nil
	s.mu.Unlock()
	s.refreshAfterWrite(ctx)
	s.recordResponse(map[string]interface{}{"message": "Deleted."}, "View deleted.")
	return nil
}

// PreviewResults runs the selected view and keeps the result page.
func (s *Service) PreviewResults(ctx context.Context) (interface{}, error) {
	id := s.sync.SelectedID()
	if id == "" {
		s.mu.Lock()
		s.responses.Results = map[string]interface{}{"message": "Select a view first."}
		s.mu.Unlock()
		return nil, ErrNoSelection
	}

	results, err := s.api.Search(ctx, s.credentials(), id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.responses.Results = errorPayload(err)
		s.failStatus(err)
		return nil, err
	}
	s.responses.Results = results
	return results, nil
}

// RestoreVersion loads a history entry of the selected view into the draft.
// Nothing is saved until the draft is updated.
func (s *Service) RestoreVersion(ctx context.Context, index int) (draft.Draft, error) {
	id := s.sync.SelectedID()
	if id == "" {
		return draft.Draft{}, ErrNoSelection
	}
	entry, err := s.history.At(ctx, id, index)
	if err != nil {
		return draft.Draft{}, err
	}

	d := s.mapper.ApplyViewToDraft(entry.Data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
	s.setStatus("info", fmt.Sprintf("Version %d from %s loaded into the draft.", index+1, entry.Timestamp))
	return cloneDraft(d), nil
}

// HistoryForSelected lists the stored versions of the selected view.
func (s *Service) HistoryForSelected(ctx context.Context) ([]history.Entry, error) {
	id := s.sync.SelectedID()
	if id == "" {
		return nil, ErrNoSelection
	}
	return s.history.Get(ctx, id), nil
}

// CurrentViewForComparison is the live version: the request body built from
// a non-empty draft, else the last loaded response.
func (s *Service) CurrentViewForComparison() (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.draft.IsEmpty() {
		return s.mapper.BuildRequestBody(s.draft, s.settings.Project).Map(), true
	}
	if resp, ok := s.responses.Response.(map[string]interface{}); ok && len(resp) > 0 {
		return resp, true
	}
	return nil, false
}

// SelectedViewContext is the list entry of the selected view, for the chat
// assistant.
func (s *Service) SelectedViewContext() (map[string]interface{}, bool) {
	id := s.sync.SelectedID()
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.views {
		if v.ID == id {
			return v.Raw, true
		}
	}
	return nil, false
}

// Navigate loads rawURL as if typed into the address bar.
func (s *Service) Navigate(ctx context.Context, rawURL string) error {
	s.loc.Navigate(rawURL)
	return s.sync.PopState(ctx)
}

func (s *Service) Back(ctx context.Context) (bool, error) {
	if !s.loc.Back() {
		return false, nil
	}
	return true, s.sync.PopState(ctx)
}

func (s *Service) Forward(ctx context.Context) (bool, error) {
	if !s.loc.Forward() {
		return false, nil
	}
	return true, s.sync.PopState(ctx)
}

func (s *Service) URL() string {
	return s.loc.URL()
}

// ClearNotices drops the notices shown so far.
func (s *Service) ClearNotices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = nil
	s.status = nil
}

func (s *Service) credentials() discover.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Credentials()
}

func (s *Service) refreshAfterWrite(ctx context.Context) {
	if _, err := s.LoadViews(ctx); err != nil {
		log.Printf("[console] refreshing views failed: %v", err)
	}
}

func (s *Service) recordResponse(resp interface{}, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses.Response = resp
	s.setStatus("info", message)
}

func (s *Service) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses.Response = errorPayload(err)
	s.failStatus(err)
}

func (s *Service) addNotice(n navigation.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

// setStatus and failStatus expect s.mu to be held.
func (s *Service) setStatus(level, message string) {
	s.status = &Status{Level: level, Message: message}
}

func (s *Service) failStatus(err error) {
	if errors.Is(err, discover.ErrMissingSettings) {
		s.setStatus("warning", ErrNotConfigured.Error())
		return
	}
	s.setStatus("error", err.Error())
}

// saveSnapshot persists the selection and the raw view list so the chat
// assistant can pick up the selected view as context.
func (s *Service) saveSnapshot(ctx context.Context) {
	selected := s.sync.SelectedID()

	s.mu.Lock()
	views := make([]map[string]interface{}, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, v.Raw)
	}
	s.mu.Unlock()

	data, err := json.Marshal(map[string]interface{}{
		"selectedViewId": selected,
		"views":          views,
	})
	if err != nil {
		log.Printf("[console] encoding snapshot failed: %v", err)
		return
	}
	if err := s.kv.Set(ctx, storage.KeyConsoleSnapshot, string(data)); err != nil {
		log.Printf("[console] saving snapshot failed: %v", err)
	}
}
