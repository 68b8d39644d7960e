package navigation

import (
	"context"
	"fmt"
	"log"
	"sync"
)

type State string

const (
	NoSelection State = "no_selection"
	Resolving   State = "resolving"
	Selected    State = "selected"
)

// Target is the side of the console that knows which views exist and can
// load one into the editor.
type Target interface {
	KnownViewIDs() []string
	LoadView(ctx context.Context, viewID string) error
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Snapshot struct {
	State      State  `json:"state"`
	SelectedID string `json:"selectedViewId,omitempty"`
	URLViewID  string `json:"urlViewId,omitempty"`
}

type urlUpdate int

const (
	urlNone urlUpdate = iota
	urlPush
	urlReplace
)

// Synchronizer drives the NoSelection -> Resolving -> Selected state machine
// and writes every selection change back to the Location.
type Synchronizer struct {
	mu       sync.Mutex
	loc      Location
	target   Target
	notify   func(Notice)
	state    State
	selected string
}

func NewSynchronizer(loc Location, target Target, notify func(Notice)) *Synchronizer {
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Synchronizer{loc: loc, target: target, notify: notify, state: NoSelection}
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, SelectedID: s.selected, URLViewID: s.loc.ViewID()}
}

func (s *Synchronizer) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Startup resolves a viewId present in the initial URL. It only runs when
// the console is ready to talk to the API; an id the freshly loaded list
// does not contain is reported exactly once and leaves nothing selected.
func (s *Synchronizer) Startup(ctx context.Context, ready bool) error {
	id := s.loc.ViewID()
	if id == "" || !ready {
		return nil
	}

	if !contains(s.target.KnownViewIDs(), id) {
		s.mu.Lock()
		s.state, s.selected = NoSelection, ""
		s.loc.Replace("")
		s.mu.Unlock()
		s.notify(Notice{Level: "warning", Message: fmt.Sprintf("View %q from the link was not found.", id)})
		return nil
	}

	return s.resolve(ctx, id, urlReplace)
}

// Select is a user-initiated selection and adds a history entry.
func (s *Synchronizer) Select(ctx context.Context, id string) error {
	if id == "" {
		s.Clear()
		return nil
	}
	return s.resolve(ctx, id, urlPush)
}

// Duplicated selects a freshly created copy.
func (s *Synchronizer) Duplicated(ctx context.Context, id string) error {
	return s.Select(ctx, id)
}

// Created clears the selection after a new view was posted.
func (s *Synchronizer) Created() {
	s.Clear()
}

func (s *Synchronizer) Deleted() {
	s.Clear()
}

func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state, s.selected = NoSelection, ""
	s.loc.Replace("")
}

// PopState re-resolves the selection after back/forward navigation without
// adding history entries or reporting missing views.
func (s *Synchronizer) PopState(ctx context.Context) error {
	id := s.loc.ViewID()

	s.mu.Lock()
	if id == "" {
		s.state, s.selected = NoSelection, ""
		s.mu.Unlock()
		return nil
	}
	if id == s.selected && s.state == Selected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if !contains(s.target.KnownViewIDs(), id) {
		s.Clear()
		return nil
	}
	return s.resolve(ctx, id, urlNone)
}

func (s *Synchronizer) resolve(ctx context.Context, id string, update urlUpdate) error {
	s.mu.Lock()
	s.state, s.selected = Resolving, id
	switch update {
	case urlPush:
		s.loc.Push(id)
	case urlReplace:
		s.loc.Replace(id)
	}
	s.mu.Unlock()

	err := s.target.LoadView(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != id {
		// a newer selection took over while this one was loading
		return err
	}
	if err != nil {
		log.Printf("[navigation] failed to load view %s: %v", id, err)
		s.state, s.selected = NoSelection, ""
		s.loc.Replace("")
		return err
	}
	s.state = Selected
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
