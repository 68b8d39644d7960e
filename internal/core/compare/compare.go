// Package compare diffs stored versions of a view against each other or
// against the live editing state.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viewdesk/viewdesk/internal/core/diff"
	"github.com/viewdesk/viewdesk/internal/core/history"
)

var (
	ErrNoCurrent        = errors.New("no current version available")
	ErrSameVersion      = errors.New("cannot compare a version with itself")
	ErrInvalidSelection = errors.New("invalid version selection")
)

// CurrentIndex is the ordering key of the live version. History entries use
// their index, so a smaller key is always newer.
const CurrentIndex = -1

// Selection names one version: the live one or a history index.
type Selection struct {
	Index int
}

var Current = Selection{Index: CurrentIndex}

func History(index int) Selection {
	return Selection{Index: index}
}

func (s Selection) IsCurrent() bool {
	return s.Index == CurrentIndex
}

func (s Selection) String() string {
	if s.IsCurrent() {
		return "current"
	}
	return "history:" + strconv.Itoa(s.Index)
}

// ParseSelection accepts "current", "history:<n>" or "<n>".
func ParseSelection(raw string) (Selection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "current" {
		return Current, nil
	}
	raw = strings.TrimPrefix(raw, "history:")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return Selection{}, fmt.Errorf("%w: %q", ErrInvalidSelection, raw)
	}
	return History(n), nil
}

// CurrentSource supplies the live version of the selected view.
type CurrentSource interface {
	CurrentViewForComparison() (map[string]interface{}, bool)
}

type VersionLabel struct {
	Selection string `json:"selection"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp,omitempty"`
}

type Comparison struct {
	Older VersionLabel `json:"older"`
	Newer VersionLabel `json:"newer"`
	Rows  []diff.Row   `json:"rows"`
	Stats diff.Stats   `json:"stats"`
}

// Summary is the change count of one history entry against the live version.
type Summary struct {
	Index     int        `json:"index"`
	Timestamp string     `json:"timestamp"`
	Stats     diff.Stats `json:"stats"`
}

type Service struct {
	history *history.Store
	current CurrentSource
}

func NewService(h *history.Store, current CurrentSource) *Service {
	return &Service{history: h, current: current}
}

// CompareWithCurrent diffs history entry index (older) against the live
// version (newer).
func (s *Service) CompareWithCurrent(ctx context.Context, viewID string, index int) (*Comparison, error) {
	return s.CompareVersions(ctx, viewID, History(index), Current)
}

// CompareVersions diffs two versions. The direction is always older to
// newer, whatever order a and b are given in.
func (s *Service) CompareVersions(ctx context.Context, viewID string, a, b Selection) (*Comparison, error) {
	if a == b {
		return nil, ErrSameVersion
	}

	older, newer := a, b
	if older.Index < newer.Index {
		older, newer = newer, older
	}

	entries := s.history.Get(ctx, viewID)

	oldData, oldLabel, err := s.resolve(entries, older)
	if err != nil {
		return nil, err
	}
	newData, newLabel, err := s.resolve(entries, newer)
	if err != nil {
		return nil, err
	}

	rows, err := diff.ComputeLineDiff(oldData, newData)
	if err != nil {
		return nil, fmt.Errorf("diff versions: %w", err)
	}

	return &Comparison{
		Older: oldLabel,
		Newer: newLabel,
		Rows:  rows,
		Stats: diff.GetDiffStats(rows),
	}, nil
}

// Summaries returns per-entry change counts against the live version. Full
// rows are only computed on request through CompareWithCurrent.
func (s *Service) Summaries(ctx context.Context, viewID string) ([]Summary, error) {
	current, ok := s.current.CurrentViewForComparison()
	if !ok {
		return nil, ErrNoCurrent
	}
	currentLines, err := diff.Lines(current)
	if err != nil {
		return nil, err
	}

	entries := s.history.Get(ctx, viewID)
	out := make([]Summary, 0, len(entries))
	for i, e := range entries {
		lines, err := diff.Lines(e.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{
			Index:     i,
			Timestamp: e.Timestamp,
			Stats:     diff.GetDiffStats(diff.DiffLines(lines, currentLines)),
		})
	}
	return out, nil
}

func (s *Service) resolve(entries []history.Entry, sel Selection) (map[string]interface{}, VersionLabel, error) {
	if sel.IsCurrent() {
		current, ok := s.current.CurrentViewForComparison()
		if !ok {
			return nil, VersionLabel{}, ErrNoCurrent
		}
		return current, VersionLabel{Selection: sel.String(), Title: "Current"}, nil
	}

	if sel.Index < 0 || sel.Index >= len(entries) {
		return nil, VersionLabel{}, fmt.Errorf("%w: index %d", history.ErrVersionNotFound, sel.Index)
	}
	e := entries[sel.Index]
	return e.Data, VersionLabel{
		Selection: sel.String(),
		Title:     fmt.Sprintf("Version %d", sel.Index+1),
		Timestamp: e.Timestamp,
	}, nil
}
