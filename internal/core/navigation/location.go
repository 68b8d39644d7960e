// Package navigation keeps the selected view and the viewId URL parameter
// in sync.
package navigation

import (
	"net/url"
	"sync"
)

const ParamViewID = "viewId"

// Location is the address bar: a URL whose viewId parameter can be written
// as a new history entry (Push) or in place (Replace). An empty id removes
// the parameter.
type Location interface {
	ViewID() string
	Push(viewID string)
	Replace(viewID string)
}

// MemoryLocation is a browser-style history stack of URLs.
type MemoryLocation struct {
	mu      sync.Mutex
	entries []string
	index   int
}

func NewMemoryLocation(initial string) *MemoryLocation {
	if initial == "" {
		initial = "/"
	}
	return &MemoryLocation{entries: []string{initial}}
}

func (l *MemoryLocation) URL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[l.index]
}

func (l *MemoryLocation) ViewID() string {
	return viewIDOf(l.URL())
}

func (l *MemoryLocation) Push(viewID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push(withViewID(l.entries[l.index], viewID))
}

func (l *MemoryLocation) Replace(viewID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.index] = withViewID(l.entries[l.index], viewID)
}

// Navigate pushes an arbitrary URL, as typing into the address bar does.
func (l *MemoryLocation) Navigate(rawURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push(rawURL)
}

func (l *MemoryLocation) Back() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index == 0 {
		return false
	}
	l.index--
	return true
}

func (l *MemoryLocation) Forward() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index >= len(l.entries)-1 {
		return false
	}
	l.index++
	return true
}

func (l *MemoryLocation) CanGoBack() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index > 0
}

func (l *MemoryLocation) CanGoForward() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index < len(l.entries)-1
}

// push drops any forward entries, like a browser does.
func (l *MemoryLocation) push(u string) {
	if u == l.entries[l.index] {
		return
	}
	l.entries = append(l.entries[:l.index+1], u)
	l.index = len(l.entries) - 1
}

func viewIDOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(ParamViewID)
}

func withViewID(raw, viewID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	if viewID == "" {
		q.Del(ParamViewID)
	} else {
		q.Set(ParamViewID, viewID)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
