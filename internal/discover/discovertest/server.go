// Package discovertest provides an in-memory discover.swiss search view API
// for tests.
package discovertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/viewdesk/viewdesk/config"
	"github.com/viewdesk/viewdesk/internal/discover"
)

// Server serves /search/views and /search from a map of views. Created views
// get ids "v1", "v2", ... after any seeded ones.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	views    map[string]map[string]interface{}
	order    []string
	nextID   int
	requests int

	// FailUpdate makes every PUT answer 400 with a validation message.
	FailUpdate bool
	// Results is returned by GET /search.
	Results map[string]interface{}
}

func NewServer(views ...map[string]interface{}) *Server {
	s := &Server{views: make(map[string]map[string]interface{})}
	for _, v := range views {
		id := fmt.Sprint(v["id"])
		s.views[id] = v
		s.order = append(s.order, id)
	}
	s.nextID = len(views)
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// DiscoverClient returns a client pointed at the fake for both
// environments.
func (s *Server) DiscoverClient() *discover.Client {
	return discover.NewClientWithHTTP(config.DiscoverConfig{
		TestBaseURL: s.URL,
		ProdBaseURL: s.URL,
	}, s.Client())
}

// Requests counts every request served so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) View(id string) (map[string]interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if r.URL.Query().Get("project") == "" || r.Header.Get("Ocp-Apim-Subscription-Key") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "missing subscription key or project"})
		return
	}

	switch {
	case r.URL.Path == "/search":
		results := s.Results
		if results == nil {
			results = map[string]interface{}{"count": 0, "values": []interface{}{}}
		}
		writeJSON(w, http.StatusOK, results)

	case r.URL.Path == "/search/views" && r.Method == http.MethodGet:
		list := make([]interface{}, 0, len(s.order))
		for _, id := range s.order {
			list = append(list, s.views[id])
		}
		writeJSON(w, http.StatusOK, list)

	case r.URL.Path == "/search/views" && r.Method == http.MethodPost:
		body, ok := decode(w, r)
		if !ok {
			return
		}
		s.nextID++
		id := fmt.Sprintf("v%d", s.nextID)
		body["id"] = id
		s.views[id] = body
		s.order = append(s.order, id)
		writeJSON(w, http.StatusCreated, body)

	case strings.HasPrefix(r.URL.Path, "/search/views/"):
		s.handleView(w, r, strings.TrimPrefix(r.URL.Path, "/search/views/"))

	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "no route"})
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, id string) {
	view, exists := s.views[id]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": "view " + id + " not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, view)
	case http.MethodPut:
		if s.FailUpdate {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "validation failed",
				"errors":  []interface{}{map[string]interface{}{"field": "facets", "message": "invalid"}},
			})
			return
		}
		body, ok := decode(w, r)
		if !ok {
			return
		}
		body["id"] = id
		s.views[id] = body
		writeJSON(w, http.StatusOK, body)
	case http.MethodDelete:
		delete(s.views, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func decode(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("malformed body"))
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
