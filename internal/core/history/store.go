// Package history keeps a capped, newest-first list of previous server
// responses per view, persisted as a single document in the KV store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/viewdesk/viewdesk/internal/storage"
)

const DefaultLimit = 20

var ErrVersionNotFound = errors.New("version not found")

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

type document map[string][]Entry

type Store struct {
	kv    storage.KV
	limit int
	now   func() time.Time

	// serializes read-modify-write cycles on the shared document
	mu sync.Mutex
}

func NewStore(kv storage.KV, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{kv: kv, limit: limit, now: time.Now}
}

func (s *Store) Limit() int {
	return s.limit
}

// Add prepends a snapshot for viewID and truncates the list to the limit.
// An empty viewID is ignored.
func (s *Store) Add(ctx context.Context, viewID string, data map[string]interface{}) error {
	if viewID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	entry := Entry{
		Timestamp: s.now().UTC().Format(TimestampLayout),
		Data:      data,
	}

	entries := append([]Entry{entry}, doc[viewID]...)
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	doc[viewID] = entries

	return s.save(ctx, doc)
}

// Get returns the entries for viewID, newest first. It never returns nil;
// storage and decoding failures are logged and yield an empty list.
func (s *Store) Get(ctx context.Context, viewID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(ctx)[viewID]
	if entries == nil {
		return []Entry{}
	}
	return entries
}

func (s *Store) At(ctx context.Context, viewID string, index int) (Entry, error) {
	entries := s.Get(ctx, viewID)
	if index < 0 || index >= len(entries) {
		return Entry{}, fmt.Errorf("%w: %s[%d]", ErrVersionNotFound, viewID, index)
	}
	return entries[index], nil
}

func (s *Store) load(ctx context.Context) document {
	raw, ok, err := s.kv.Get(ctx, storage.KeyViewHistory)
	if err != nil {
		log.Printf("[history] failed to read history: %v", err)
		return document{}
	}
	if !ok || raw == "" {
		return document{}
	}

	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		log.Printf("[history] discarding malformed history document: %v", err)
		return document{}
	}
	return doc
}

func (s *Store) save(ctx context.Context, doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyViewHistory, string(data)); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}
