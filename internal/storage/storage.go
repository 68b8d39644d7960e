// Package storage defines the durable key-value store the console persists
// its documents in, plus an in-memory implementation.
package storage

import (
	"context"
	"sync"
)

// Keys shared by the console components. Each key holds one JSON document.
const (
	KeyProfiles        = "aiviewmanager.configs"
	KeyCurrentProfile  = "aiviewmanager.current_config"
	KeyLegacySettings  = "aiviewmanager.settings"
	KeyViewHistory     = "aiviewmanager.view_history"
	KeyChatDraft       = "aiviewmanager.chatbot.draft"
	KeyChatContext     = "aiviewmanager.chatbot.context"
	KeyChatHistory     = "aiviewmanager.chatbot.history"
	KeyConsoleSnapshot = "aiviewmanager.state"
)

// KV is a string key-value store. Get reports a missing key with ok=false and
// a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
