// Package chat implements the assistant that drafts search views in
// conversation and hands them to the console.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/viewdesk/viewdesk/internal/core/draft"
	"github.com/viewdesk/viewdesk/internal/core/profile"
	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/storage"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrMissingAPIKey      = errors.New("OpenAI API key is not configured")
	ErrEmptyCompletion    = errors.New("completion returned no choices")
	ErrNoAssistantMessage = errors.New("no assistant message to apply")
	ErrNoJSON             = errors.New("no JSON object found in the last assistant message")
	ErrNoSelectedView     = errors.New("no view is selected in the console")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the persisted conversation. The system prompt is never part
// of it; it is rebuilt on every send.
type Transcript struct {
	Messages             []Message `json:"messages"`
	LastAssistantMessage string    `json:"lastAssistantMessage"`
}

// CompletionError wraps a failed completion. The transcript already holds
// the "Error: ..." entry when it is returned.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return e.Err.Error() }
func (e *CompletionError) Unwrap() error { return e.Err }

// draftSchema accepts anything shaped like a SearchViewRequest body.
var draftSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name":             map[string]interface{}{"type": "string"},
		"description":      map[string]interface{}{"type": "string"},
		"scheduleStrategy": map[string]interface{}{"type": "string"},
		"searchRequest": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"facets": map[string]interface{}{"type": []interface{}{"array", "object"}},
			},
		},
	},
}

type Service struct {
	kv          storage.KV
	completer   Completer
	validator   *validation.Validator
	temperature float32

	// serializes read-modify-write of the transcript
	mu sync.Mutex
}

func NewService(kv storage.KV, completer Completer, validator *validation.Validator, temperature float32) *Service {
	return &Service{
		kv:          kv,
		completer:   completer,
		validator:   validator,
		temperature: temperature,
	}
}

func (s *Service) Transcript(ctx context.Context) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTranscript(ctx)
}

// Send appends the user message, asks the model and appends its reply. A
// failed completion is recorded in the transcript as "Error: <message>" and
// returned as a *CompletionError alongside the transcript.
func (s *Service) Send(ctx context.Context, settings profile.Settings, message string) (*Transcript, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if strings.TrimSpace(settings.OpenAIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	model := settings.OpenAIModel
	if model == "" {
		model = profile.DefaultOpenAIModel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.loadTranscript(ctx)
	if err != nil {
		return nil, err
	}
	viewContext, err := s.loadContext(ctx)
	if err != nil {
		return nil, err
	}

	t.Messages = append(t.Messages, Message{Role: RoleUser, Content: message})
	if err := s.saveTranscript(ctx, t); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(t.Messages)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: BuildSystemPrompt(viewContext)})
	messages = append(messages, t.Messages...)

	reply, err := s.completer.Complete(ctx, CompletionRequest{
		APIKey:      settings.OpenAIKey,
		Model:       model,
		Temperature: s.temperature,
		Messages:    messages,
	})
	if err != nil {
		log.Printf("[chat] completion failed: %v", err)
		t.Messages = append(t.Messages, Message{Role: RoleAssistant, Content: "Error: " + err.Error()})
		if saveErr := s.saveTranscript(ctx, t); saveErr != nil {
			return nil, saveErr
		}
		return t, &CompletionError{Err: err}
	}

	t.Messages = append(t.Messages, Message{Role: RoleAssistant, Content: reply})
	t.LastAssistantMessage = reply
	if err := s.saveTranscript(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Clear forgets the conversation. The loaded view context is kept.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, storage.KeyChatHistory)
}

// ApplyLastDraft extracts the JSON from the last assistant reply and stores
// it for the console to pick up on its next bootstrap.
func (s *Service) ApplyLastDraft(ctx context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	t, err := s.loadTranscript(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.LastAssistantMessage) == "" {
		return nil, ErrNoAssistantMessage
	}

	doc, ok := ExtractJSON(t.LastAssistantMessage)
	if !ok {
		return nil, ErrNoJSON
	}
	if err := s.validator.Validate(doc, draftSchema); err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, storage.KeyChatDraft, string(data)); err != nil {
		return nil, fmt.Errorf("store chat draft: %w", err)
	}
	return doc, nil
}

// ConsumeDraft returns the pending chat draft, if any, and removes it.
func (s *Service) ConsumeDraft(ctx context.Context) (map[string]interface{}, bool, error) {
	raw, ok, err := s.kv.Get(ctx, storage.KeyChatDraft)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := s.kv.Delete(ctx, storage.KeyChatDraft); err != nil {
		return nil, false, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		log.Printf("[chat] discarding malformed chat draft: %v", err)
		return nil, false, nil
	}
	return doc, true, nil
}

func (s *Service) Context(ctx context.Context) (map[string]interface{}, error) {
	return s.loadContext(ctx)
}

// LoadContext makes view the subject of the conversation.
func (s *Service) LoadContext(ctx context.Context, view map[string]interface{}) error {
	if view == nil {
		return s.ClearContext(ctx)
	}
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.KeyChatContext, string(data))
}

// LoadContextFromConsole copies the console's selected view into the chat
// context, using the snapshot the console last persisted.
func (s *Service) LoadContextFromConsole(ctx context.Context) (map[string]interface{}, error) {
	raw, ok, err := s.kv.Get(ctx, storage.KeyConsoleSnapshot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSelectedView
	}

	var snapshot struct {
		SelectedViewID string                   `json:"selectedViewId"`
		Views          []map[string]interface{} `json:"views"`
	}
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		log.Printf("[chat] malformed console snapshot: %v", err)
		return nil, ErrNoSelectedView
	}
	if snapshot.SelectedViewID == "" {
		return nil, ErrNoSelectedView
	}

	for _, v := range snapshot.Views {
		if draft.ViewID(v) == snapshot.SelectedViewID {
			if err := s.LoadContext(ctx, v); err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return nil, ErrNoSelectedView
}

func (s *Service) ClearContext(ctx context.Context) error {
	return s.kv.Delete(ctx, storage.KeyChatContext)
}

func (s *Service) loadTranscript(ctx context.Context) (*Transcript, error) {
	t := &Transcript{Messages: []Message{}}
	raw, ok, err := s.kv.Get(ctx, storage.KeyChatHistory)
	if err != nil {
		return nil, err
	}
	if !ok {
		return t, nil
	}
	if err := json.Unmarshal([]byte(raw), t); err != nil {
		log.Printf("[chat] discarding malformed transcript: %v", err)
		return &Transcript{Messages: []Message{}}, nil
	}
	if t.Messages == nil {
		t.Messages = []Message{}
	}
	return t, nil
}

func (s *Service) saveTranscript(ctx context.Context, t *Transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, storage.KeyChatHistory, string(data))
}

func (s *Service) loadContext(ctx context.Context) (map[string]interface{}, error) {
	raw, ok, err := s.kv.Get(ctx, storage.KeyChatContext)
	if err != nil || !ok {
		return nil, err
	}
	var view map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		log.Printf("[chat] discarding malformed view context: %v", err)
		return nil, nil
	}
	return view, nil
}
