package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viewdesk/viewdesk/internal/core/validation"
	"github.com/viewdesk/viewdesk/internal/discover"
	"github.com/viewdesk/viewdesk/internal/storage"
)

var profileSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name", "apiKey", "project"},
	"properties": map[string]interface{}{
		"name":    map[string]interface{}{"type": "string", "minLength": 1},
		"apiKey":  map[string]interface{}{"type": "string", "minLength": 1},
		"project": map[string]interface{}{"type": "string", "minLength": 1},
		"env":     map[string]interface{}{"type": "string", "enum": []interface{}{discover.EnvTest, discover.EnvProd}},
	},
}

var importSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"configs"},
	"properties": map[string]interface{}{
		"configs":         map[string]interface{}{"type": "object"},
		"currentConfigId": map[string]interface{}{"type": []interface{}{"string", "null"}},
	},
}

type Service struct {
	kv        storage.KV
	validator *validation.Validator
	now       func() time.Time

	mu sync.Mutex
}

func NewService(kv storage.KV, validator *validation.Validator) *Service {
	return &Service{kv: kv, validator: validator, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(configs))
	for id, p := range configs {
		entries = append(entries, Entry{ID: id, Active: id == current, Profile: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Profile.Name != entries[j].Profile.Name {
			return entries[i].Profile.Name < entries[j].Profile.Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// Save creates (empty id) or replaces a profile and makes it the active one.
// It returns the profile id.
func (s *Service) Save(ctx context.Context, id string, p Profile) (string, error) {
	p = trimProfile(p)
	if p.Env == "" {
		p.Env = discover.EnvTest
	}
	if err := s.validate(p); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = s.newID()
	} else if _, ok := configs[id]; !ok {
		return "", ErrNotFound
	}

	configs[id] = p
	if err := s.saveConfigs(ctx, configs); err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, storage.KeyCurrentProfile, id); err != nil {
		return "", fmt.Errorf("persist active profile: %w", err)
	}
	return id, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return err
	}
	if _, ok := configs[id]; !ok {
		return ErrNotFound
	}
	delete(configs, id)
	if err := s.saveConfigs(ctx, configs); err != nil {
		return err
	}

	current, err := s.currentID(ctx)
	if err != nil {
		return err
	}
	if current == id {
		return s.kv.Delete(ctx, storage.KeyCurrentProfile)
	}
	return nil
}

func (s *Service) Activate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return err
	}
	if _, ok := configs[id]; !ok {
		return ErrNotFound
	}
	return s.kv.Set(ctx, storage.KeyCurrentProfile, id)
}

// CurrentSettings migrates a legacy settings document if needed and returns
// the active profile over the defaults.
func (s *Service) CurrentSettings(ctx context.Context) (Settings, error) {
	if _, err := s.MigrateLegacy(ctx); err != nil {
		log.Printf("[profile] legacy settings migration failed: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()
	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return settings, err
	}
	current, err := s.currentID(ctx)
	if err != nil {
		return settings, err
	}
	p, ok := configs[current]
	if !ok {
		return settings, nil
	}

	settings.ProfileID = current
	settings.Name = p.Name
	settings.APIKey = p.APIKey
	settings.Project = p.Project
	settings.OpenAIKey = p.OpenAIKey
	if p.Env != "" {
		settings.Env = p.Env
	}
	if p.OpenAIModel != "" {
		settings.OpenAIModel = p.OpenAIModel
	}
	return settings, nil
}

// MigrateLegacy turns the single-profile settings document of older
// installs into a named profile. It only runs while no profiles exist.
func (s *Service) MigrateLegacy(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return false, err
	}
	if len(configs) > 0 {
		return false, nil
	}

	raw, ok, err := s.kv.Get(ctx, storage.KeyLegacySettings)
	if err != nil || !ok {
		return false, err
	}

	var legacy legacySettings
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return false, fmt.Errorf("decode legacy settings: %w", err)
	}
	if legacy.APIKey == "" && legacy.Project == "" {
		return false, nil
	}

	p := Profile{
		Name:        MigratedName,
		APIKey:      legacy.APIKey,
		Project:     legacy.Project,
		OpenAIKey:   legacy.OpenAIKey,
		OpenAIModel: legacy.OpenAIModel,
		Env:         legacy.Env,
	}
	if p.OpenAIModel == "" {
		p.OpenAIModel = DefaultOpenAIModel
	}
	if p.Env == "" {
		p.Env = discover.EnvTest
	}

	configs[MigratedProfileID] = p
	if err := s.saveConfigs(ctx, configs); err != nil {
		return false, err
	}
	if err := s.kv.Set(ctx, storage.KeyCurrentProfile, MigratedProfileID); err != nil {
		return false, err
	}
	if err := s.kv.Delete(ctx, storage.KeyLegacySettings); err != nil {
		return false, err
	}
	log.Printf("[profile] migrated legacy settings to %s", MigratedProfileID)
	return true, nil
}

func (s *Service) Export(ctx context.Context) (*ExportDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	configs, err := s.loadConfigs(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	return &ExportDocument{
		Version:         ExportVersion,
		ExportedAt:      s.now().UTC().Format(time.RFC3339),
		Configs:         configs,
		CurrentConfigID: current,
	}, nil
}

// Import replaces every stored profile with the ones in raw. Entries without
// a name are discarded. Existing profiles are only replaced when confirm is
// set; nothing is changed on any error.
func (s *Service) Import(ctx context.Context, raw []byte, confirm bool) (*ImportResult, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, &validation.ValidationErrors{Errors: []validation.ValidationError{
			{Field: "(root)", Message: "document must be a JSON object"},
		}}
	}
	if err := s.validator.Validate(doc, importSchema); err != nil {
		return nil, err
	}

	entries := doc["configs"].(map[string]interface{})
	imported := make(map[string]Profile, len(entries))
	for id, v := range entries {
		p, ok := decodeImportedProfile(v)
		if !ok {
			continue
		}
		imported[id] = p
	}
	if len(imported) == 0 {
		return nil, ErrNoValidProfiles
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadConfigs(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !confirm {
		return nil, ErrConfirmationRequired
	}

	if err := s.saveConfigs(ctx, imported); err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: len(imported), Discarded: len(entries) - len(imported)}

	current, _ := doc["currentConfigId"].(string)
	if _, ok := imported[current]; ok {
		result.CurrentConfigID = current
		return result, s.kv.Set(ctx, storage.KeyCurrentProfile, current)
	}
	active, err := s.currentID(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := imported[active]; ok {
		result.CurrentConfigID = active
		return result, nil
	}
	return result, s.kv.Delete(ctx, storage.KeyCurrentProfile)
}

func decodeImportedProfile(v interface{}) (Profile, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return Profile{}, false
	}
	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Profile{}, false
	}

	data, err := json.Marshal(m)
	if err != nil {
		return Profile{}, false
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false
	}
	p = trimProfile(p)
	if p.Env == "" {
		p.Env = discover.EnvTest
	}
	return p, true
}

func (s *Service) validate(p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	return s.validator.Validate(doc, profileSchema)
}

func (s *Service) newID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("config_%d_%s", s.now().UnixMilli(), suffix)
}

func (s *Service) loadConfigs(ctx context.Context) (map[string]Profile, error) {
	raw, ok, err := s.kv.Get(ctx, storage.KeyProfiles)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	configs := map[string]Profile{}
	if !ok || raw == "" {
		return configs, nil
	}
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		log.Printf("[profile] discarding malformed profiles document: %v", err)
		return map[string]Profile{}, nil
	}
	if configs == nil {
		configs = map[string]Profile{}
	}
	return configs, nil
}

func (s *Service) saveConfigs(ctx context.Context, configs map[string]Profile) error {
	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyProfiles, string(data)); err != nil {
		return fmt.Errorf("persist profiles: %w", err)
	}
	return nil
}

func (s *Service) currentID(ctx context.Context) (string, error) {
	id, _, err := s.kv.Get(ctx, storage.KeyCurrentProfile)
	if err != nil {
		return "", fmt.Errorf("read active profile: %w", err)
	}
	return id, nil
}

func trimProfile(p Profile) Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.Project = strings.TrimSpace(p.Project)
	p.Env = strings.TrimSpace(p.Env)
	p.OpenAIKey = strings.TrimSpace(p.OpenAIKey)
	p.OpenAIModel = strings.TrimSpace(p.OpenAIModel)
	return p
}
