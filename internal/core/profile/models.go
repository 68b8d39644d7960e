package profile

import (
	"errors"

	"github.com/viewdesk/viewdesk/internal/discover"
)

var (
	ErrNotFound             = errors.New("profile not found")
	ErrNoValidProfiles      = errors.New("import contains no profile with a name")
	ErrConfirmationRequired = errors.New("import would replace existing profiles; confirmation required")
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	MigratedProfileID  = "config_migrated"
	MigratedName       = "Default Configuration"
	ExportVersion      = 1
)

// Profile is a named set of credentials for one discover.swiss project.
type Profile struct {
	Name        string `json:"name"`
	APIKey      string `json:"apiKey"`
	Project     string `json:"project"`
	Env         string `json:"env"`
	OpenAIKey   string `json:"openaiKey,omitempty"`
	OpenAIModel string `json:"openaiModel,omitempty"`
}

type Entry struct {
	ID      string  `json:"id"`
	Active  bool    `json:"active"`
	Profile Profile `json:"profile"`
}

// Settings are the active profile merged over the defaults.
type Settings struct {
	ProfileID   string `json:"profileId,omitempty"`
	Name        string `json:"name,omitempty"`
	APIKey      string `json:"apiKey"`
	Project     string `json:"project"`
	Env         string `json:"env"`
	OpenAIKey   string `json:"openaiKey"`
	OpenAIModel string `json:"openaiModel"`
}

func DefaultSettings() Settings {
	return Settings{OpenAIModel: DefaultOpenAIModel, Env: discover.EnvTest}
}

func (s Settings) Credentials() discover.Credentials {
	return discover.Credentials{APIKey: s.APIKey, Project: s.Project, Env: s.Env}
}

func (s Settings) Ready() bool {
	return s.Credentials().Ready()
}

// Redacted hides secrets for display.
func (s Settings) Redacted() Settings {
	s.APIKey = mask(s.APIKey)
	s.OpenAIKey = mask(s.OpenAIKey)
	return s
}

func (p Profile) Redacted() Profile {
	p.APIKey = mask(p.APIKey)
	p.OpenAIKey = mask(p.OpenAIKey)
	return p
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// ExportDocument is the downloadable form of every stored profile.
type ExportDocument struct {
	Version         int                `json:"version"`
	ExportedAt      string             `json:"exportedAt"`
	Configs         map[string]Profile `json:"configs"`
	CurrentConfigID string             `json:"currentConfigId,omitempty"`
}

type ImportResult struct {
	Imported        int    `json:"imported"`
	Discarded       int    `json:"discarded"`
	CurrentConfigID string `json:"currentConfigId,omitempty"`
}

// legacySettings is the single-profile document older installs stored.
type legacySettings struct {
	APIKey      string `json:"apiKey"`
	Project     string `json:"project"`
	OpenAIKey   string `json:"openaiKey"`
	OpenAIModel string `json:"openaiModel"`
	Env         string `json:"env"`
}
