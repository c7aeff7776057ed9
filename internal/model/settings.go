package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrMissingAPIKey   = errors.New("API key is not configured")
	ErrMissingModel    = errors.New("model name is not configured")
	ErrMissingEndpoint = errors.New("API endpoint is required for this provider")
)

// Settings selects and configures the active backend.
type Settings struct {
	LLMProvider ProviderID `json:"llmProvider"`
	APIKey      string     `json:"apiKey"`
	ModelName   string     `json:"modelName"`
	// APIEndpoint overrides the provider default. Empty means absent.
	APIEndpoint string `json:"apiEndpoint,omitempty"`
}

// DefaultSettings is used on cold start.
func DefaultSettings() Settings {
	return Settings{LLMProvider: ProviderOpenAI, ModelName: "gpt-4o-mini"}
}

// Validate checks the settings are complete enough to send a request.
func (s Settings) Validate() error {
	d, ok := Lookup(s.LLMProvider)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, s.LLMProvider)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(s.ModelName) == "" {
		return ErrMissingModel
	}
	if d.RequiresEndpoint && strings.TrimSpace(s.APIEndpoint) == "" {
		return ErrMissingEndpoint
	}
	return nil
}

// Endpoint returns the configured endpoint or the provider default.
func (s Settings) Endpoint() string {
	if e := strings.TrimSpace(s.APIEndpoint); e != "" {
		return e
	}
	d, _ := Lookup(s.LLMProvider)
	return d.DefaultEndpoint
}

// Masked returns a copy safe to show: the API key keeps only its last four
// characters.
func (s Settings) Masked() Settings {
	k := s.APIKey
	switch {
	case k == "":
	case len(k) <= 4:
		s.APIKey = strings.Repeat("*", len(k))
	default:
		s.APIKey = strings.Repeat("*", len(k)-4) + k[len(k)-4:]
	}
	return s
}
