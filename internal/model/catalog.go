package model

import "slices"

// ProviderID identifies one backend integration.
type ProviderID string

const (
	ProviderOpenAI    ProviderID = "openai"
	ProviderDeepSeek  ProviderID = "deepseek"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGemini    ProviderID = "gemini"
	ProviderCustom    ProviderID = "custom"
)

// ProviderDescriptor is a static catalog entry.
type ProviderDescriptor struct {
	ID               ProviderID `json:"id"`
	Name             string     `json:"name"`
	DefaultEndpoint  string     `json:"defaultEndpoint"`
	Models           []string   `json:"models"`
	RequiresEndpoint bool       `json:"requiresEndpoint"`
}

var catalog = []ProviderDescriptor{
	{
		ID:              ProviderOpenAI,
		Name:            "OpenAI",
		DefaultEndpoint: "https://api.openai.com/v1/chat/completions",
		Models:          []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
	},
	{
		ID:              ProviderDeepSeek,
		Name:            "DeepSeek",
		DefaultEndpoint: "https://api.deepseek.com/v1/chat/completions",
		Models:          []string{"deepseek-chat", "deepseek-reasoner"},
	},
	{
		ID:              ProviderAnthropic,
		Name:            "Anthropic Claude",
		DefaultEndpoint: "https://api.anthropic.com/v1/messages",
		Models:          []string{"claude-3-5-haiku-latest", "claude-3-5-sonnet-latest"},
	},
	{
		ID:              ProviderGemini,
		Name:            "Google Gemini",
		DefaultEndpoint: "https://generativelanguage.googleapis.com/v1beta/models",
		Models:          []string{"gemini-1.5-flash", "gemini-1.5-pro"},
	},
	{
		ID:               ProviderCustom,
		Name:             "Custom (OpenAI-compatible)",
		RequiresEndpoint: true,
	},
}

// Providers returns a copy of the catalog in display order.
func Providers() []ProviderDescriptor {
	out := make([]ProviderDescriptor, len(catalog))
	for i, d := range catalog {
		d.Models = slices.Clone(d.Models)
		out[i] = d
	}
	return out
}

// Lookup returns the descriptor for id.
func Lookup(id ProviderID) (ProviderDescriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			d.Models = slices.Clone(d.Models)
			return d, true
		}
	}
	return ProviderDescriptor{}, false
}
