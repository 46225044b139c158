package arrakis

import "fmt"

// Provider identifies which backend language-model vendor serves a request.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGroq      Provider = "groq"
	ProviderAnthropic Provider = "anthropic"
)

// API selects a provider and one of that provider's models. The pair is
// carried through requests opaquely; the client never interprets it.
type API struct {
	Provider Provider `json:"provider"`
	Model    string   `json:"model"`
}

// providerModels is the closed set of models accepted per provider.
// Adding a model means adding it here and seeding it in the backend
// models table.
var providerModels = map[Provider][]string{
	ProviderOpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"o1-preview",
		"o1-mini",
	},
	ProviderGroq: {
		"llama3-70b-8192",
	},
	ProviderAnthropic: {
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
		"claude-3-5-sonnet-latest",
		"claude-3-5-haiku-latest",
	},
}

// Providers returns the closed provider set.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderGroq, ProviderAnthropic}
}

// ModelsFor returns the models accepted for a provider, or nil for an
// unknown provider.
func ModelsFor(p Provider) []string {
	return providerModels[p]
}

// NewAPI builds a validated provider/model pair.
func NewAPI(provider, model string) (API, error) {
	api := API{Provider: Provider(provider), Model: model}
	if err := api.Validate(); err != nil {
		return API{}, err
	}
	return api, nil
}

// Validate checks that the model belongs to the provider's enumerated set.
// Cross-provider combinations are invalid.
func (a API) Validate() error {
	models, ok := providerModels[a.Provider]
	if !ok {
		return fmt.Errorf("unknown provider: %q", a.Provider)
	}
	for _, m := range models {
		if m == a.Model {
			return nil
		}
	}
	return fmt.Errorf("unknown %s model: %q", a.Provider, a.Model)
}
