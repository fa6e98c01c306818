package llm

import (
	"fmt"

	"docanalyser/internal/config"
	"docanalyser/internal/port"
)

// ProviderFactory creates a ChatCompleter from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.ChatCompleter, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewCompleter creates a ChatCompleter from a provider config using the registered factory.
func NewCompleter(cfg *config.LLMProviderConfig) (port.ChatCompleter, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewFromConfig builds a single completer, or a FallbackCompleter when more
// than one provider is configured.
func NewFromConfig(cfg *config.LLMConfig) (port.ChatCompleter, error) {
	provs := cfg.Providers()
	completers := make([]port.ChatCompleter, 0, len(provs))
	names := make([]string, 0, len(provs))
	for _, p := range provs {
		c, err := NewCompleter(p)
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
		names = append(names, p.Provider+":"+c.Model())
	}
	if len(completers) == 1 {
		return completers[0], nil
	}
	return NewFallbackCompleter(completers, names), nil
}
