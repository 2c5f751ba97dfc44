// Package provider
package provider

import (
	"github.com/papercomputeco/reel/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/reel/pkg/llm/provider/ollama"
	"github.com/papercomputeco/reel/pkg/llm/provider/openai"
)

// Detector manages provider detection by checking registered providers in order.
type Detector struct {
	providers []Provider
}

// NewDetector creates a new Detector with the default set of providers.
// Providers are checked in order: Anthropic, Ollama, then OpenAI. OpenAI
// doubles as the fallback because "OpenAI-compatible" is the de facto wire
// format of self-hosted backends.
func NewDetector() *Detector {
	return &Detector{
		providers: []Provider{
			anthropic.New(),
			ollama.New(),
			openai.New(),
		},
	}
}

// Detect returns the appropriate provider for the given payload.
// It iterates through registered providers and returns the first one
// that reports it can handle the payload. If no provider matches,
// OpenAI is returned as the fallback.
func (d *Detector) Detect(payload []byte) Provider {
	for _, p := range d.providers {
		if p.CanHandle(payload) {
			return p
		}
	}
	return openai.New()
}
