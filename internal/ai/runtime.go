package ai

import "context"

// Runtime is implemented by model backends (Ollama, OpenAI-compatible, Gemini).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors should invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}

// Provider identifiers used for runtime selection.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// NormalizeProvider maps aliases to a canonical provider name.
func NormalizeProvider(name string) string {
	switch name {
	case "", "local", "ollama", "Ollama", "OLLAMA":
		return ProviderOllama
	case "openai", "openai-compatible", "OpenAI", "OPENAI":
		return ProviderOpenAI
	case "gemini", "google", "Gemini", "GEMINI":
		return ProviderGemini
	}
	return name
}
