package ai

import "strings"

// ModelInfo records the approximate context window of common local models.
// It is used to size prompts; unknown models fall back to DefaultContextTokens.
type ModelInfo struct {
	Name          string
	ContextTokens int
}

// DefaultContextTokens is assumed for models missing from the catalog.
const DefaultContextTokens = 8192

var models = map[string]ModelInfo{
	"llama3.2":         {Name: "llama3.2", ContextTokens: 128000},
	"llama3.1":         {Name: "llama3.1", ContextTokens: 128000},
	"llama3":           {Name: "llama3", ContextTokens: 8192},
	"mistral":          {Name: "mistral", ContextTokens: 32768},
	"qwen2.5":          {Name: "qwen2.5", ContextTokens: 32768},
	"phi3":             {Name: "phi3", ContextTokens: 4096},
	"gemma2":           {Name: "gemma2", ContextTokens: 8192},
	"gemini-2.0-flash": {Name: "gemini-2.0-flash", ContextTokens: 1000000},
	"gemini-1.5-flash": {Name: "gemini-1.5-flash", ContextTokens: 1000000},
}

// LookupModel returns catalog info. Ollama tags ("llama3.2:3b") match their base name.
func LookupModel(name string) (ModelInfo, bool) {
	if mi, ok := models[name]; ok {
		return mi, true
	}
	if i := strings.IndexByte(name, ':'); i > 0 {
		if mi, ok := models[name[:i]]; ok {
			return mi, true
		}
	}
	return ModelInfo{}, false
}

// PromptBudget returns the tokens left for the prompt once maxTokens are
// reserved for the completion. It never returns less than a quarter of the window.
func PromptBudget(model string, maxTokens int) int {
	ctxTokens := DefaultContextTokens
	if mi, ok := LookupModel(model); ok {
		ctxTokens = mi.ContextTokens
	}
	budget := ctxTokens - maxTokens
	if budget < ctxTokens/4 {
		budget = ctxTokens / 4
	}
	return budget
}
