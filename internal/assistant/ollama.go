package assistant

import (
	openai "github.com/sashabaranov/go-openai"
)

// NewOllamaProvider creates a new OpenAI provider configured for local Ollama
func NewOllamaProvider(host string, model string) *OpenAIProvider {
	if host == "" {
		host = "http://localhost:11434/v1"
	}
	if model == "" {
		model = "llama3.1" // Needs a local model with tool calling support
	}

	config := openai.DefaultConfig("ollama") // API Key is ignored by Ollama usually
	config.BaseURL = host

	p := newOpenAIProvider(config, model)
	p.embeddingModel = "nomic-embed-text"
	return p
}
