package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/reinhart/sqlagent/internal/assistant"
	"github.com/reinhart/sqlagent/internal/configuration"
	"github.com/reinhart/sqlagent/internal/logger"
)

// errMissingKey is returned after the setup hint has been printed
var errMissingKey = errors.New("api key not set")

// providers groups the engines one run needs
type providers struct {
	chat    assistant.LLMProvider
	checker assistant.LLMProvider
	// embeddingModel names the vectors cached by the noun index
	embeddingModel string
	close          func()
}

func printMissingKey(env, example, tomlKey string) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("❌ Error: %s not set\n", env)
	fmt.Println("")
	fmt.Println("Set it via environment variable or a .env file:")
	fmt.Printf("  export %s='%s'\n", env, example)
	fmt.Println("")
	fmt.Println("Or add it to ~/.config/sqlagent/config.toml:")
	fmt.Println("  [llm]")
	fmt.Printf("  %s = \"%s\"\n", tomlKey, example)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// buildProviders selects the chat engine from config. The checker uses
// llm.checker_model where the backend can switch models, otherwise the
// chat engine itself. Both are wrapped with timeout and retry handling.
func buildProviders(ctx context.Context, cfg *configuration.Config) (*providers, error) {
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	wrap := func(p assistant.LLMProvider) assistant.LLMProvider {
		return assistant.NewRetryingProvider(p, timeout, cfg.LLM.MaxRetries)
	}

	providerType := strings.ToLower(cfg.LLM.Provider)
	logger.Debug("Selected Provider: %s", providerType)

	out := &providers{close: func() {}}
	switch providerType {
	case "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			printMissingKey("ANTHROPIC_API_KEY", "sk-ant-...", "anthropic_api_key")
			return nil, errMissingKey
		}
		model := cfg.LLM.AnthropicModel
		if model == "" {
			model = os.Getenv("ANTHROPIC_MODEL")
		}
		out.chat = wrap(assistant.NewAnthropicProvider(cfg.LLM.AnthropicKey, model))
		out.checker = out.chat

	case "gemini":
		if cfg.LLM.GeminiKey == "" {
			printMissingKey("GEMINI_API_KEY", "...", "gemini_api_key")
			return nil, errMissingKey
		}
		model := cfg.LLM.GeminiModel
		if model == "" {
			model = os.Getenv("GEMINI_MODEL")
		}
		gp, err := assistant.NewGeminiProvider(ctx, cfg.LLM.GeminiKey, model)
		if err != nil {
			return nil, fmt.Errorf("initializing Gemini: %w", err)
		}
		out.chat = wrap(gp)
		out.checker = out.chat
		out.close = func() { _ = gp.Close() }

	case "ollama":
		host := cfg.LLM.OllamaHost
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		model := cfg.LLM.OllamaModel
		if model == "" {
			model = os.Getenv("OLLAMA_MODEL")
		}
		op := assistant.NewOllamaProvider(host, model).WithEmbeddingModel(cfg.LLM.EmbeddingModel)
		out.chat = wrap(op)
		out.checker = wrap(op.WithModel(cfg.LLM.CheckerModel))
		out.embeddingModel = op.EmbeddingModel()

	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			printMissingKey("OPENAI_API_KEY", "sk-...", "openai_api_key")
			return nil, errMissingKey
		}
		model := cfg.LLM.OpenAIModel
		if model == "" {
			model = os.Getenv("OPENAI_MODEL")
		}
		op := assistant.NewOpenAIProvider(cfg.LLM.OpenAIKey, model).WithEmbeddingModel(cfg.LLM.EmbeddingModel)
		checkerModel := cfg.LLM.CheckerModel
		if checkerModel == "" {
			checkerModel = "gpt-4o-mini"
		}
		out.chat = wrap(op)
		out.checker = wrap(op.WithModel(checkerModel))
		out.embeddingModel = op.EmbeddingModel()

	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER '%s'. Supported: openai, anthropic, gemini, ollama", cfg.LLM.Provider)
	}
	return out, nil
}
