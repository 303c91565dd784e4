package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements LLMProvider using the OpenAI API
type OpenAIProvider struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4o
	}

	// Create HTTP client with proper timeouts
	httpClient := &http.Client{
		Timeout: 120 * time.Second, // 2 minute timeout for API calls
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = httpClient

	return newOpenAIProvider(config, model)
}

func newOpenAIProvider(config openai.ClientConfig, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(config),
		model:          model,
		embeddingModel: string(openai.LargeEmbedding3),
	}
}

// WithModel returns a copy of the provider that targets another model
func (p *OpenAIProvider) WithModel(model string) *OpenAIProvider {
	if model == "" {
		return p
	}
	cp := *p
	cp.model = model
	return &cp
}

// WithEmbeddingModel sets the model used by Embed
func (p *OpenAIProvider) WithEmbeddingModel(model string) *OpenAIProvider {
	if model != "" {
		p.embeddingModel = model
	}
	return p
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleTool:
			role = openai.ChatMessageRoleTool
		}

		var toolCalls []openai.ToolCall
		if len(msg.ToolCalls) > 0 {
			toolCalls = make([]openai.ToolCall, len(msg.ToolCalls))
			for j, tc := range msg.ToolCalls {
				typ := tc.Type
				if typ == "" {
					typ = string(openai.ToolTypeFunction)
				}
				toolCalls[j] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolType(typ),
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}

		// Tool results cannot be null
		content := msg.Content
		if role == openai.ChatMessageRoleTool && content == "" {
			content = "{}"
		}

		apiMessages[i] = openai.ChatCompletionMessage{
			Role:       role,
			Content:    content,
			Name:       msg.Name,
			ToolCalls:  toolCalls,
			ToolCallID: msg.ToolCallID,
		}
	}
	return apiMessages
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	apiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		apiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return apiTools
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *Message {
	result := &Message{
		Role:    RoleAssistant, // OpenAI responses are always assistant
		Content: msg.Content,
	}

	if len(msg.ToolCalls) > 0 {
		result.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			result.ToolCalls[i] = ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}
	return result
}

// Chat sends messages to the LLM and returns the response
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error) {
	o := ApplyChatOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	}
	if len(req.Tools) > 0 && o.ToolChoice != "" {
		req.ToolChoice = string(o.ToolChoice)
	}
	if o.Temperature != nil {
		req.Temperature = *o.Temperature
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai completion returned no choices")
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

// Embed returns one embedding vector per text, in input order
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// EmbeddingModel names the model Embed uses
func (p *OpenAIProvider) EmbeddingModel() string {
	return p.embeddingModel
}
