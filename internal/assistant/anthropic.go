package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements LLMProvider using the Anthropic API
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(apiKey string, model string) *AnthropicProvider {
	if model == "" {
		model = string(anthropic.ModelClaude3Dot5Sonnet20240620)
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

	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, anthropic.WithHTTPClient(httpClient)),
		model:  model,
	}
}

// toAnthropicMessages splits off the system prompt and merges consecutive
// tool results into one user turn, as the API requires alternating roles
func toAnthropicMessages(messages []Message) (string, []anthropic.Message) {
	var system []string
	var out []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
			continue

		case RoleTool:
			block := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, isErrorPayload(msg.Content))
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{block},
			})
			continue
		}

		role := anthropic.RoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}

		var content []anthropic.MessageContent
		if msg.Content != "" {
			content = append(content, anthropic.NewTextMessageContent(msg.Content))
		}

		// If this message has tool calls (Assistant output)
		for _, tc := range msg.ToolCalls {
			input := json.RawMessage(tc.Function.Arguments)
			if !json.Valid(input) {
				input = json.RawMessage("{}")
			}
			content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Function.Name, input))
		}

		if len(content) == 0 {
			content = append(content, anthropic.NewTextMessageContent(" "))
		}

		out = append(out, anthropic.Message{
			Role:    role,
			Content: content,
		})
	}

	return strings.Join(system, "\n"), out
}

func isToolResultTurn(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func isErrorPayload(content string) bool {
	var payload struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return false
	}
	return payload.Error != nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error) {
	o := ApplyChatOptions(opts...)
	systemPrompt, anthropicMessages := toAnthropicMessages(messages)

	// Define tools
	var anthropicTools []anthropic.ToolDefinition
	for _, t := range tools {
		anthropicTools = append(anthropicTools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		Messages:  anthropicMessages,
		Tools:     anthropicTools,
		MaxTokens: 4096,
		System:    systemPrompt,
	}
	if len(anthropicTools) > 0 && o.ToolChoice == ToolChoiceAuto {
		req.ToolChoice = &anthropic.ToolChoice{Type: "auto"}
	}
	if o.Temperature != nil {
		req.Temperature = o.Temperature
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion error: %w", err)
	}

	result := &Message{
		Role: RoleAssistant,
	}

	// Parse response
	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				result.Content += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			argsBytes, _ := json.Marshal(content.Input)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:   content.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      content.Name,
					Arguments: string(argsBytes),
				},
			})
		}
	}

	return result, nil
}
