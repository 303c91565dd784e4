package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements LLMProvider using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(ctx context.Context, apiKey string, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-2.5-pro"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Close releases the underlying client
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// toGenaiSchema maps the JSON Schema subset used by tool parameters
func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		out.Items = toGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func toGenaiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	funcDecls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		// Gemini rejects object schemas without properties
		if t.Parameters != nil && len(t.Parameters.Properties) > 0 {
			decl.Parameters = toGenaiSchema(t.Parameters)
		}
		funcDecls = append(funcDecls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// toGenaiHistory converts the conversation, returning the system prompt
// separately
func toGenaiHistory(messages []Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var history []*genai.Content

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}

		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		} else if msg.Role == RoleTool {
			role = "function" // Gemini uses separate logic for function responses
		}

		// Construct Parts
		var parts []genai.Part
		if msg.Content != "" && msg.Role != RoleTool {
			parts = append(parts, genai.Text(msg.Content))
		}

		// Tool Calls (Model Output)
		for _, tc := range msg.ToolCalls {
			var args map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			parts = append(parts, genai.FunctionCall{
				Name: tc.Function.Name,
				Args: args,
			})
		}

		// Tool Results (User/Function Input)
		if msg.Role == RoleTool {
			var response map[string]any
			// Try to parse JSON, otherwise wrap string
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"result": msg.Content}
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     msg.Name,
				Response: response,
			})
		}

		// Consecutive function responses belong in one turn
		if n := len(history); n > 0 && role == "function" && history[n-1].Role == "function" {
			history[n-1].Parts = append(history[n-1].Parts, parts...)
			continue
		}

		history = append(history, &genai.Content{
			Role:  role,
			Parts: parts,
		})
	}
	return system, history
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error) {
	o := ApplyChatOptions(opts...)
	model := p.client.GenerativeModel(p.model)

	model.Tools = toGenaiTools(tools)
	if len(model.Tools) > 0 && o.ToolChoice == ToolChoiceAuto {
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
		}
	}
	if o.Temperature != nil {
		model.SetTemperature(*o.Temperature)
	}

	system, history := toGenaiHistory(messages)
	model.SystemInstruction = system

	if len(history) == 0 {
		return nil, fmt.Errorf("gemini chat needs at least one user message")
	}

	// The last user or function turn is sent, the rest is replayed
	last := history[len(history)-1]
	if last.Role == "model" {
		return nil, fmt.Errorf("last message was not from user")
	}

	cs := model.StartChat()
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini completion error: %w", err)
	}
	return parseGeminiResponse(resp)
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]

	result := &Message{
		Role: RoleAssistant,
	}

	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			result.Content += string(txt)
		} else if fc, ok := part.(genai.FunctionCall); ok {
			argsBytes, _ := json.Marshal(fc.Args)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				// Gemini has no call IDs; results are matched by order
				ID:   fmt.Sprintf("call_%d", len(result.ToolCalls)),
				Type: "function",
				Function: FunctionCall{
					Name:      fc.Name,
					Arguments: string(argsBytes),
				},
			})
		}
	}

	return result, nil
}
