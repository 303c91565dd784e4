package assistant

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in the conversation
type Message struct {
	Role       Role
	Content    string // Empty means null, e.g. an assistant turn that only calls tools
	Name       string // Optional, used for tool responses
	ToolCalls  []ToolCall
	ToolCallID string // Used when Role is Tool to link back to the call
}

// ToolCall represents a request from the LLM to execute a tool
type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

// FunctionCall represents the details of a function execution request
type FunctionCall struct {
	Name      string
	Arguments string // JSON string of arguments
}

// Schema is the JSON Schema used for tool parameters
type Schema = jsonschema.Schema

// ToolDefinition defines a tool that can be used by the LLM
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *Schema
}

// ToolChoice controls whether the model may call tools
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatOptions holds per-request settings
type ChatOptions struct {
	Temperature *float32
	ToolChoice  ToolChoice
}

// ChatOption configures a single Chat request
type ChatOption func(*ChatOptions)

func WithTemperature(t float32) ChatOption {
	return func(o *ChatOptions) { o.Temperature = &t }
}

func WithToolChoice(c ToolChoice) ChatOption {
	return func(o *ChatOptions) { o.ToolChoice = c }
}

// ApplyChatOptions folds opts into a ChatOptions value
func ApplyChatOptions(opts ...ChatOption) ChatOptions {
	o := ChatOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LLMProvider defines the interface for interacting with LLM backends
type LLMProvider interface {
	// Chat sends messages to the LLM and returns the response, potentially including tool calls
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error)
}

// Embedder turns texts into embedding vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ObjectSchema builds an object schema from string properties. An empty
// required list is omitted from the JSON form, which JSON Schema reads as
// no required properties.
func ObjectSchema(properties map[string]*Schema, required ...string) *Schema {
	if properties == nil {
		properties = map[string]*Schema{}
	}
	return &Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// StringProperty is a string-typed schema with a description
func StringProperty(description string) *Schema {
	return &Schema{Type: "string", Description: description}
}

// IntegerProperty is an integer-typed schema with a description
func IntegerProperty(description string) *Schema {
	return &Schema{Type: "integer", Description: description}
}
