package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// scriptedProvider replays canned responses and records every request
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*Message
	next      func(call int, messages []Message) (*Message, error)
	calls     [][]Message
	tools     [][]ToolDefinition
	options   []ChatOptions
}

func (p *scriptedProvider) Chat(_ context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) (*Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := len(p.calls)
	p.calls = append(p.calls, append([]Message(nil), messages...))
	p.tools = append(p.tools, tools)
	p.options = append(p.options, ApplyChatOptions(opts...))

	if p.next != nil {
		return p.next(call, messages)
	}
	if call >= len(p.responses) {
		return nil, errors.New("script exhausted")
	}
	resp := *p.responses[call]
	return &resp, nil
}

func toolCallMsg(calls ...ToolCall) *Message {
	return &Message{Role: RoleAssistant, ToolCalls: calls}
}

func call(id, name, args string) ToolCall {
	return ToolCall{ID: id, Type: "function", Function: FunctionCall{Name: name, Arguments: args}}
}

func answer(text string) *Message {
	return &Message{Role: RoleAssistant, Content: text}
}

// echoTool returns its "text" argument
type echoTool struct {
	calls int
}

func (t *echoTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "echo",
		Description: "Echoes text",
		Parameters: ObjectSchema(map[string]*Schema{
			"text": StringProperty("text to echo"),
		}, "text"),
	}
}

func (t *echoTool) Execute(_ context.Context, args map[string]any) (any, error) {
	t.calls++
	return map[string]any{"message": "echoed", "data": args["text"]}, nil
}

// listTool takes no arguments
type listTool struct {
	gotArgs []map[string]any
}

func (t *listTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "list", Description: "Lists things", Parameters: ObjectSchema(nil)}
}

func (t *listTool) Execute(_ context.Context, args map[string]any) (any, error) {
	t.gotArgs = append(t.gotArgs, args)
	return map[string]any{"message": "Found 2 things", "tables": []string{"a", "b"}}, nil
}

type failingTool struct{}

func (failingTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "fail", Parameters: ObjectSchema(nil)}
}

func (failingTool) Execute(context.Context, map[string]any) (any, error) {
	return nil, errors.New("boom")
}

type panickingTool struct{}

func (panickingTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "panic", Parameters: ObjectSchema(nil)}
}

func (panickingTool) Execute(context.Context, map[string]any) (any, error) {
	panic("kaboom")
}

type errorResultTool struct{}

func (errorResultTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "soft_fail", Parameters: ObjectSchema(nil)}
}

func (errorResultTool) Execute(context.Context, map[string]any) (any, error) {
	return NewErrorResult(fmt.Errorf("no such table: x"), "Query failed."), nil
}

// inspectTool reports the tables it found; finding none is an empty result
type inspectTool struct {
	found []string
}

type inspection struct {
	Found []string `json:"found"`
}

func (r inspection) Empty() bool { return len(r.Found) == 0 }

func (t *inspectTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "inspect", Description: "Inspects tables", Parameters: ObjectSchema(nil)}
}

func (t *inspectTool) Execute(context.Context, map[string]any) (any, error) {
	return inspection{Found: t.found}, nil
}
