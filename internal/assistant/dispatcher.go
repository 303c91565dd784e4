package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/reinhart/sqlagent/internal/logger"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// ErrorResult is the failure shape every tool and the dispatcher report
type ErrorResult struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewErrorResult builds an ErrorResult from err with a human-readable message
func NewErrorResult(err error, message string) ErrorResult {
	return ErrorResult{Error: err.Error(), Message: message}
}

// Emptier is implemented by results that can succeed without carrying any
// data, such as a description where every requested table was missing
type Emptier interface {
	Empty() bool
}

// Outcome is the serialized result of one invocation
type Outcome struct {
	Content string
	// Failed is set when the invocation did not reach the tool or the tool
	// reported an ErrorResult
	Failed bool
	// Empty is set when the result reports it carries no data
	Empty bool
}

// Dispatcher invokes registry tools by name and never returns an error:
// every failure becomes an ErrorResult payload.
type Dispatcher struct {
	registry *ToolRegistry
}

func NewDispatcher(registry *ToolRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Invoke runs the named tool with a JSON argument payload
func (d *Dispatcher) Invoke(ctx context.Context, name string, rawArgs string) Outcome {
	rt, ok := d.registry.tools[name]
	if !ok {
		logger.Info("Error: Tool not found: %s", name)
		return failure(fmt.Errorf("tool %s not found", name),
			fmt.Sprintf("Available tools: %s.", strings.Join(d.registry.Names(), ", ")))
	}

	var args map[string]any
	if len(rt.def.Parameters.Properties) > 0 {
		var err error
		args, err = parseArgs(rawArgs)
		if err != nil {
			return failure(err, "Arguments must be a JSON object.")
		}
		if err := validateArgs(rt, args); err != nil {
			return failure(err, "Arguments do not match the tool's parameter schema.")
		}
	}

	result, err := safeExecute(ctx, rt.tool, args)
	if err != nil {
		logger.Info("Tool Execution Error (%s): %v", name, err)
		return failure(err, fmt.Sprintf("Tool %s failed.", name))
	}

	content, err := encodeResult(result)
	if err != nil {
		return failure(err, "Tool result could not be serialized.")
	}

	out := Outcome{Content: content}
	_, out.Failed = result.(ErrorResult)
	if e, ok := result.(Emptier); ok {
		out.Empty = e.Empty()
	}
	return out
}

func safeExecute(ctx context.Context, t Tool, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return t.Execute(ctx, args)
}

func parseArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func validateArgs(rt *registeredTool, args map[string]any) error {
	var extra []string
	for key := range args {
		if _, ok := rt.def.Parameters.Properties[key]; !ok {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("%w: unexpected field(s) %s", ErrInvalidArguments, strings.Join(extra, ", "))
	}
	if err := rt.resolved.Validate(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func encodeResult(result any) (string, error) {
	if s, ok := result.(string); ok && json.Valid([]byte(s)) {
		return s, nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func failure(err error, message string) Outcome {
	content, _ := encodeResult(NewErrorResult(err, message))
	return Outcome{Content: content, Failed: true}
}
