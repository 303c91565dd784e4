package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/reinhart/sqlagent/internal/logger"
)

// DefaultMaxIterations bounds the model turns of one Ask
const DefaultMaxIterations = 5

// ExhaustedMessage is returned when the iteration budget runs out
const ExhaustedMessage = "Maximum iterations reached. Please try a simpler question."

// ErrSchemaNotInspected is reported for gated tools called before the schema tool
var ErrSchemaNotInspected = errors.New("schema not inspected")

// StatusUpdate represents a real-time update from the agent
type StatusUpdate struct {
	Message string
}

// SchemaGate makes a successful, non-empty call to Inspect a precondition
// for the Guarded tools within one Ask
type SchemaGate struct {
	Inspect string
	Guarded []string
}

func (g *SchemaGate) guards(name string) bool {
	if g == nil {
		return false
	}
	for _, n := range g.Guarded {
		if n == name {
			return true
		}
	}
	return false
}

// AgentOptions configures an Agent
type AgentOptions struct {
	SystemPrompt  string
	MaxIterations int
	SchemaGate    *SchemaGate
}

// Agent drives the conversation between the user, the LLM, and the tools.
// Each Ask starts from a fresh conversation.
type Agent struct {
	provider      LLMProvider
	registry      *ToolRegistry
	dispatcher    *Dispatcher
	system        string
	maxIterations int
	gate          *SchemaGate
	updates       chan StatusUpdate // Channel for sending updates to UI
}

// NewAgent creates a new agent instance
func NewAgent(provider LLMProvider, registry *ToolRegistry, opts AgentOptions) *Agent {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Agent{
		provider:      provider,
		registry:      registry,
		dispatcher:    NewDispatcher(registry),
		system:        opts.SystemPrompt,
		maxIterations: opts.MaxIterations,
		gate:          opts.SchemaGate,
		updates:       make(chan StatusUpdate, 10), // Buffered channel
	}
}

// Updates returns the channel for status updates
func (a *Agent) Updates() <-chan StatusUpdate {
	return a.updates
}

// sendUpdate sends a status update non-blocking
func (a *Agent) sendUpdate(msg string) {
	select {
	case a.updates <- StatusUpdate{Message: msg}:
	default:
		// Drop if channel full or no listener
	}
}

// Ask answers question using the default iteration budget
func (a *Agent) Ask(ctx context.Context, question string) (string, error) {
	return a.AskWithLimit(ctx, question, a.maxIterations)
}

// AskWithLimit answers question, allowing at most maxIterations model turns.
// Errors are returned only when the LLM itself cannot be reached.
func (a *Agent) AskWithLimit(ctx context.Context, question string, maxIterations int) (string, error) {
	if maxIterations <= 0 {
		maxIterations = a.maxIterations
	}
	logger.Info("Processing question: %s", question)
	a.sendUpdate("Analysing request...")

	conv := a.start(question)
	tools := a.registry.Definitions()
	schemaKnown := false

	for iteration := 1; ; iteration++ {
		if iteration > maxIterations {
			logger.Info("Agent iteration limit (%d) reached", maxIterations)
			a.sendUpdate("Error: Loop limit reached")
			return ExhaustedMessage, nil
		}

		logger.Debug("Agent Loop Turn: %d", iteration)
		a.sendUpdate(fmt.Sprintf("Thinking (Turn %d)...", iteration))

		resp, err := a.provider.Chat(ctx, conv, tools, WithToolChoice(ToolChoiceAuto))
		if err != nil {
			logger.Info("LLM Error: %v", err)
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				a.sendUpdate("Request timed out")
				return "", fmt.Errorf("LLM request timed out: %w", err)
			case errors.Is(ctx.Err(), context.Canceled):
				a.sendUpdate("Request cancelled")
				return "", fmt.Errorf("request was cancelled: %w", err)
			}
			a.sendUpdate("Error communicating with LLM")
			return "", err
		}
		logger.Debug("Received response from LLM (Content len: %d, ToolCalls: %d)", len(resp.Content), len(resp.ToolCalls))

		resp.Role = RoleAssistant
		conv = append(conv, *resp)

		if len(resp.ToolCalls) == 0 {
			logger.Info("Final response received")
			a.sendUpdate("Done")
			return resp.Content, nil
		}

		// The whole batch runs before the next model turn
		for _, tc := range resp.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("request was cancelled: %w", err)
			}
			conv = append(conv, a.act(ctx, tc, &schemaKnown))
		}
	}
}

func (a *Agent) start(question string) []Message {
	conv := make([]Message, 0, 2+2*a.maxIterations)
	conv = append(conv, Message{Role: RoleSystem, Content: a.system})
	return append(conv, Message{Role: RoleUser, Content: question})
}

func (a *Agent) act(ctx context.Context, tc ToolCall, schemaKnown *bool) Message {
	name := tc.Function.Name
	logger.Info("Tool Call Request: %s(%s)", name, tc.Function.Arguments)
	a.sendUpdate(fmt.Sprintf("Running %s...", name))

	var out Outcome
	if a.gate.guards(name) && !*schemaKnown {
		out = failure(fmt.Errorf("%w: call %s before %s", ErrSchemaNotInspected, a.gate.Inspect, name),
			"Inspect the relevant tables first, then retry the query.")
	} else {
		out = a.dispatcher.Invoke(ctx, name, tc.Function.Arguments)
	}

	if out.Failed {
		a.sendUpdate(fmt.Sprintf("Error in %s", name))
	} else {
		logger.Debug("Tool Output (%s): %s", name, out.Content)
		a.sendUpdate(fmt.Sprintf("Finished %s", name))
		if a.gate != nil && name == a.gate.Inspect && !out.Empty {
			*schemaKnown = true
		}
	}

	return Message{
		Role:       RoleTool,
		ToolCallID: tc.ID,
		Name:       name,
		Content:    out.Content,
	}
}
