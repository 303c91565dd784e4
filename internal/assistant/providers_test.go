package assistant

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConversation() []Message {
	return []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "how many artists?"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			call("c1", "list_sql_database", `{}`),
			call("c2", "info_sql_database", `{"tables":"Artist"}`),
		}},
		{Role: RoleTool, ToolCallID: "c1", Name: "list_sql_database", Content: `{"tables":["Artist"]}`},
		{Role: RoleTool, ToolCallID: "c2", Name: "info_sql_database", Content: `{"error":"x","message":"y"}`},
	}
}

func TestToOpenAIMessages(t *testing.T) {
	msgs := toOpenAIMessages(sampleConversation())
	require.Len(t, msgs, 5)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 2)
	assert.Equal(t, openai.ToolTypeFunction, msgs[2].ToolCalls[0].Type)
	assert.Equal(t, "c2", msgs[4].ToolCallID)
	assert.Equal(t, openai.ChatMessageRoleTool, msgs[4].Role)
}

func TestFromOpenAIMessage(t *testing.T) {
	msg := fromOpenAIMessage(openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       "call_1",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: "query_sql_database", Arguments: `{"query":"SELECT 1"}`},
		}},
	})
	assert.Equal(t, RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "query_sql_database", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"query":"SELECT 1"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestToOpenAIToolsEmpty(t *testing.T) {
	assert.Nil(t, toOpenAITools(nil))
}

func TestToAnthropicMessagesMergesToolResults(t *testing.T) {
	system, msgs := toAnthropicMessages(sampleConversation())
	assert.Equal(t, "be helpful", system)
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.RoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 2)
	assert.Equal(t, anthropic.MessagesContentTypeToolUse, msgs[1].Content[0].Type)

	assert.Equal(t, anthropic.RoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	for _, c := range msgs[2].Content {
		assert.Equal(t, anthropic.MessagesContentTypeToolResult, c.Type)
	}
}

func TestIsErrorPayload(t *testing.T) {
	assert.True(t, isErrorPayload(`{"error":"x","message":"y"}`))
	assert.False(t, isErrorPayload(`{"message":"ok"}`))
	assert.False(t, isErrorPayload(`not json`))
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(ObjectSchema(map[string]*Schema{
		"query": StringProperty("sql"),
		"k":     IntegerProperty("count"),
	}, "query"))

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"query"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["query"].Type)
	assert.Equal(t, "sql", s.Properties["query"].Description)
	assert.Equal(t, genai.TypeInteger, s.Properties["k"].Type)
}

func TestToGenaiToolsSkipsEmptyParameters(t *testing.T) {
	tools := toGenaiTools([]ToolDefinition{
		{Name: "list", Parameters: ObjectSchema(nil)},
		{Name: "echo", Parameters: ObjectSchema(map[string]*Schema{"text": StringProperty("")}, "text")},
	})
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 2)
	assert.Nil(t, tools[0].FunctionDeclarations[0].Parameters)
	assert.NotNil(t, tools[0].FunctionDeclarations[1].Parameters)
}

func TestToGenaiHistoryGroupsFunctionResponses(t *testing.T) {
	system, history := toGenaiHistory(sampleConversation())
	require.NotNil(t, system)
	require.Len(t, history, 3)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "function", history[2].Role)
	assert.Len(t, history[2].Parts, 2)
}

func TestParseGeminiResponseAssignsIDs(t *testing.T) {
	msg, err := parseGeminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("checking"),
				genai.FunctionCall{Name: "list_sql_database", Args: map[string]any{}},
				genai.FunctionCall{Name: "info_sql_database", Args: map[string]any{"tables": "Artist"}},
			}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "checking", msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "call_0", msg.ToolCalls[0].ID)
	assert.Equal(t, "call_1", msg.ToolCalls[1].ID)
	assert.JSONEq(t, `{"tables":"Artist"}`, msg.ToolCalls[1].Function.Arguments)
}

func TestParseGeminiResponseEmpty(t *testing.T) {
	_, err := parseGeminiResponse(&genai.GenerateContentResponse{})
	require.Error(t, err)
}
