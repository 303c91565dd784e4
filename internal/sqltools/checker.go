package sqltools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reinhart/sqlagent/internal/assistant"
	"github.com/reinhart/sqlagent/internal/logger"
)

const checkerTemperature = 0.1

// CheckResult is the verdict of query_sql_checker
type CheckResult struct {
	HasError       bool   `json:"has_error"`
	CorrectedQuery string `json:"corrected_query"`
	Explanation    string `json:"explanation"`
}

// CheckSQL asks a model to review a query before it is executed
type CheckSQL struct {
	Provider assistant.LLMProvider
	Dialect  string
}

func (t *CheckSQL) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        CheckQueryName,
		Description: "Validate a SQL query for common mistakes before execution. Always use this before executing queries.",
		Parameters: assistant.ObjectSchema(map[string]*assistant.Schema{
			"query": assistant.StringProperty("SQL query to validate for syntax errors and common mistakes"),
		}, "query"),
	}
}

func (t *CheckSQL) dialect() string {
	if t.Dialect == "" {
		return "SQLite"
	}
	return t.Dialect
}

func (t *CheckSQL) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)

	messages := []assistant.Message{
		{Role: assistant.RoleSystem, Content: CheckerPrompt(t.dialect())},
		{Role: assistant.RoleUser, Content: fmt.Sprintf("Validate this %s query: %s", t.dialect(), query)},
	}
	resp, err := t.Provider.Chat(ctx, messages, nil, assistant.WithTemperature(checkerTemperature))
	if err != nil {
		logger.Info("Query checker error: %v", err)
		return assistant.NewErrorResult(err, "Failed to validate query."), nil
	}
	return ParseCheck(query, resp.Content), nil
}

// ParseCheck decodes a checker reply. A reply that is not a JSON object
// carrying has_error and explanation is treated as an approval of query,
// with the reply as explanation.
func ParseCheck(query, reply string) CheckResult {
	var verdict struct {
		HasError       *bool   `json:"has_error"`
		CorrectedQuery *string `json:"corrected_query"`
		Explanation    *string `json:"explanation"`
	}
	err := json.Unmarshal([]byte(stripFence(reply)), &verdict)
	if err != nil || verdict.HasError == nil || verdict.Explanation == nil {
		logger.Debug("checker reply is not a verdict: %q", reply)
		return CheckResult{CorrectedQuery: query, Explanation: reply}
	}

	res := CheckResult{HasError: *verdict.HasError, CorrectedQuery: query, Explanation: *verdict.Explanation}
	if verdict.CorrectedQuery != nil && *verdict.CorrectedQuery != "" {
		res.CorrectedQuery = *verdict.CorrectedQuery
	}
	return res
}

// stripFence removes a surrounding markdown code fence
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop a language tag such as ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
