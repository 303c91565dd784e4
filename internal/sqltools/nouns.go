package sqltools

import (
	"context"
	"fmt"

	"github.com/reinhart/sqlagent/internal/assistant"
	"github.com/reinhart/sqlagent/internal/nouns"
)

// SearchResult is the payload of search_proper_nouns
type SearchResult struct {
	Message string        `json:"message"`
	Matches []nouns.Match `json:"matches"`
}

// SearchProperNouns looks up stored names resembling the user's spelling
type SearchProperNouns struct {
	Index *nouns.Index
	TopK  int
}

func (t *SearchProperNouns) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        SearchProperNounsName,
		Description: "Find stored proper nouns (artist names, album titles) similar to the given text. Use the best match as the filter value.",
		Parameters: assistant.ObjectSchema(map[string]*assistant.Schema{
			"query": assistant.StringProperty("Approximate spelling of the proper noun to look up"),
			"k":     assistant.IntegerProperty("Number of matches to return"),
		}, "query"),
	}
}

func (t *SearchProperNouns) Execute(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)

	k := t.TopK
	if v, ok := args["k"].(float64); ok && v > 0 {
		k = int(v)
	}

	matches, err := t.Index.Search(ctx, query, k)
	if err != nil {
		return assistant.NewErrorResult(err, "Failed to search proper nouns."), nil
	}
	if matches == nil {
		matches = []nouns.Match{}
	}
	return SearchResult{
		Message: fmt.Sprintf("Found %d similar values", len(matches)),
		Matches: matches,
	}, nil
}
