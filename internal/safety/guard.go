package safety

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrStatementRejected is returned for SQL the guard will not let through
var ErrStatementRejected = errors.New("statement rejected")

var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
	"VALUES":  true,
	"PRAGMA":  true,
}

var writeKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "REPLACE", "DROP", "CREATE", "ALTER",
	"ATTACH", "DETACH", "VACUUM", "REINDEX", "TRUNCATE", "GRANT", "REVOKE",
}

// Guard blocks mutating statements before they reach the store.
// A disabled guard accepts everything.
type Guard struct {
	Enabled bool
}

func NewGuard(enabled bool) *Guard {
	return &Guard{Enabled: enabled}
}

// Check returns nil when query is a single read-only statement
func (g *Guard) Check(query string) error {
	if g == nil || !g.Enabled {
		return nil
	}

	stripped := Strip(query)
	statements := splitStatements(stripped)
	if len(statements) == 0 {
		return fmt.Errorf("%w: empty query", ErrStatementRejected)
	}
	if len(statements) > 1 {
		return fmt.Errorf("%w: only one statement per call is allowed", ErrStatementRejected)
	}

	words := strings.Fields(strings.ToUpper(statements[0]))
	first := strings.TrimFunc(words[0], func(r rune) bool { return !unicode.IsLetter(r) })
	if !readOnlyKeywords[first] {
		return fmt.Errorf("%w: %s statements are not allowed, only read-only queries", ErrStatementRejected, first)
	}

	switch first {
	case "PRAGMA":
		// PRAGMA name = value writes a setting
		if strings.Contains(statements[0], "=") {
			return fmt.Errorf("%w: PRAGMA assignments are not allowed", ErrStatementRejected)
		}
	case "WITH", "EXPLAIN":
		for _, w := range words[1:] {
			w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
			for _, kw := range writeKeywords {
				if w == kw {
					return fmt.Errorf("%w: %s inside %s is not allowed", ErrStatementRejected, kw, first)
				}
			}
		}
	}
	return nil
}

// Strip removes comments and blanks out quoted literals and identifiers so
// keywords or semicolons inside them are not mistaken for statements.
func Strip(query string) string {
	var sb strings.Builder
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			sb.WriteRune(' ')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			sb.WriteRune(' ')
		case r == '\'':
			i++
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			sb.WriteString("''")
		case r == '"' || r == '`' || r == '[':
			closing := r
			if r == '[' {
				closing = ']'
			}
			i++
			for i < len(runes) && runes[i] != closing {
				i++
			}
			sb.WriteRune(r)
			sb.WriteString("ident")
			sb.WriteRune(closing)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func splitStatements(stripped string) []string {
	var out []string
	for _, part := range strings.Split(stripped, ";") {
		if strings.TrimSpace(part) != "" {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}
