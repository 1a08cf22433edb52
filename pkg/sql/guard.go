// Package sql provides validation guards for generated SQL and user input.
package sql

import (
	"errors"
	"strings"
)

var (
	// ErrNotSelect indicates the statement does not begin with SELECT.
	// Non-SELECT output is never executed, regardless of how it was produced.
	ErrNotSelect = errors.New("refusing non-SELECT statement")

	// ErrPlaceholderOutput indicates the completion echoed instructional
	// boilerplate (e.g. "your_table_name") instead of real identifiers.
	ErrPlaceholderOutput = errors.New("output contains placeholder identifiers")

	// ErrSentinelOutput indicates the completion emitted the --ERROR sentinel
	// it is instructed to produce for unanswerable questions.
	ErrSentinelOutput = errors.New("completion reported the question as unanswerable")
)

// ErrorSentinel is the fixed token the prompt instructs the model to emit
// when a question cannot be answered from the given schema.
const ErrorSentinel = "--ERROR"

// placeholderTokens are known completion-model boilerplate identifiers.
// Matching any of them rejects the output even when it otherwise parses.
var placeholderTokens = []string{
	"your_table_name",
	"your_column_name",
	"table_name",
	"column_name",
}

// StripCodeFences removes a Markdown code-fence wrapper, if present, and
// trims surrounding whitespace. Handles both ```sql and bare ``` fences.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag on the opening fence line.
	if idx := strings.IndexAny(s, "\n"); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "sql" || first == "SQL" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// CheckGenerated validates post-processed completion output. The statement
// must be a single SELECT with real identifiers; anything else is rejected.
// Returns nil and the normalized statement on success.
func CheckGenerated(sqlText string) (string, error) {
	sqlText = strings.TrimSpace(sqlText)

	if strings.HasPrefix(sqlText, ErrorSentinel) {
		return "", ErrSentinelOutput
	}

	lower := strings.ToLower(sqlText)
	for _, token := range placeholderTokens {
		if strings.Contains(lower, token) {
			return "", ErrPlaceholderOutput
		}
	}

	if !strings.HasPrefix(lower, "select") {
		return "", ErrNotSelect
	}

	result := ValidateAndNormalize(sqlText)
	if result.Error != nil {
		return "", result.Error
	}

	return result.NormalizedSQL, nil
}
