// Package logging scrubs sensitive material out of text destined for logs
// or user-visible error messages: datasource credentials, API keys, and
// overlong generated SQL.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of generated SQL to log.
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in DSNs and error strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches API keys passed as key=value pairs.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Matches user:pass@host credentials embedded in connection URLs, as
	// both mysql DSNs and postgres URLs produce in driver errors.
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeError scrubs an error message before it is logged or surfaced to
// the user. Driver errors can echo the full DSN, credentials included.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitize(err.Error())
}

// SanitizeQuery truncates and scrubs generated SQL for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	if len(query) > MaxQueryLogLength {
		query = query[:MaxQueryLogLength] + "..."
	}
	return sanitize(query)
}

func sanitize(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}
