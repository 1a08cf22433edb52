package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection probe on user text.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckQuestionForInjection probes a free-text question for SQL injection
// patterns. Questions are never interpolated into SQL directly, but a
// question that is itself an injection payload (e.g. "'; DROP TABLE users--")
// signals an adversarial caller and is refused before any generation work.
//
// Returns nil when no injection pattern is detected.
func CheckQuestionForInjection(question string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
	}
}
