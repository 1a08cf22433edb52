package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConfiguration      = errors.New("configuration invalid or unreadable")
	ErrSchemaUnavailable  = errors.New("schema unavailable")
	ErrGenerationRejected = errors.New("no SQL produced")
	ErrUnsafeQuestion     = errors.New("question refused by safety guard")
)
