// Package validate checks synced records against the schema table without
// ever decrypting them. Request-shape problems are FieldErrors (400); a bad
// record inside a batch is a Rejection and the rest of the batch goes on.
package validate

import "fmt"

// FieldError is a request-level validation failure.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldErr(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
