package runs

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a decoded record with missing or ill-typed fields.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError names the offending field.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformedRecord, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedRecord, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedRecord.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

func malformed(field, format string, args ...any) error {
	return &MalformedRecordError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
