package intake

import (
	"errors"
	"fmt"
)

var (
	ErrPatientNotFound   = errors.New("patient not found")
	ErrEncounterNotFound = errors.New("encounter not found")
	ErrRecordNotFound    = errors.New("structured record not found")
)

// ValidationError reports a structured record that does not match the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid structured record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid structured record: %s: %s", e.Field, e.Reason)
}
