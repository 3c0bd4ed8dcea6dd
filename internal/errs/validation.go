package errs

import "fmt"

// ValidationError reports a broken field together with its path (e.g. "ingredients[1].display_unit").
type ValidationError struct {
	Field  string
	Reason string
	Err    error // optional cause, e.g. ErrUnknownUnit
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidCause builds a ValidationError wrapping cause.
func InvalidCause(field string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: cause.Error(), Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }
