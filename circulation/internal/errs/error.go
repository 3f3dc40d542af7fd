package errs

import (
	"errors"
	"fmt"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrPolicyNotFound = errors.New("no checkout policy for tier")
	ErrIneligible     = errors.New("ineligible")
	ErrConflict       = errors.New("conflict")
)

// IneligibleError is an expected business denial carrying its reason code.
type IneligibleError struct {
	Reason model.Reason
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIneligible, e.Reason)
}

func (e *IneligibleError) Is(target error) bool {
	if target == ErrIneligible {
		return true
	}
	return target == ErrPolicyNotFound && e.Reason == model.ReasonNoPolicy
}

func Ineligible(reason model.Reason) error {
	return &IneligibleError{Reason: reason}
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unknown reports a reference to a record that does not exist. It matches both
// ErrValidation and ErrNotFound.
func Unknown(kind, id string) error {
	return fmt.Errorf("%w: unknown %s %q: %w", ErrValidation, kind, id, ErrNotFound)
}

// ReasonOf extracts the denial reason, if err is a business denial.
func ReasonOf(err error) (model.Reason, bool) {
	var ie *IneligibleError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return "", false
}

type ErrorResponse struct {
	Message string       `json:"message"`
	Reason  model.Reason `json:"reason,omitempty"`
}
