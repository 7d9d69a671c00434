package registry

import (
	"errors"
	"fmt"
)

// Precondition failures reported by registry operations. Callers match them
// with errors.Is.
var (
	ErrUnknownVariant     = errors.New("unknown version")
	ErrNotInstalled       = errors.New("version not installed")
	ErrActiveVariant      = errors.New("cannot uninstall the active version")
	ErrServerRunning      = errors.New("stop the server before uninstalling")
	ErrDiscoveredReadOnly = errors.New("local installations are managed outside the launcher")
)

// PhaseError reports which install phase failed. Its message is the phase's
// own error text so it can be shown to the operator verbatim.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s failed: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

// IsPhaseError reports whether err came from an install phase and returns it.
func IsPhaseError(err error) (*PhaseError, bool) {
	var pe *PhaseError
	ok := errors.As(err, &pe)
	return pe, ok
}
