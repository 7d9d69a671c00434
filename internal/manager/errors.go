package manager

import "errors"

// Precondition failures. They are reported to callers as structured results,
// never escalated.
var (
	// ErrAlreadyRunning rejects start while a handle exists or a start is in flight.
	ErrAlreadyRunning = errors.New("already running")
	// ErrPortOccupied rejects start when a foreign process keeps the port after reclamation.
	ErrPortOccupied = portOccupiedError{}
	// ErrNotRunning rejects stop without a live handle.
	ErrNotRunning = errors.New("not running")
	// ErrStopping rejects stop while another stop is waiting for the child.
	ErrStopping = errors.New("stop already in progress")
)

type portOccupiedError struct{}

func (portOccupiedError) Error() string { return "already running, cannot reclaim port" }

// Is lets errors.Is(ErrPortOccupied, ErrAlreadyRunning) hold.
func (portOccupiedError) Is(target error) bool { return target == ErrAlreadyRunning }

// notInstalledError reports that the variant to run is not installed.
type notInstalledError struct{ id string }

func (e notInstalledError) Error() string {
	if e.id == "" {
		return "no version selected"
	}
	return "version not installed: " + e.id
}

// ErrNotInstalled constructs a notInstalledError.
func ErrNotInstalled(id string) error { return notInstalledError{id: id} }

// IsNotInstalled reports whether err indicates a missing installation.
func IsNotInstalled(err error) bool {
	var e notInstalledError
	return errors.As(err, &e)
}

// startFailedError signals a spawn failure or a child that died during startup.
type startFailedError struct{ msg string }

func (e startFailedError) Error() string { return e.msg }

// IsStartFailed reports whether err indicates the child could not be brought up.
func IsStartFailed(err error) bool {
	var e startFailedError
	return errors.As(err, &e)
}
