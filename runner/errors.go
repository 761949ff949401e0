// errors.go - Fehlerklassen der Generierungsschleife
package runner

import "errors"

// ErrCancelled is returned when the caller's callback requests
// cancellation; it is not itself a fault, so callers should treat it
// as a normal stopping condition rather than log it as an error.
var ErrCancelled = errors.New("runner: generation cancelled by callback")

// LogicalError reports a caller mistake detectable without touching
// the model or backend (e.g. Feed called with an empty prompt).
// Distinguished from RuntimeError per the error taxonomy so
// callers can decide whether retrying with different arguments makes
// sense.
type LogicalError struct {
	Msg string
}

func (e *LogicalError) Error() string { return "runner: " + e.Msg }

// RuntimeError wraps a failure that occurred while actually running
// the model (an error returned by ForwardOne, e.g. a backend error).
type RuntimeError struct {
	Msg string
	Err error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return "runner: " + e.Msg + ": " + e.Err.Error()
	}
	return "runner: " + e.Msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }
