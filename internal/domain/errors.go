package domain

import "fmt"

// ConfigError reports bad or missing input: a non-positive process id, an
// unresolvable profile, or an empty merged provider set. Always detected
// before any remote session is opened. Err, when set, carries the underlying
// cause so callers can still match it with errors.Is.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// TargetNotFoundError reports that the target process is not running or does
// not expose a diagnostic endpoint.
type TargetNotFoundError struct {
	PID int
	Err error
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("process %d not found or not traceable: %v", e.PID, e.Err)
}

func (e *TargetNotFoundError) Unwrap() error { return e.Err }

// SessionOpenError reports that the remote endpoint refused the session or
// returned an invalid session id.
type SessionOpenError struct {
	PID int
	Err error
}

func (e *SessionOpenError) Error() string {
	return fmt.Sprintf("failed to open trace session against process %d: %v", e.PID, e.Err)
}

func (e *SessionOpenError) Unwrap() error { return e.Err }

// DecodeError reports an unrecoverable failure in the event decode loop.
// The loop terminates and this error becomes the run's failure detail.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("event decoding failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
