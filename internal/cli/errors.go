package cli

import (
	"errors"
	"fmt"

	"github.com/dpetran/evtap/internal/domain"
)

// Process exit codes. Each failure class gets its own so callers can script
// against the outcome.
const (
	ExitOK      = 0
	ExitUnknown = 1
	ExitConfig  = 2
	ExitSession = 3
	ExitDecode  = 4
)

// ExitCode maps a command error onto its process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		cfgErr  *domain.ConfigError
		nfErr   *domain.TargetNotFoundError
		openErr *domain.SessionOpenError
		decErr  *domain.DecodeError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &nfErr), errors.As(err, &openErr):
		return ExitSession
	case errors.As(err, &decErr):
		return ExitDecode
	default:
		return ExitUnknown
	}
}

// errorCode labels an error class for the one-line stderr report.
func errorCode(err error) string {
	switch ExitCode(err) {
	case ExitConfig:
		return "INVALID_ARGUMENT"
	case ExitSession:
		return "SESSION_FAILED"
	case ExitDecode:
		return "DECODE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// outputError normalizes error emission across commands: a single
// descriptive line on stderr, the typed error returned unchanged so main can
// derive the exit code.
func outputError(globals *Globals, err error) error {
	if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s\n", errorCode(err), err)
	}
	return err
}
