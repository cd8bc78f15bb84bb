package cmd

import (
	"errors"
	"fmt"

	"github.com/flo-mic/glacierbak/internal/config"
	"github.com/flo-mic/glacierbak/internal/stage"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a stage ran and failed
	ExitCommandError = 2 // bad flags, config or include/exclude spec
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Unclassified errors are failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps a stage error onto an exit code.
func classify(message string, err error) error {
	if errors.Is(err, stage.ErrConfig) || errors.Is(err, config.ErrInvalid) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}
