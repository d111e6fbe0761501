package main

import (
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/pharm/internal/service"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
)

// Exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitIncompatible = 3
	ExitVerification = 4
	ExitLocked       = 5
)

// ExitError carries a specific exit code out of a RunE handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps err to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, service.ErrEnvironmentIncompatible):
		return ExitIncompatible
	case errors.Is(err, service.ErrVerificationFailed):
		return ExitVerification
	case errors.Is(err, transaction.ErrLockExists):
		return ExitLocked
	default:
		return ExitFailure
	}
}
