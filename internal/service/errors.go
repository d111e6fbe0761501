package service

import (
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/pharm/internal/compat"
	"github.com/ZebulonRouseFrantzich/pharm/internal/trust"
)

// Failure kinds surfaced by the orchestrators. Every error returned by this
// package matches exactly one of them with errors.Is, except context
// cancellation and lookups of undeclared phars.
var (
	ErrResolution              = errors.New("release resolution failed")
	ErrEnvironmentIncompatible = errors.New("environment incompatible")
	ErrVerificationFailed      = trust.ErrVerificationFailed
	ErrFilesystemInstall       = errors.New("filesystem install failed")
	ErrConfigWrite             = errors.New("config write failed")
	ErrRegistryWrite           = errors.New("registry write failed")

	ErrNotConfigured = errors.New("phar is not declared in the project config")
)

// EnvironmentIncompatibleError carries the full compatibility report of a
// phar that was not installed.
type EnvironmentIncompatibleError struct {
	Name    string
	Version string
	Result  compat.Result
}

func (e *EnvironmentIncompatibleError) Error() string {
	return fmt.Sprintf("%s %s is not compatible with this environment:\n%s", e.Name, e.Version, e.Result.String())
}

// Is makes errors.Is(err, ErrEnvironmentIncompatible) match.
func (e *EnvironmentIncompatibleError) Is(target error) bool {
	return target == ErrEnvironmentIncompatible
}

// wrapResolution tags a resolver failure. Verification failures and
// cancellation keep their own identity.
func wrapResolution(subject string, err error) error {
	if errors.Is(err, ErrVerificationFailed) {
		return fmt.Errorf("resolve %s: %w", subject, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrResolution, subject, err)
}
