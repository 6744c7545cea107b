package featureflagx

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/clinia/flagx/errorx"
)

// ConfigLoadError means the local flag resource could not be loaded. There is
// nothing to fall back to, so it is fatal at startup.
type ConfigLoadError struct {
	Resource string
	Err      error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("could not load feature flags from %q: %v", e.Resource, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

func IsConfigLoadError(err error) bool {
	var e *ConfigLoadError
	return errors.As(err, &e)
}

// ProviderInitError records a failed provider handshake. The resolver keeps
// serving from the local table and retries later.
type ProviderInitError struct {
	Err error
}

func (e *ProviderInitError) Error() string {
	return fmt.Sprintf("feature flag provider initialization failed: %v", e.Err)
}

func (e *ProviderInitError) Unwrap() error {
	return e.Err
}

func IsProviderInitError(err error) bool {
	var e *ProviderInitError
	return errors.As(err, &e)
}

// FeatureNotEnabledError is returned by a gate whose flag did not resolve to
// the expected value. It unwraps to a FAILED_PRECONDITION error.
type FeatureNotEnabledError struct {
	Flag string
}

func (e *FeatureNotEnabledError) Error() string {
	return fmt.Sprintf("feature %q is not enabled", e.Flag)
}

func (e *FeatureNotEnabledError) Unwrap() error {
	return errorx.FailedPreconditionErrorf("feature %q is not enabled", e.Flag)
}

func IsFeatureNotEnabledError(err error) bool {
	var e *FeatureNotEnabledError
	return errors.As(err, &e)
}
