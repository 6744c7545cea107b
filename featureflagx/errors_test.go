package featureflagx

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/clinia/flagx/errorx"
)

func TestErrors(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("should detect wrapped config load errors", func(t *testing.T) {
		err := errors.Wrap(&ConfigLoadError{Resource: DefaultLocalResource, Err: cause}, "startup")
		assert.True(t, IsConfigLoadError(err))
		assert.False(t, IsProviderInitError(err))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), `could not load feature flags from "featureflags.properties"`)
	})

	t.Run("should detect provider init errors", func(t *testing.T) {
		err := &ProviderInitError{Err: cause}
		assert.True(t, IsProviderInitError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("should expose feature not enabled as a failed precondition", func(t *testing.T) {
		err := &FeatureNotEnabledError{Flag: "beta_ui"}
		assert.True(t, IsFeatureNotEnabledError(err))
		assert.True(t, errorx.IsFailedPreconditionError(err))
		assert.False(t, errorx.IsUnavailableError(err))
		assert.Equal(t, `feature "beta_ui" is not enabled`, err.Error())
	})
}
