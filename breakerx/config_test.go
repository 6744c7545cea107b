package breakerx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ory/jsonschema/v3"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("should fill zero fields with defaults", func(t *testing.T) {
		c := Config{ConsecutiveFailures: 2, CoolDown: time.Second}.WithDefaults()
		assert.Equal(t, Config{
			ConsecutiveFailures: 2,
			FailureRatio:        DefaultFailureRatio,
			MinRequests:         DefaultMinRequests,
			Interval:            DefaultInterval,
			CoolDown:            time.Second,
			HalfOpenMaxRequests: DefaultHalfOpenMaxRequests,
			Granularity:         GranularityShared,
		}, c)
	})

	t.Run("should keep disabled trip rules", func(t *testing.T) {
		c := Config{ConsecutiveFailures: -1, FailureRatio: -1}.WithDefaults()
		assert.Equal(t, -1, c.ConsecutiveFailures)
		assert.Equal(t, float64(-1), c.FailureRatio)

		assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 100, ConsecutiveFailures: 100, TotalFailures: 100}))
	})

	t.Run("should trip on the ratio alone when consecutive failures are disabled", func(t *testing.T) {
		c := Config{ConsecutiveFailures: -1}.WithDefaults()
		assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 10, ConsecutiveFailures: 10, TotalFailures: 10}))
		assert.True(t, c.ReadyToTrip(gobreaker.Counts{Requests: 20, ConsecutiveFailures: 10, TotalFailures: 10}))
	})

	t.Run("should trip on consecutive failures", func(t *testing.T) {
		c := DefaultConfig()
		assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 4, ConsecutiveFailures: 4, TotalFailures: 4}))
		assert.True(t, c.ReadyToTrip(gobreaker.Counts{Requests: 5, ConsecutiveFailures: 5, TotalFailures: 5}))
	})

	t.Run("should trip on the failure ratio once enough requests were seen", func(t *testing.T) {
		c := DefaultConfig()
		assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 19, TotalFailures: 15, ConsecutiveFailures: 1}))
		assert.False(t, c.ReadyToTrip(gobreaker.Counts{Requests: 20, TotalFailures: 9, ConsecutiveFailures: 1}))
		assert.True(t, c.ReadyToTrip(gobreaker.Counts{Requests: 20, TotalFailures: 10, ConsecutiveFailures: 1}))
	})
}

func TestConfigSchema(t *testing.T) {
	compile := func(t *testing.T) *jsonschema.Schema {
		c := jsonschema.NewCompiler()
		require.NoError(t, AddConfigSchema(c))
		schema, err := c.Compile(context.Background(), ConfigSchemaID)
		require.NoError(t, err)
		return schema
	}

	t.Run("should accept a full configuration", func(t *testing.T) {
		raw := `{"consecutive_failures":3,"failure_ratio":0.25,"min_requests":10,"interval":"30s","cool_down":"1m","half_open_max_requests":2,"granularity":"per_flag"}`
		assert.NoError(t, compile(t).Validate(bytes.NewBufferString(raw)))
	})

	t.Run("should accept disabled trip rules", func(t *testing.T) {
		raw := `{"consecutive_failures":-1,"failure_ratio":-1}`
		assert.NoError(t, compile(t).Validate(bytes.NewBufferString(raw)))
	})

	t.Run("should reject an unknown granularity", func(t *testing.T) {
		assert.Error(t, compile(t).Validate(bytes.NewBufferString(`{"granularity":"per_user"}`)))
	})

	t.Run("should reject malformed durations", func(t *testing.T) {
		assert.Error(t, compile(t).Validate(bytes.NewBufferString(`{"cool_down":"five seconds"}`)))
	})
}
