package tracex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinia/flagx/loggerx"
	loggerxtest "github.com/clinia/flagx/loggerx/test"
	"github.com/clinia/flagx/otelx"
)

func TestComponentName(t *testing.T) {
	t.Run("should join the package and struct names", func(t *testing.T) {
		assert.Equal(t, "featureflagx.Resolver", ComponentName("featureflagx", "Resolver"))
	})
}

func TestInstrumentNext(t *testing.T) {
	l, buf := loggerxtest.NewTestLoggerWithJSONBuffer(t)
	tracer := otelx.NewNoopTracer("flagx")

	t.Run("should start a span and scope the logger to it", func(t *testing.T) {
		ctx, span, logger := InstrumentNext(context.Background(),
			func() *loggerx.Logger { return l },
			func(context.Context) *otelx.Tracer { return tracer },
			"featureflagx.Resolver", "Resolve",
			trace.WithAttributes(attribute.String("featureflag.key", "beta_ui")),
		)
		defer span.End()

		assert.Equal(t, span, trace.SpanFromContext(ctx))
		assert.NotSame(t, l, logger)

		logger.Info(ctx, "feature flag resolved")
		require.True(t, gjson.Valid(buf.String()))

		entry := gjson.Parse(buf.String())
		assert.Equal(t, "feature flag resolved", entry.Get("msg").String())
		assert.Equal(t, "beta_ui", entry.Get(`featureflag\.key`).String())
		assert.Equal(t, "featureflagx.Resolver.Resolve", entry.Get("component").String())
	})
}
