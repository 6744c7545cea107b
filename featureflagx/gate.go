package featureflagx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/loggerx"
)

// BoolResolver resolves a boolean flag without ever failing.
type BoolResolver interface {
	Resolve(ctx context.Context, name string, def bool) bool
}

var _ BoolResolver = (*Resolver)(nil)

// Gate blocks operations whose flag does not resolve to the expected value.
type Gate struct {
	resolver BoolResolver
	logger   *loggerx.Logger
}

type GateOption func(*Gate)

func WithGateLogger(l *loggerx.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

func NewGate(r BoolResolver, opts ...GateOption) *Gate {
	g := &Gate{
		resolver: r,
		logger:   &loggerx.Logger{Logger: slog.New(slog.DiscardHandler)},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check returns a *FeatureNotEnabledError when spec's flag does not resolve
// to spec.ExpectedValue.
func (g *Gate) Check(ctx context.Context, spec Spec) error {
	actual := g.resolver.Resolve(ctx, spec.Name, spec.DefaultValue)
	if actual == spec.ExpectedValue {
		return nil
	}

	g.logger.Debug(ctx, "feature gate closed",
		attribute.String("featureflag.key", spec.Name),
		attribute.Bool("featureflag.value", actual),
		attribute.Bool("featureflag.expected", spec.ExpectedValue),
	)
	return &FeatureNotEnabledError{Flag: spec.Name}
}

// Guard runs fn only when the gate is open. Otherwise fn is not called and
// the *FeatureNotEnabledError is returned.
func (g *Gate) Guard(ctx context.Context, spec Spec, fn func(ctx context.Context) error) error {
	if err := g.Check(ctx, spec); err != nil {
		return err
	}
	return fn(ctx)
}

// Guarded wraps fn so that every call checks spec first.
func Guarded[T any](g *Gate, spec Spec, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		if err := g.Check(ctx, spec); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}
}

// Middleware answers 403 with a FAILED_PRECONDITION body when the gate is
// closed, and never calls next in that case. Otherwise next gets the gate in
// its request context, see FromContext.
func (g *Gate) Middleware(spec Spec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Check(r.Context(), spec); err != nil {
				writeFeatureNotEnabled(r.Context(), g.logger, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), g)))
		})
	}
}

func writeFeatureNotEnabled(ctx context.Context, l *loggerx.Logger, w http.ResponseWriter, err error) {
	body := errorx.FailedPreconditionErrorf("%s", err.Error())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Type.HTTPStatus())
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l.WithError(err).Error(ctx, "could not write feature gate response")
	}
}
