package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/clinia/flagx/errorx"
	"github.com/clinia/flagx/featureflagx"
	"github.com/clinia/flagx/httpx"
	"github.com/clinia/flagx/loggerx"
)

const attributeParamPrefix = "attr."

// Provider states reported by /health/ready.
const (
	providerNone        = "none"
	providerPending     = "pending"
	providerInitialized = "initialized"
	providerFailed      = "failed"
)

// newRouter exposes the resolver and the gate over HTTP. Route templates are
// logged as is, so keep {flag} consistent.
func newRouter(s *services) http.Handler {
	r := mux.NewRouter()
	r.Use(traceContext(s.tracer.TextMapPropagator()), accessLog(s.logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errorx.NotFoundErrorf("no route for %s", r.URL.Path))
	})

	r.HandleFunc("/health/alive", alive).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/flags", s.localFlags).Methods(http.MethodGet)
	v1.HandleFunc("/flags/{flag}", s.resolveFlag).Methods(http.MethodGet)
	v1.HandleFunc("/gates/{flag}", s.checkGate).Methods(http.MethodGet)

	if !s.config.Serve.CORS.Enabled {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.config.Serve.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(r)
}

// traceContext continues the trace of the caller, so resolutions and the
// provider calls they make join it.
func traceContext(p propagation.TextMapPropagator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := p.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessLog(l *loggerx.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := r.URL.Path
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			l.Debug(r.Context(), "request served",
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", m.Code),
				attribute.Int64("http.response_size", m.Written),
				attribute.Float64("http.duration_ms", float64(m.Duration.Microseconds())/1000),
			)
		})
	}
}

func alive(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.SetCliniaHealthHeader(w, true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready reports ready as soon as the local table is loaded, since it answers
// whenever the provider cannot. The provider state is only informative.
func (s *services) ready(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok", "provider": providerNone}
	if s.resolver.Remote() {
		err := s.resolver.InitError()
		switch {
		case s.resolver.Initialized():
			body["provider"] = providerInitialized
		case err != nil:
			body["provider"] = providerFailed
			body["error"] = err.Error()
		default:
			body["provider"] = providerPending
		}
	}

	_ = httpx.SetCliniaHealthHeader(w, true)
	writeJSON(w, http.StatusOK, body)
}

// localFlags lists the local table, the values served when the provider is
// missing or failing.
func (s *services) localFlags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.table)
}

func (s *services) resolveFlag(w http.ResponseWriter, r *http.Request) {
	def, err := boolParam(r, "default", false)
	if err != nil {
		writeError(w, err)
		return
	}

	res := s.resolver.ResolveDetail(s.requestContext(r), mux.Vars(r)["flag"], def)
	writeJSON(w, http.StatusOK, newResolution(res))
}

func (s *services) checkGate(w http.ResponseWriter, r *http.Request) {
	spec := featureflagx.Enabled(mux.Vars(r)["flag"])
	var err error
	if spec.DefaultValue, err = boolParam(r, "default", false); err != nil {
		writeError(w, err)
		return
	}
	if spec.ExpectedValue, err = boolParam(r, "expect", true); err != nil {
		writeError(w, err)
		return
	}

	open := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.gate.Middleware(spec)(open).ServeHTTP(w, r.WithContext(s.requestContext(r)))
}

// requestContext carries the target described by the target and attr.*
// query parameters, on top of the configured default target.
func (s *services) requestContext(r *http.Request) context.Context {
	q := r.URL.Query()
	id := q.Get("target")

	t := s.config.FeatureFlags.Target
	changed := false
	if id != "" {
		t.Identifier = id
		changed = true
	}
	for k, vs := range q {
		if name, ok := strings.CutPrefix(k, attributeParamPrefix); ok && name != "" && len(vs) > 0 {
			t = t.WithAttribute(name, vs[0])
			changed = true
		}
	}
	if !changed {
		return r.Context()
	}
	return featureflagx.WithTarget(r.Context(), t)
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return def, errorx.InvalidArgumentErrorf("query parameter %q must be a boolean, got %q", name, raw)
	}
	return v, nil
}

// writeError answers with the CliniaError body and the status of its type.
func writeError(w http.ResponseWriter, err error) {
	ce, ok := errorx.IsCliniaError(err)
	if !ok {
		c := errorx.InternalErrorf("%s", err.Error())
		ce = &c
	}
	writeJSON(w, errorx.HTTPStatus(ce), ce)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
