// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package otelx

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"

	tracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	loggerxtest "github.com/clinia/flagx/loggerx/test"
	"github.com/clinia/flagx/stringsx"
)

func decodeResponseBody(t *testing.T, r *http.Request) []byte {
	var reader io.ReadCloser
	switch r.Header.Get("Content-Encoding") {
	case "gzip":
		var err error
		reader, err = gzip.NewReader(r.Body)
		if err != nil {
			t.Error(err)
			return nil
		}
	case "deflate":
		var err error
		reader, err = zlib.NewReader(r.Body)
		if err != nil {
			t.Error(err)
			return nil
		}

	default:
		reader = r.Body
	}
	respBody, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.NoError(t, reader.Close())
	return respBody
}

func TestHTTPOTLPTracer(t *testing.T) {
	done := make(chan struct{})
	var once sync.Once

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeResponseBody(t, r)

		var res tracepb.ExportTraceServiceRequest
		err := proto.Unmarshal(body, &res)
		if !assert.NoError(t, err, "must be able to unmarshal traces") {
			return
		}

		resourceSpans := res.GetResourceSpans()
		if !assert.NotEmpty(t, resourceSpans) {
			return
		}
		spans := resourceSpans[0].GetScopeSpans()[0].GetSpans()
		if !assert.Len(t, spans, 1) {
			return
		}

		assert.NotEmpty(t, spans[0].GetSpanId())
		assert.NotEmpty(t, spans[0].GetTraceId())
		assert.Equal(t, "resolve", spans[0].GetName())
		assert.Equal(t, "featureflag.key", spans[0].Attributes[0].Key)

		once.Do(func() { close(done) })
	}))
	defer ts.Close()

	tsu, err := url.Parse(ts.URL)
	require.NoError(t, err)

	tracerConfig := &TracerConfig{
		ServiceName: "flagx",
		Name:        "flagx",
		Provider:    "otel",
		Providers: TracerProvidersConfig{
			OTLP: OTLPConfig{
				Protocol:  "http",
				ServerURL: tsu.Host,
				Insecure:  true,
				Sampling: OTLPSampling{
					SamplingRatio: 1,
				},
			},
		},
	}

	tr, err := NewTracer(loggerxtest.NewTestLogger(t), tracerConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	_, span := tr.Tracer().Start(context.Background(), "resolve")
	span.SetAttributes(attribute.Bool("featureflag.key", true))
	span.End()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatalf("Test server did not receive spans")
	}
}

type TraceServiceServer struct {
	tracepb.TraceServiceServer
	t    *testing.T
	done chan struct{}
	once sync.Once
}

func (s *TraceServiceServer) Export(ctx context.Context, req *tracepb.ExportTraceServiceRequest) (*tracepb.ExportTraceServiceResponse, error) {
	resourceSpans := req.GetResourceSpans()
	spans := resourceSpans[0].GetScopeSpans()[0].GetSpans()
	if !assert.Len(s.t, spans, 1) {
		return &tracepb.ExportTraceServiceResponse{}, nil
	}

	assert.NotEmpty(s.t, spans[0].GetSpanId())
	assert.NotEmpty(s.t, spans[0].GetTraceId())
	assert.Equal(s.t, "resolve", spans[0].GetName())
	assert.Equal(s.t, "featureflag.key", spans[0].Attributes[0].Key)

	s.once.Do(func() { close(s.done) })

	return &tracepb.ExportTraceServiceResponse{}, nil
}

func TestGRPCOTLPTracer(t *testing.T) {
	done := make(chan struct{})

	grpcServer := grpc.NewServer()
	service := &TraceServiceServer{t: t, done: done}

	tracepb.RegisterTraceServiceServer(grpcServer, service)
	lis, err := net.Listen("tcp", "localhost:0") // Listen on a random available port
	require.NoError(t, err)
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	defer grpcServer.Stop()

	tracerConfig := &TracerConfig{
		ServiceName: "flagx",
		Name:        "flagx",
		Provider:    "otel",
		Providers: TracerProvidersConfig{
			OTLP: OTLPConfig{
				Protocol:  "grpc",
				ServerURL: lis.Addr().String(),
				Insecure:  true,
				Sampling: OTLPSampling{
					SamplingRatio: 1,
				},
			},
		},
	}

	tr, err := NewTracer(loggerxtest.NewTestLogger(t), tracerConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	_, span := tr.Tracer().Start(context.Background(), "resolve")
	span.SetAttributes(attribute.Bool("featureflag.key", true))
	span.End()

	select {
	case <-service.done:
	case <-time.After(15 * time.Second):
		t.Fatalf("Test server did not receive spans")
	}
}

func TestNewTracer(t *testing.T) {
	l := loggerxtest.NewTestLogger(t)

	t.Run("should fall back to a noop tracer", func(t *testing.T) {
		tr, err := NewTracer(l, &TracerConfig{})
		require.NoError(t, err)
		assert.True(t, tr.IsLoaded())

		_, span := tr.Tracer().Start(context.Background(), "noop")
		assert.False(t, span.SpanContext().IsValid())
		assert.NoError(t, tr.Shutdown(context.Background()))
	})

	t.Run("should build a stdout tracer", func(t *testing.T) {
		tr, err := NewTracer(l, &TracerConfig{Provider: "stdout"})
		require.NoError(t, err)
		assert.NotNil(t, tr.TextMapPropagator())
		assert.Equal(t, tr.Tracer(), tr.Provider().Tracer("other"))
		assert.NoError(t, tr.Shutdown(context.Background()))
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		_, err := NewTracer(l, &TracerConfig{Provider: "jaeger"})
		assert.ErrorIs(t, err, stringsx.ErrUnknownCase)
	})

	t.Run("should not be loaded when nil", func(t *testing.T) {
		var tr *Tracer
		assert.False(t, tr.IsLoaded())
	})
}
