// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package otelx

import (
	"bytes"
	_ "embed"
	"io"

	"go.opentelemetry.io/otel/attribute"
)

type (
	OTLPConfig struct {
		Protocol  string       `json:"protocol"`
		ServerURL string       `json:"server_url"`
		Insecure  bool         `json:"insecure"`
		Sampling  OTLPSampling `json:"sampling"`
	}

	OTLPSampling struct {
		SamplingRatio float64 `json:"sampling_ratio"`
	}

	OTLPMeterConfig struct {
		Protocol  string `json:"protocol"`
		ServerURL string `json:"server_url"`
		Insecure  bool   `json:"insecure"`
	}

	StdoutConfig struct {
		Pretty bool `json:"pretty"`
	}

	TracerProvidersConfig struct {
		OTLP   OTLPConfig   `json:"otlp"`
		Stdout StdoutConfig `json:"stdout"`
	}

	MeterProvidersConfig struct {
		OTLP   OTLPMeterConfig `json:"otlp"`
		Stdout StdoutConfig    `json:"stdout"`
	}

	TracerConfig struct {
		ServiceName        string                `json:"service_name"`
		Name               string                `json:"name"`
		Provider           string                `json:"provider"`
		Providers          TracerProvidersConfig `json:"providers"`
		ResourceAttributes []attribute.KeyValue  `json:"-"`
	}

	MeterConfig struct {
		ServiceName        string               `json:"service_name"`
		Name               string               `json:"name"`
		Provider           string               `json:"provider"`
		Providers          MeterProvidersConfig `json:"providers,omitempty"`
		ResourceAttributes []attribute.KeyValue `json:"-"`
	}
)

// SetDefaultNames fills the service and instrumentation names left empty.
func (c *TracerConfig) SetDefaultNames(name string) {
	c.ServiceName, c.Name = orDefault(c.ServiceName, name), orDefault(c.Name, name)
}

// SetDefaultNames fills the service and instrumentation names left empty.
func (c *MeterConfig) SetDefaultNames(name string) {
	c.ServiceName, c.Name = orDefault(c.ServiceName, name), orDefault(c.Name, name)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var (
	//go:embed tracer.schema.json
	TracerConfigSchema string
	//go:embed meter.schema.json
	MeterConfigSchema string
)

const (
	TracerConfigSchemaID = "clinia://tracer-config"
	MeterConfigSchemaID  = "clinia://meter-config"
)

type schemaCompiler interface {
	AddResource(url string, r io.Reader) error
}

// AddTracerConfigSchema adds the tracer schema to the compiler.
func AddTracerConfigSchema(c schemaCompiler) error {
	return c.AddResource(TracerConfigSchemaID, bytes.NewBufferString(TracerConfigSchema))
}

// AddMeterConfigSchema adds the meter schema to the compiler.
func AddMeterConfigSchema(c schemaCompiler) error {
	return c.AddResource(MeterConfigSchemaID, bytes.NewBufferString(MeterConfigSchema))
}
