// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"context"
	"io"

	"github.com/knadh/koanf"
	"github.com/spf13/pflag"

	"github.com/clinia/flagx/loggerx"
)

// OptionModifier configures a Provider before its first load.
type OptionModifier func(p *Provider)

type optionsContextKey struct{}

// ContextWithConfigOptions stores options which WithContext applies later.
// Tests use it to reach a provider built deep inside a command.
func ContextWithConfigOptions(ctx context.Context, opts ...OptionModifier) context.Context {
	return context.WithValue(ctx, optionsContextKey{}, opts)
}

func WithContext(ctx context.Context) OptionModifier {
	return func(p *Provider) {
		opts, _ := ctx.Value(optionsContextKey{}).([]OptionModifier)
		for _, o := range opts {
			o(p)
		}
	}
}

// Sources, lowest precedence first.

func WithBaseValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) { p.baseValues = appendTuples(p.baseValues, values) }
}

func WithConfigFiles(files ...string) OptionModifier {
	return func(p *Provider) { p.files = append(p.files, files...) }
}

// WithConfigDocument loads a YAML or JSON document held in memory right after
// the config files.
func WithConfigDocument(name string, doc []byte) OptionModifier {
	return func(p *Provider) { p.documents = append(p.documents, tuple{Key: name, Value: doc}) }
}

// WithEnvPrefix only loads the environment variables starting with prefix.
// The prefix is stripped and `__` separates nested keys, i.e.
// FLAGX_FEATURE_FLAGS__PROVIDER sets feature_flags.provider.
func WithEnvPrefix(prefix string) OptionModifier {
	return func(p *Provider) { p.envPrefix = prefix }
}

func DisableEnvLoading() OptionModifier {
	return func(p *Provider) { p.disableEnvLoading = true }
}

// WithFlags loads the flags of set whose name is a schema path. Flags left at
// their default only fill keys no earlier source set.
func WithFlags(set *pflag.FlagSet) OptionModifier {
	return func(p *Provider) { p.flags = set }
}

func WithUserProviders(providers ...koanf.Provider) OptionModifier {
	return func(p *Provider) { p.userProviders = append(p.userProviders, providers...) }
}

func WithValue(key string, value interface{}) OptionModifier {
	return func(p *Provider) { p.forcedValues = append(p.forcedValues, tuple{Key: key, Value: value}) }
}

func WithValues(values map[string]interface{}) OptionModifier {
	return func(p *Provider) { p.forcedValues = appendTuples(p.forcedValues, values) }
}

// Schema and validation.

// WithSchemaResources registers the schemas referenced by the root schema,
// each keyed by its `$id`.
func WithSchemaResources(resources map[string]string) OptionModifier {
	return func(p *Provider) {
		for id, raw := range resources {
			p.resources[id] = []byte(raw)
		}
	}
}

func SkipValidation() OptionModifier {
	return func(p *Provider) { p.skipValidation = true }
}

// WithStandardValidationReporter prints validation failures to w before New
// returns the error.
func WithStandardValidationReporter(w io.Writer) OptionModifier {
	return func(p *Provider) {
		p.onValidationError = func(k *koanf.Koanf, err error) {
			p.printHumanReadableValidationErrors(k, w, err)
		}
	}
}

func WithLogger(l *loggerx.Logger) OptionModifier {
	return func(p *Provider) { p.logger = l }
}

func appendTuples(tuples []tuple, values map[string]interface{}) []tuple {
	for key, value := range values {
		tuples = append(tuples, tuple{Key: key, Value: value})
	}
	return tuples
}
