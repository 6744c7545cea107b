// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinia/flagx/loggerx"
	"github.com/clinia/flagx/stringsx"
)

type tuple struct {
	Key   string
	Value interface{}
}

// Provider loads a configuration document from layered sources and validates
// it against a JSON schema. Later layers win: schema defaults, base values,
// config files, environment, flags, user providers, forced values.
type Provider struct {
	*koanf.Koanf

	schema    []byte
	resources map[string][]byte
	validator *jsonschema.Schema
	paths     map[string]schemaPath

	files             []string
	documents         []tuple
	flags             *pflag.FlagSet
	logger            *loggerx.Logger
	envPrefix         string
	skipValidation    bool
	disableEnvLoading bool
	forcedValues      []tuple
	baseValues        []tuple
	userProviders     []koanf.Provider
	onValidationError func(k *koanf.Koanf, err error)
}

// New creates a new provider instance or errors.
// Configuration values are loaded in the following order:
//
// 1. Defaults from the JSON Schema
// 2. Base values (WithBaseValues)
// 3. Config files (yaml, yml, json), then in-memory documents (WithConfigDocument)
// 4. Environment variables
// 5. CLI flags
// 6. User providers
// 7. Forced values (WithValue, WithValues)
func New(ctx context.Context, schema []byte, modifiers ...OptionModifier) (*Provider, error) {
	p := &Provider{
		schema:            schema,
		resources:         map[string][]byte{},
		logger:            &loggerx.Logger{Logger: slog.New(slog.DiscardHandler)},
		onValidationError: func(*koanf.Koanf, error) {},
	}

	for _, m := range modifiers {
		m(p)
	}

	id, compiler, err := newCompiler(schema, p.resources)
	if err != nil {
		return nil, err
	}

	p.validator, err = compiler.Compile(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	p.paths, err = listSchemaPaths(schema, p.resources)
	if err != nil {
		return nil, err
	}

	k, err := p.newKoanf(ctx)
	if err != nil {
		return nil, err
	}

	p.Koanf = k
	return p, nil
}

func (p *Provider) newKoanf(ctx context.Context) (*koanf.Koanf, error) {
	k := koanf.New(".")

	defaults := &KoanfSchemaDefaults{paths: p.paths}
	if err := k.Load(defaults, nil); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Load(confmap.Provider(tuplesToMap(p.baseValues), "."), nil); err != nil {
		return nil, errors.WithStack(err)
	}

	for _, f := range p.files {
		parser, err := parserFor(f)
		if err != nil {
			return nil, err
		}

		p.logger.Debug(ctx, "loading config file", attribute.String("file", f))
		if err := k.Load(file.Provider(f), parser, koanf.WithMergeFunc(MergeAllTypes)); err != nil {
			return nil, errors.Wrapf(err, "unable to load config file %q", f)
		}
	}

	for _, d := range p.documents {
		doc, _ := d.Value.([]byte)
		p.logger.Debug(ctx, "loading config document", attribute.String("name", d.Key))
		if err := k.Load(NewKoanfMemory(ctx, d.Key, doc), nil, koanf.WithMergeFunc(MergeAllTypes)); err != nil {
			return nil, err
		}
	}

	if !p.disableEnvLoading {
		if err := k.Load(env.ProviderWithValue(p.envPrefix, ".", p.envValue), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if p.flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(p.flags, ".", k, p.flagValue), nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, up := range p.userProviders {
		if err := k.Load(up, nil); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if err := k.Load(confmap.Provider(tuplesToMap(p.forcedValues), "."), nil); err != nil {
		return nil, errors.WithStack(err)
	}

	if !p.skipValidation {
		if err := p.validate(k); err != nil {
			p.onValidationError(k, err)
			return nil, err
		}
	}

	return k, nil
}

func (p *Provider) validate(k *koanf.Koanf) error {
	out, err := json.Marshal(k.Raw())
	if err != nil {
		return errors.WithStack(err)
	}

	if err := p.validator.Validate(bytes.NewReader(out)); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch f := stringsx.SwitchExact(strings.ToLower(filepath.Ext(path))); {
	case f.AddCase(".yaml"), f.AddCase(".yml"):
		return yaml.Parser(), nil
	case f.AddCase(".json"):
		return NewJSONParser(), nil
	default:
		return nil, errors.Wrapf(f.ToUnknownCaseErr(), "unsupported config file %q", path)
	}
}

// envValue maps FLAGX_FEATURE_FLAGS__PROVIDER to feature_flags.provider and
// drops variables that do not name a known configuration key.
func (p *Provider) envValue(key, value string) (string, interface{}) {
	key = strings.TrimPrefix(key, p.envPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))

	sp, ok := p.paths[key]
	if !ok {
		return "", nil
	}

	v, err := coerce(sp.Type, value)
	if err != nil {
		p.logger.Warn(context.Background(), "ignoring environment variable with an invalid value", attribute.String("key", key))
		return "", nil
	}
	return key, v
}

func (p *Provider) flagValue(f *pflag.Flag) (string, interface{}) {
	sp, ok := p.paths[f.Name]
	if !ok {
		return "", nil
	}

	v := posflag.FlagVal(p.flags, f)
	if s, isString := v.(string); isString {
		if coerced, err := coerce(sp.Type, s); err == nil {
			return f.Name, coerced
		}
	}
	return f.Name, v
}

func coerce(schemaType, value string) (interface{}, error) {
	switch schemaType {
	case "boolean":
		return cast.ToBoolE(value)
	case "integer":
		return cast.ToInt64E(value)
	case "number":
		return cast.ToFloat64E(value)
	case "array":
		if value == "" {
			return []string{}, nil
		}
		return strings.Split(value, ","), nil
	default:
		return value, nil
	}
}

func tuplesToMap(tuples []tuple) map[string]interface{} {
	m := make(map[string]interface{}, len(tuples))
	for _, t := range tuples {
		m[t.Key] = t.Value
	}
	return m
}

// Unmarshal decodes the value at path into out using the `json` struct tags.
// Durations may be given as strings such as "5s".
func (p *Provider) Unmarshal(path string, out interface{}) error {
	return errors.WithStack(p.Koanf.UnmarshalWithConf(path, out, koanf.UnmarshalConf{Tag: "json"}))
}

func (p *Provider) DurationF(key string, fallback time.Duration) time.Duration {
	if !p.Koanf.Exists(key) {
		return fallback
	}
	d, err := cast.ToDurationE(p.Koanf.Get(key))
	if err != nil {
		return fallback
	}
	return d
}

func (p *Provider) StringF(key, fallback string) string {
	if !p.Koanf.Exists(key) {
		return fallback
	}
	return p.Koanf.String(key)
}

func (p *Provider) BoolF(key string, fallback bool) bool {
	if !p.Koanf.Exists(key) {
		return fallback
	}
	return p.Koanf.Bool(key)
}

func (p *Provider) IntF(key string, fallback int) int {
	if !p.Koanf.Exists(key) {
		return fallback
	}
	return p.Koanf.Int(key)
}

// Set overrides a value at runtime and re-validates the whole document.
func (p *Provider) Set(key string, value interface{}) error {
	next := p.Koanf.Copy()
	if err := next.Set(key, value); err != nil {
		return errors.WithStack(err)
	}
	if !p.skipValidation {
		if err := p.validate(next); err != nil {
			return err
		}
	}
	p.Koanf = next
	return nil
}

// PrintHumanReadableValidationErrors writes validation errors, if any, to w.
func (p *Provider) PrintHumanReadableValidationErrors(w io.Writer, err error) {
	p.printHumanReadableValidationErrors(p.Koanf, w, err)
}
