// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/clinia/flagx/otelx"
)

func newCompiler(schema []byte, resources map[string][]byte) (string, *jsonschema.Compiler, error) {
	id := gjson.GetBytes(schema, "$id").String()
	if id == "" {
		id = fmt.Sprintf("%s.json", uuid.Must(uuid.NewRandom()).String())
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, bytes.NewBuffer(schema)); err != nil {
		return "", nil, errors.WithStack(err)
	}

	// DO NOT REMOVE THIS
	compiler.ExtractAnnotations = true

	if err := otelx.AddTracerConfigSchema(compiler); err != nil {
		return "", nil, err
	}
	if err := otelx.AddMeterConfigSchema(compiler); err != nil {
		return "", nil, err
	}

	for rid, raw := range resources {
		if err := compiler.AddResource(rid, bytes.NewBuffer(raw)); err != nil {
			return "", nil, errors.WithStack(err)
		}
	}

	return id, compiler, nil
}

// schemaPath describes a leaf of the configuration document.
type schemaPath struct {
	Name    string
	Type    string
	Default gjson.Result
}

// listSchemaPaths walks the `properties` of the schema and returns every leaf
// keyed by its dotted path. References to registered resources are followed.
func listSchemaPaths(schema []byte, resources map[string][]byte) (map[string]schemaPath, error) {
	paths := map[string]schemaPath{}
	if err := walkSchema(gjson.ParseBytes(schema), nil, resources, paths, 0); err != nil {
		return nil, err
	}
	return paths, nil
}

const maxSchemaDepth = 32

func walkSchema(node gjson.Result, parents []string, resources map[string][]byte, paths map[string]schemaPath, depth int) error {
	if depth > maxSchemaDepth {
		return errors.Errorf("schema at %q is nested too deeply", strings.Join(parents, "."))
	}

	if ref := node.Get("$ref"); ref.Exists() {
		raw, ok := resources[strings.TrimSuffix(ref.String(), "#")]
		if !ok {
			raw, ok = builtinResources()[strings.TrimSuffix(ref.String(), "#")]
		}
		if !ok {
			return errors.Errorf("unable to resolve schema reference %q", ref.String())
		}
		return walkSchema(gjson.ParseBytes(raw), parents, resources, paths, depth+1)
	}

	props := node.Get("properties")
	if node.Get("type").String() == "object" && props.IsObject() {
		var err error
		props.ForEach(func(key, value gjson.Result) bool {
			path := make([]string, len(parents), len(parents)+1)
			copy(path, parents)
			err = walkSchema(value, append(path, key.String()), resources, paths, depth+1)
			return err == nil
		})
		return err
	}

	if len(parents) == 0 {
		return nil
	}

	name := strings.Join(parents, ".")
	paths[name] = schemaPath{
		Name:    name,
		Type:    node.Get("type").String(),
		Default: node.Get("default"),
	}
	return nil
}

func builtinResources() map[string][]byte {
	return map[string][]byte{
		otelx.TracerConfigSchemaID: []byte(otelx.TracerConfigSchema),
		otelx.MeterConfigSchemaID:  []byte(otelx.MeterConfigSchema),
	}
}

func sortedPathNames(paths map[string]schemaPath) []string {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
