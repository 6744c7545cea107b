// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"github.com/knadh/koanf/maps"
	"github.com/pkg/errors"
)

// KoanfSchemaDefaults loads the `default` annotations of a schema.
type KoanfSchemaDefaults struct {
	paths map[string]schemaPath
}

func NewKoanfSchemaDefaults(rawSchema []byte, resources map[string][]byte) (*KoanfSchemaDefaults, error) {
	paths, err := listSchemaPaths(rawSchema, resources)
	if err != nil {
		return nil, err
	}
	return &KoanfSchemaDefaults{paths: paths}, nil
}

func (k *KoanfSchemaDefaults) ReadBytes() ([]byte, error) {
	return nil, errors.New("schema defaults provider does not support this method")
}

func (k *KoanfSchemaDefaults) Read() (map[string]interface{}, error) {
	values := map[string]interface{}{}
	for _, name := range sortedPathNames(k.paths) {
		if def := k.paths[name].Default; def.Exists() {
			values[name] = def.Value()
		}
	}

	return maps.Unflatten(values, "."), nil
}
