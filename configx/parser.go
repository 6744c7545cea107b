// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"github.com/ghodss/yaml"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/pkg/errors"
)

// JSONParser reads JSON documents and writes them back as YAML for humans.
type JSONParser struct {
	*kjson.JSON
}

func NewJSONParser() *JSONParser {
	return &JSONParser{JSON: kjson.Parser()}
}

// MarshalYAML renders a loaded configuration as YAML.
func MarshalYAML(o map[string]interface{}) ([]byte, error) {
	out, err := yaml.Marshal(o)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}
