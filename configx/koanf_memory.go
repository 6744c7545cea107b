// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"context"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/pkg/errors"
)

// KoanfMemory is a koanf provider for a configuration document that is already
// in memory, such as one piped on stdin. YAML and JSON are both accepted.
type KoanfMemory struct {
	ctx  context.Context
	name string
	doc  []byte
}

func NewKoanfMemory(ctx context.Context, name string, doc []byte) *KoanfMemory {
	return &KoanfMemory{ctx: ctx, name: name, doc: doc}
}

func (k *KoanfMemory) ReadBytes() ([]byte, error) {
	return k.doc, nil
}

func (k *KoanfMemory) Read() (map[string]interface{}, error) {
	if err := k.ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(k.doc) == 0 {
		return map[string]interface{}{}, nil
	}

	v, err := yaml.Parser().Unmarshal(k.doc)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse config document %q", k.name)
	}
	return v, nil
}
