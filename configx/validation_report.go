// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"fmt"
	"io"
	"strings"

	"github.com/knadh/koanf"
	"github.com/ory/jsonschema/v3"
	"github.com/pkg/errors"
)

func (p *Provider) printHumanReadableValidationErrors(k *koanf.Koanf, w io.Writer, err error) {
	if err == nil {
		return
	}

	_, _ = fmt.Fprintln(w, "")
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		_, _ = fmt.Fprintf(w, "An error occurred while loading the configuration: %s\n", err)
		return
	}

	_, _ = fmt.Fprintln(w, "The configuration contains values or keys which are invalid:")
	printValidationError(k, w, ve, 0)
	_, _ = fmt.Fprintln(w, "")
}

func printValidationError(k *koanf.Koanf, w io.Writer, ve *jsonschema.ValidationError, depth int) {
	indent := strings.Repeat("  ", depth)
	pointer := strings.Trim(strings.ReplaceAll(ve.InstancePtr, "/", "."), ".#")

	if pointer == "" {
		_, _ = fmt.Fprintf(w, "%s(root): %s\n", indent, ve.Message)
	} else {
		_, _ = fmt.Fprintf(w, "%s%s: %v\n", indent, pointer, k.Get(pointer))
		_, _ = fmt.Fprintf(w, "%s%s^-- %s\n", indent, strings.Repeat(" ", len(pointer)), ve.Message)
	}

	for _, cause := range ve.Causes {
		printValidationError(k, w, cause, depth+1)
	}
}
