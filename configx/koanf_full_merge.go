// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/sjson"

	"github.com/clinia/flagx/jsonx"
)

// MergeAllTypes is a koanf merge func that writes every leaf of src over dst.
// Arrays from src replace arrays in dst and a leaf may change its type, which
// koanf's own merge refuses to do.
func MergeAllTypes(src, dst map[string]interface{}) error {
	srcDoc, err := json.Marshal(src)
	if err != nil {
		return errors.WithStack(err)
	}
	merged, err := json.Marshal(dst)
	if err != nil {
		return errors.WithStack(err)
	}

	for path, leaf := range jsonx.Flatten(srcDoc) {
		if merged, err = sjson.SetBytes(merged, path, leaf); err != nil {
			return errors.Wrapf(err, "unable to merge %q", path)
		}
	}

	clear(dst)
	return errors.WithStack(json.Unmarshal(merged, &dst))
}
