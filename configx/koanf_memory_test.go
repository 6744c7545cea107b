// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKoanfMemory(t *testing.T) {
	t.Run("should read yaml and json documents", func(t *testing.T) {
		for _, doc := range []string{
			"feature_flags:\n  provider: remote\n",
			`{"feature_flags": {"provider": "remote"}}`,
		} {
			actual, err := NewKoanfMemory(context.Background(), "stdin", []byte(doc)).Read()
			require.NoError(t, err)
			assert.Equal(t, map[string]interface{}{"feature_flags": map[string]interface{}{"provider": "remote"}}, actual)
		}
	})

	t.Run("should read an empty document as an empty map", func(t *testing.T) {
		actual, err := NewKoanfMemory(context.Background(), "stdin", nil).Read()
		require.NoError(t, err)
		assert.Empty(t, actual)
	})

	t.Run("should name the document on parse errors", func(t *testing.T) {
		_, err := NewKoanfMemory(context.Background(), "stdin", []byte("feature_flags: [")).Read()
		assert.ErrorContains(t, err, `"stdin"`)
	})

	t.Run("should stop once the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewKoanfMemory(ctx, "stdin", []byte("a: b")).Read()
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMergeAllTypes(t *testing.T) {
	t.Run("should replace arrays and change leaf types", func(t *testing.T) {
		dst := map[string]interface{}{
			"serve": map[string]interface{}{
				"cors": map[string]interface{}{"allowed_origins": []interface{}{"a", "b"}},
			},
			"feature_flags": map[string]interface{}{"timeout": float64(1)},
		}
		src := map[string]interface{}{
			"serve": map[string]interface{}{
				"cors": map[string]interface{}{"allowed_origins": []interface{}{"c"}},
			},
			"feature_flags": map[string]interface{}{"timeout": "250ms"},
		}

		require.NoError(t, MergeAllTypes(src, dst))
		assert.Equal(t, map[string]interface{}{
			"serve": map[string]interface{}{
				"cors": map[string]interface{}{"allowed_origins": []interface{}{"c"}},
			},
			"feature_flags": map[string]interface{}{"timeout": "250ms"},
		}, dst)
	})
}
