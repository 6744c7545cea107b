package featureflagx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinia/flagx/errorx"
)

func TestNew(t *testing.T) {
	declared := []FeatureFlag{"beta_ui", "dark_mode", "new_search"}

	t.Run("should default declared flags to false", func(t *testing.T) {
		ff, err := New(map[string]bool{"beta_ui": true}, declared)
		require.NoError(t, err)
		assert.Equal(t, map[FeatureFlag]FeatureFlagValue{
			"beta_ui":    BoolFeatureFlagValue(true),
			"dark_mode":  BoolFeatureFlagValue(false),
			"new_search": BoolFeatureFlagValue(false),
		}, ff.GetFlags())
	})

	t.Run("should report additional flags by name", func(t *testing.T) {
		_, err := New(map[string]bool{"beta_ui": true, "legacy_ui": true}, declared[:1])
		require.Error(t, err)
		assert.True(t, errorx.IsInvalidArgumentError(err))
		assert.Contains(t, err.Error(), "additional: [legacy_ui]")
	})
}

func TestFeatureFlagsValidate(t *testing.T) {
	declared := []FeatureFlag{"beta_ui", "dark_mode"}

	for _, tc := range []struct {
		name  string
		table map[string]bool
		valid bool
	}{
		{name: "the declared flags", table: map[string]bool{"beta_ui": true, "dark_mode": false}, valid: true},
		{name: "a missing flag", table: map[string]bool{"beta_ui": true}},
		{name: "an additional flag", table: map[string]bool{"beta_ui": true, "dark_mode": true, "legacy_ui": true}},
	} {
		t.Run("should validate "+tc.name, func(t *testing.T) {
			err := NewFromMap(tc.table).Validate(declared)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestFeatureFlags(t *testing.T) {
	table := NewFromMap(map[string]bool{"beta_ui": true, "dark_mode": false})

	t.Run("should report enabled flags", func(t *testing.T) {
		assert.True(t, table.IsEnabled("beta_ui"))
		assert.False(t, table.IsEnabled("dark_mode"))
		assert.False(t, table.IsEnabled("missing_flag"))
		assert.Equal(t, 2, table.Len())
	})

	t.Run("should not expose its internal map", func(t *testing.T) {
		flags := table.GetFlags()
		flags["beta_ui"] = BoolFeatureFlagValue(false)
		assert.True(t, table.IsEnabled("beta_ui"))
	})

	t.Run("should marshal to a flat object", func(t *testing.T) {
		raw, err := json.Marshal(table)
		require.NoError(t, err)
		assert.JSONEq(t, `{"beta_ui":true,"dark_mode":false}`, string(raw))

		raw, err = json.Marshal((*FeatureFlags)(nil))
		require.NoError(t, err)
		assert.Equal(t, "null", string(raw))

		raw, err = (*FeatureFlags)(nil).MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, "{}", string(raw))
	})
}

func TestLookup(t *testing.T) {
	table := NewFromMap(map[string]bool{"beta_ui": true, "dark_mode": false})

	for _, tc := range []struct {
		name     string
		table    *FeatureFlags
		flag     string
		def      bool
		expected bool
	}{
		{name: "mapped true", table: table, flag: "beta_ui", def: false, expected: true},
		{name: "mapped false wins over default", table: table, flag: "dark_mode", def: true, expected: false},
		{name: "absent falls back to default false", table: table, flag: "missing_flag", def: false, expected: false},
		{name: "absent falls back to default true", table: table, flag: "missing_flag", def: true, expected: true},
		{name: "nil table", table: nil, flag: "beta_ui", def: true, expected: true},
	} {
		t.Run("should resolve "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Lookup(tc.table, tc.flag, tc.def))
		})
	}

	t.Run("should answer Has", func(t *testing.T) {
		assert.True(t, table.Has("dark_mode"))
		assert.False(t, table.Has("missing_flag"))
		assert.False(t, (*FeatureFlags)(nil).Has("beta_ui"))
	})
}
