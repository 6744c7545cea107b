package featureflagx

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/clinia/flagx/errorx"
)

// FeatureFlags is the local flag table. It is never mutated once built, so
// it can be read from any goroutine without locking.
type FeatureFlags struct {
	fa map[FeatureFlag]FeatureFlagValue
}

// New builds a table holding exactly the declared flags. Declared flags
// missing from fs default to false. Flags in fs that are not declared fail
// validation.
func New(fs map[string]bool, declared []FeatureFlag) (*FeatureFlags, error) {
	ffs := NewFromMap(fs)
	for _, f := range declared {
		if _, ok := ffs.fa[f]; !ok {
			ffs.fa[f] = BoolFeatureFlagValue(false)
		}
	}
	return ffs, ffs.Validate(declared)
}

// NewFromMap builds a table from fs without any declared flag list.
func NewFromMap(fs map[string]bool) *FeatureFlags {
	ffs := &FeatureFlags{
		fa: make(map[FeatureFlag]FeatureFlagValue, len(fs)),
	}
	for f, v := range fs {
		ffs.fa[FeatureFlag(f)] = BoolFeatureFlagValue(v)
	}
	return ffs
}

func (ffs *FeatureFlags) IsEnabled(ff FeatureFlag) bool {
	return ffs.Lookup(ff.String(), false)
}

// Lookup returns the value mapped to name, or def when the table does not
// hold it. A nil table holds nothing.
func (ffs *FeatureFlags) Lookup(name string, def bool) bool {
	if ffs == nil {
		return def
	}
	v, ok := ffs.fa[FeatureFlag(name)]
	if !ok {
		return def
	}
	return v.IsEnabled()
}

// Has reports whether the table maps name.
func (ffs *FeatureFlags) Has(name string) bool {
	if ffs == nil {
		return false
	}
	_, ok := ffs.fa[FeatureFlag(name)]
	return ok
}

// GetFlags returns a copy of the table.
func (ffs *FeatureFlags) GetFlags() map[FeatureFlag]FeatureFlagValue {
	if ffs == nil {
		return map[FeatureFlag]FeatureFlagValue{}
	}
	return maps.Clone(ffs.fa)
}

func (ffs *FeatureFlags) Len() int {
	if ffs == nil {
		return 0
	}
	return len(ffs.fa)
}

// Validate fails when the table does not hold exactly the declared flags.
func (ffs *FeatureFlags) Validate(declared []FeatureFlag) error {
	missing, additional := lo.Difference(declared, lo.Keys(ffs.fa))
	if len(missing) == 0 && len(additional) == 0 {
		return nil
	}
	slices.Sort(missing)
	slices.Sort(additional)
	return errorx.InvalidArgumentErrorf("flags are missing or additional flags were provided, missing: %v, additional: %v", missing, additional)
}

// Lookup returns the value of name in table, or def when absent.
func Lookup(table *FeatureFlags, name string, def bool) bool {
	return table.Lookup(name, def)
}

// MarshalJSON writes the table as a flat object of booleans.
func (ffs *FeatureFlags) MarshalJSON() ([]byte, error) {
	out := make(map[string]bool, ffs.Len())
	if ffs != nil {
		for f, v := range ffs.fa {
			out[f.String()] = v.IsEnabled()
		}
	}
	return json.Marshal(out)
}
