package featureflagx

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/clinia/flagx/errorx"
)

// FeatureFlag is the name of a flag, as written in the local file and known
// to the provider.
type FeatureFlag string

func (f FeatureFlag) String() string {
	return string(f)
}

type FeatureFlagValue interface {
	IsEnabled() bool
}

type BoolFeatureFlagValue bool

var _ FeatureFlagValue = BoolFeatureFlagValue(false)

func (v BoolFeatureFlagValue) IsEnabled() bool {
	return bool(v)
}

// ParseBoolFeatureFlagValue reads a textual flag value. It accepts what
// strconv.ParseBool accepts, surrounding spaces included.
func ParseBoolFeatureFlagValue(f FeatureFlag, raw string) (BoolFeatureFlagValue, error) {
	v, err := cast.ToBoolE(strings.TrimSpace(raw))
	if err != nil {
		return false, errorx.InvalidArgumentErrorf("flag %q has a non boolean value %q", f, raw)
	}
	return BoolFeatureFlagValue(v), nil
}
