package featureflagx

import "maps"

// Target identifies who a flag is evaluated for. Providers use it for
// targeting rules.
type Target struct {
	Identifier string            `json:"identifier"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// WithAttribute returns a copy of t with key set to value.
func (t Target) WithAttribute(key, value string) Target {
	out := t
	out.Attributes = maps.Clone(t.Attributes)
	if out.Attributes == nil {
		out.Attributes = map[string]string{}
	}
	out.Attributes[key] = value
	return out
}

func (t Target) IsZero() bool {
	return t.Identifier == "" && t.Name == "" && len(t.Attributes) == 0
}
