package featureflagx

// Spec declares the flag check guarding an operation. The operation runs only
// when the flag resolves to ExpectedValue.
type Spec struct {
	Name          string
	DefaultValue  bool
	ExpectedValue bool
}

// Enabled guards an operation behind a flag that is off unless set.
func Enabled(name string) Spec {
	return Spec{Name: name, DefaultValue: false, ExpectedValue: true}
}
