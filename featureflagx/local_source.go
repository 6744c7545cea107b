package featureflagx

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// DefaultLocalResource is the name of the bundled flag file.
const DefaultLocalResource = "featureflags.properties"

// LocalSource loads the local flag table from a properties resource:
//
//	# comments start with # or !
//	beta_ui=true
//	dark_mode: false
type LocalSource struct {
	fsys     fs.FS
	name     string
	declared []FeatureFlag
}

type LocalSourceOption func(*LocalSource)

// WithDeclaredFlags makes Load fail when the resource does not hold exactly
// these flags.
func WithDeclaredFlags(flags ...FeatureFlag) LocalSourceOption {
	return func(s *LocalSource) {
		s.declared = append(s.declared, flags...)
	}
}

func NewLocalSource(fsys fs.FS, name string, opts ...LocalSourceOption) *LocalSource {
	s := &LocalSource{
		fsys: fsys,
		name: name,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewLocalFileSource reads the resource at path on the local filesystem.
func NewLocalFileSource(path string, opts ...LocalSourceOption) *LocalSource {
	return NewLocalSource(os.DirFS(filepath.Dir(path)), filepath.Base(path), opts...)
}

func (s *LocalSource) Resource() string {
	return s.name
}

// Load parses the resource into a table. Any failure is a *ConfigLoadError.
func (s *LocalSource) Load() (*FeatureFlags, error) {
	buf, err := fs.ReadFile(s.fsys, s.name)
	if err != nil {
		return nil, s.loadError(errors.WithStack(err))
	}

	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(buf)
	if err != nil {
		return nil, s.loadError(errors.WithStack(err))
	}

	values := make(map[string]bool, p.Len())
	for _, key := range p.Keys() {
		raw, _ := p.Get(key)
		v, err := ParseBoolFeatureFlagValue(FeatureFlag(key), raw)
		if err != nil {
			return nil, s.loadError(err)
		}
		values[key] = v.IsEnabled()
	}

	if len(s.declared) == 0 {
		return NewFromMap(values), nil
	}

	ffs, err := New(values, s.declared)
	if err != nil {
		return nil, s.loadError(err)
	}
	return ffs, nil
}

func (s *LocalSource) loadError(err error) error {
	return &ConfigLoadError{Resource: s.name, Err: err}
}
