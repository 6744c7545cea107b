package errorx

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

type CliniaError struct {
	Type    ErrorType     `json:"type"`
	Message string        `json:"message"`
	Details []CliniaError `json:"details,omitempty"`

	OriginalError error `json:"-"` // Not returned to clients
}

var _ error = (*CliniaError)(nil)

var messageRegexp = regexp.MustCompile(`\[(.*?)\] (.*)`)

func (e CliniaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap exposes the original error, if any, to errors.Is and errors.As.
func (e CliniaError) Unwrap() error {
	return e.OriginalError
}

// WithDetails returns a copy of the error with the given errors appended to its details.
func (e CliniaError) WithDetails(details ...CliniaError) CliniaError {
	out := e
	out.Details = append(append([]CliniaError{}, e.Details...), details...)
	return out
}

// WithOriginalError returns a copy of the error wrapping err.
func (e CliniaError) WithOriginalError(err error) CliniaError {
	out := e
	out.OriginalError = err
	return out
}

func NewCliniaErrorFromMessage(msg string) (*CliniaError, error) {
	m := messageRegexp.FindStringSubmatch(msg)
	if m == nil || len(m) < 2 {
		return nil, fmt.Errorf("%q is not a valid error type", msg)
	}

	eT, err := ParseErrorType(m[1])
	if err != nil {
		return nil, err
	}

	if len(m) >= 3 {
		msg = m[2]
	}

	return &CliniaError{
		Type:    eT,
		Message: msg,
	}, nil
}

// IsCliniaError reports whether e, or any error it wraps, is a CliniaError.
func IsCliniaError(e error) (*CliniaError, bool) {
	if e == nil {
		return nil, false
	}

	var mE CliniaError
	if errors.As(e, &mE) {
		if mE.Type == ErrorTypeUnspecified {
			return nil, false
		}
		return &mE, true
	}

	var pE *CliniaError
	if errors.As(e, &pE) && pE != nil {
		if pE.Type == ErrorTypeUnspecified {
			return nil, false
		}
		return pE, true
	}

	return nil, false
}

func newCliniaError(t ErrorType, msg string) CliniaError {
	return CliniaError{
		Type:    t,
		Message: msg,
	}
}

func isType(e error, t ErrorType) bool {
	mE, ok := IsCliniaError(e)
	if !ok {
		return false
	}

	return mE.Type == t
}
