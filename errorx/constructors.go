package errorx

import "fmt"

func errorf(t ErrorType, format string, args []any) CliniaError {
	return newCliniaError(t, fmt.Sprintf(format, args...))
}

// FailedPreconditionErrorf is returned when a gate refuses a caller.
func FailedPreconditionErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeFailedPrecondition, format, args)
}

func InvalidArgumentErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeInvalidArgument, format, args)
}

func NotFoundErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeNotFound, format, args)
}

// UnavailableErrorf marks a provider or backend that cannot answer right now.
// Callers fall back to local values on it.
func UnavailableErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeUnavailable, format, args)
}

func DeadlineExceededErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeDeadlineExceeded, format, args)
}

func InternalErrorf(format string, args ...any) CliniaError {
	return errorf(ErrorTypeInternal, format, args)
}

func IsFailedPreconditionError(e error) bool { return isType(e, ErrorTypeFailedPrecondition) }
func IsInvalidArgumentError(e error) bool    { return isType(e, ErrorTypeInvalidArgument) }
func IsNotFoundError(e error) bool           { return isType(e, ErrorTypeNotFound) }
func IsUnavailableError(e error) bool        { return isType(e, ErrorTypeUnavailable) }
func IsDeadlineExceededError(e error) bool   { return isType(e, ErrorTypeDeadlineExceeded) }
func IsInternalError(e error) bool           { return isType(e, ErrorTypeInternal) }
