package errorx

import "net/http"

// ErrorType follows the gRPC status codes:
// https://grpc.github.io/grpc/core/md_doc_statuscodes.html
type ErrorType string

const (
	// ErrorTypeUnspecified is never set on a CliniaError. IsCliniaError uses it
	// to tell a zero value apart.
	ErrorTypeUnspecified        = ErrorType("")
	ErrorTypeAlreadyExists      = ErrorType("ALREADY_EXISTS")
	ErrorTypeFailedPrecondition = ErrorType("FAILED_PRECONDITION")
	ErrorTypeInternal           = ErrorType("INTERNAL")
	ErrorTypeInvalidArgument    = ErrorType("INVALID_ARGUMENT")
	ErrorTypeNotFound           = ErrorType("NOT_FOUND")
	ErrorTypeOutOfRange         = ErrorType("OUT_OF_RANGE")
	ErrorTypeUnimplemented      = ErrorType("UNIMPLEMENTED")
	ErrorTypeUnauthenticated    = ErrorType("UNAUTHENTICATED")
	ErrorTypePermissionDenied   = ErrorType("PERMISSION_DENIED")
	ErrorTypeUnavailable        = ErrorType("UNAVAILABLE")
	ErrorTypeDeadlineExceeded   = ErrorType("DEADLINE_EXCEEDED")
)

var httpStatuses = map[ErrorType]int{
	ErrorTypeAlreadyExists:      http.StatusConflict,
	ErrorTypeFailedPrecondition: http.StatusForbidden,
	ErrorTypeInternal:           http.StatusInternalServerError,
	ErrorTypeInvalidArgument:    http.StatusBadRequest,
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeOutOfRange:         http.StatusBadRequest,
	ErrorTypeUnimplemented:      http.StatusNotImplemented,
	ErrorTypeUnauthenticated:    http.StatusUnauthorized,
	ErrorTypePermissionDenied:   http.StatusForbidden,
	ErrorTypeUnavailable:        http.StatusServiceUnavailable,
	ErrorTypeDeadlineExceeded:   http.StatusGatewayTimeout,
}

func ParseErrorType(s string) (ErrorType, error) {
	e := ErrorType(s)
	if err := e.Validate(); err != nil {
		return ErrorTypeUnspecified, err
	}
	return e, nil
}

func (e ErrorType) String() string {
	return string(e)
}

func (e ErrorType) Validate() error {
	if _, ok := httpStatuses[e]; !ok {
		return InvalidArgumentErrorf("invalid error type: %s", e)
	}
	return nil
}

// HTTPStatus is the status an HTTP handler answers with for this type.
func (e ErrorType) HTTPStatus() int {
	if s, ok := httpStatuses[e]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// HTTPStatus returns the status matching err's type, 500 when err is not a
// CliniaError.
func HTTPStatus(err error) int {
	ce, ok := IsCliniaError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	return ce.Type.HTTPStatus()
}
