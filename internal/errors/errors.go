// Package errors provides unified error handling for the hashing pipeline and its transports.
// Every failure carries a Code that maps onto gRPC status codes, HTTP status codes and
// a google.rpc.ErrorInfo detail, so clients can recover the original code.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is the ErrorInfo domain attached to gRPC errors.
const Domain = "impressionhash"

// Code identifies a class of failure.
type Code int32

const (
	CodeUnspecified Code = iota
	CodeUnknown
	CodeInternal
	CodeInvalidInput
	CodeLengthMismatch
	CodeUnavailableVariant
	CodeImageDecodeFailed
	CodeImageTooLarge
	CodeUnavailable
	CodeTimeout
	CodeCancelled
	CodeConfigInvalid
)

var codeNames = map[Code]string{
	CodeUnspecified:        "CODE_UNSPECIFIED",
	CodeUnknown:            "UNKNOWN",
	CodeInternal:           "INTERNAL",
	CodeInvalidInput:       "INVALID_INPUT",
	CodeLengthMismatch:     "LENGTH_MISMATCH",
	CodeUnavailableVariant: "UNAVAILABLE_VARIANT",
	CodeImageDecodeFailed:  "IMAGE_DECODE_FAILED",
	CodeImageTooLarge:      "IMAGE_TOO_LARGE",
	CodeUnavailable:        "UNAVAILABLE",
	CodeTimeout:            "TIMEOUT",
	CodeCancelled:          "CANCELLED",
	CodeConfigInvalid:      "CONFIG_INVALID",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE(%d)", int32(c))
}

// ParseCode is the inverse of Code.String. Unknown names map to CodeUnknown.
func ParseCode(name string) Code {
	for c, n := range codeNames {
		if n == name {
			return c
		}
	}
	return CodeUnknown
}

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnspecified:        codes.Unknown,
	CodeUnknown:            codes.Unknown,
	CodeInternal:           codes.Internal,
	CodeInvalidInput:       codes.InvalidArgument,
	CodeLengthMismatch:     codes.InvalidArgument,
	CodeUnavailableVariant: codes.FailedPrecondition,
	CodeImageDecodeFailed:  codes.InvalidArgument,
	CodeImageTooLarge:      codes.ResourceExhausted,
	CodeUnavailable:        codes.Unavailable,
	CodeTimeout:            codes.DeadlineExceeded,
	CodeCancelled:          codes.Canceled,
	CodeConfigInvalid:      codes.InvalidArgument,
}

// httpCodeMap maps Code to HTTP status codes.
var httpCodeMap = map[Code]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeLengthMismatch:     http.StatusUnprocessableEntity,
	CodeUnavailableVariant: http.StatusConflict,
	CodeImageDecodeFailed:  http.StatusUnsupportedMediaType,
	CodeImageTooLarge:      http.StatusRequestEntityTooLarge,
	CodeUnavailable:        http.StatusServiceUnavailable,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeCancelled:          499, // client closed request
}

// Sentinel errors for errors.Is checks. Matching is by Code only.
var (
	ErrInvalidInput       = New(CodeInvalidInput, "invalid input")
	ErrLengthMismatch     = New(CodeLengthMismatch, "fingerprint length mismatch")
	ErrUnavailableVariant = New(CodeUnavailableVariant, "variant unavailable")
	ErrImageDecodeFailed  = New(CodeImageDecodeFailed, "image decode failed")
	ErrImageTooLarge      = New(CodeImageTooLarge, "image too large")
)

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// ToProto converts to a google.rpc.ErrorInfo detail.
func (e *AppError) ToProto() *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain}
	if len(e.Metadata) > 0 {
		info.Metadata = e.Metadata
	}
	return info
}

// GRPCStatus returns a gRPC status with the ErrorInfo attached.
// grpc-go calls this when an AppError is returned from a handler.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	if withDetail, err := st.WithDetails(e.ToProto()); err == nil {
		st = withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Annotate returns a copy of err's AppError with key set in its metadata.
// Errors that carry no AppError are returned unchanged.
func Annotate(err error, key, value string) error {
	appErr, ok := As(err)
	if !ok {
		return err
	}
	md := make(map[string]string, len(appErr.Metadata)+1)
	for k, v := range appErr.Metadata {
		md[k] = v
	}
	md[key] = value
	return &AppError{Code: appErr.Code, Message: appErr.Message, Metadata: md, Cause: appErr.Cause}
}

// FromGRPCError extracts AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return &AppError{
				Code:     ParseCode(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
			}
		}
	}

	// Fallback: map gRPC code to our error code
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message()}
}

// grpcToCode maps gRPC codes back to our error codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidInput
	case codes.FailedPrecondition:
		return CodeUnavailableVariant
	case codes.ResourceExhausted:
		return CodeImageTooLarge
	case codes.Unavailable:
		return CodeUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeInternal
	default:
		return CodeUnknown
	}
}

// CodeOf returns the Code carried by err, or CodeUnknown.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknown
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}
