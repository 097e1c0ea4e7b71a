package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorString(t *testing.T) {
	err := New(CodeInvalidInput, "empty hex").WithMetadata("field", "first")
	want := "[INVALID_INPUT] empty hex map[field:first]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := fmt.Errorf("unexpected EOF")
	wrapped := Wrap(cause, CodeImageDecodeFailed, "decode png")
	if wrapped.Error() != "[IMAGE_DECODE_FAILED] decode png caused by: unexpected EOF" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !stderrors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(CodeLengthMismatch, "lengths %d and %d differ", 100, 96)

	if !stderrors.Is(err, ErrLengthMismatch) {
		t.Error("errors.Is should match sentinel with the same code")
	}
	if stderrors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is should not match sentinel with a different code")
	}

	outer := fmt.Errorf("similarity: %w", err)
	if !IsCode(outer, CodeLengthMismatch) {
		t.Error("IsCode should see through fmt wrapping")
	}
}

func TestCodeMappings(t *testing.T) {
	tests := []struct {
		code Code
		grpc codes.Code
		http int
	}{
		{CodeInvalidInput, codes.InvalidArgument, http.StatusBadRequest},
		{CodeLengthMismatch, codes.InvalidArgument, http.StatusUnprocessableEntity},
		{CodeUnavailableVariant, codes.FailedPrecondition, http.StatusConflict},
		{CodeImageDecodeFailed, codes.InvalidArgument, http.StatusUnsupportedMediaType},
		{CodeImageTooLarge, codes.ResourceExhausted, http.StatusRequestEntityTooLarge},
		{CodeUnavailable, codes.Unavailable, http.StatusServiceUnavailable},
		{CodeInternal, codes.Internal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := New(tt.code, "x")
			if got := err.GRPCCode(); got != tt.grpc {
				t.Errorf("GRPCCode() = %v, want %v", got, tt.grpc)
			}
			if got := err.HTTPStatus(); got != tt.http {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.http)
			}
		})
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(CodeUnavailableVariant, "larger hash not available").WithMetadata("variant", "larger")

	// status.Convert picks up the GRPCStatus method, as the gRPC server does.
	st := status.Convert(orig)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("status code = %v, want FailedPrecondition", st.Code())
	}

	got := FromGRPCError(st.Err())
	if got.Code != CodeUnavailableVariant {
		t.Errorf("Code = %v, want %v", got.Code, CodeUnavailableVariant)
	}
	if got.Message != "larger hash not available" {
		t.Errorf("Message = %q", got.Message)
	}
	if got.Metadata["variant"] != "larger" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	got := FromGRPCError(status.Error(codes.Unavailable, "connection refused"))
	if got.Code != CodeUnavailable {
		t.Errorf("Code = %v, want %v", got.Code, CodeUnavailable)
	}

	plain := FromGRPCError(fmt.Errorf("boom"))
	if plain.Code != CodeUnknown {
		t.Errorf("Code = %v, want %v", plain.Code, CodeUnknown)
	}

	if FromGRPCError(nil) != nil {
		t.Error("FromGRPCError(nil) should be nil")
	}
}

func TestParseCode(t *testing.T) {
	for c := range codeNames {
		if got := ParseCode(c.String()); got != c {
			t.Errorf("ParseCode(%q) = %v, want %v", c.String(), got, c)
		}
	}
	if got := ParseCode("NOPE"); got != CodeUnknown {
		t.Errorf("ParseCode(NOPE) = %v, want UNKNOWN", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeUnavailable, "down")) {
		t.Error("UNAVAILABLE should be retryable")
	}
	if !IsRetryable(New(CodeTimeout, "slow")) {
		t.Error("TIMEOUT should be retryable")
	}
	if IsRetryable(New(CodeInvalidInput, "bad")) {
		t.Error("INVALID_INPUT should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestAnnotateCopies(t *testing.T) {
	base := New(CodeInvalidInput, "bad hash")
	annotated := Annotate(base, "argument", "first")

	appErr, ok := As(annotated)
	if !ok {
		t.Fatal("Annotate should keep the AppError")
	}
	if appErr.Metadata["argument"] != "first" {
		t.Errorf("Metadata[argument] = %q, want %q", appErr.Metadata["argument"], "first")
	}
	if base.Metadata != nil {
		t.Errorf("base metadata mutated: %v", base.Metadata)
	}
	if !stderrors.Is(annotated, ErrInvalidInput) {
		t.Error("annotated error should still match ErrInvalidInput")
	}

	plain := fmt.Errorf("plain")
	if got := Annotate(plain, "k", "v"); got != plain {
		t.Errorf("Annotate(plain) = %v, want unchanged", got)
	}
}
