package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := New(ModuleNotFound)
	if err.Error() != "Module not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Code != ModuleNotFound {
		t.Errorf("Code = %d", err.Code)
	}
	if err.Stack == "" {
		t.Error("stack not captured")
	}
}

func TestNewfAndWithMessage(t *testing.T) {
	err := Newf(PolicyViolation, "import of %q is not allowed", "os")
	if err.Error() != `import of "os" is not allowed` {
		t.Errorf("Error() = %q", err.Error())
	}

	err = New(SandboxError).WithMessage("interpreter missing")
	if err.Error() != "interpreter missing" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("read /tmp/x: no such file")
	err := Wrap(cause, ContentLoadFailed)
	if err.Code != ContentLoadFailed {
		t.Errorf("Code = %d", err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause lost from chain")
	}
	if Wrap(nil, ContentLoadFailed) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestWrapRecodesExistingError(t *testing.T) {
	inner := New(ExecutionError)
	outer := Wrap(inner, SandboxError)
	if outer != inner {
		t.Error("wrapping our own error should update in place")
	}
	if outer.Code != SandboxError {
		t.Errorf("Code = %d, want SandboxError", outer.Code)
	}
}

func TestWithDetail(t *testing.T) {
	err := New(PolicyViolation).
		WithDetail("module", "os").
		WithDetail("construct", "import")
	if err.Details["module"] != "os" || err.Details["construct"] != "import" {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestIs(t *testing.T) {
	err := New(TimeoutExceeded)
	if !Is(err, TimeoutExceeded) {
		t.Error("Is should match own code")
	}
	if Is(err, ExecutionError) {
		t.Error("Is matched wrong code")
	}
	if Is(nil, TimeoutExceeded) {
		t.Error("Is(nil) should be false")
	}
	if Is(fmt.Errorf("plain"), TimeoutExceeded) {
		t.Error("Is on foreign error should be false")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != Success {
		t.Errorf("GetCode(nil) = %d", got)
	}
	if got := GetCode(New(SyntaxInvalid)); got != SyntaxInvalid {
		t.Errorf("GetCode = %d", got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != InternalServerError {
		t.Errorf("GetCode(plain) = %d", got)
	}
}

func TestGetError(t *testing.T) {
	if GetError(nil) != nil {
		t.Error("GetError(nil) should be nil")
	}
	own := New(CacheError)
	if GetError(own) != own {
		t.Error("GetError should pass our error through")
	}
	wrapped := GetError(fmt.Errorf("plain"))
	if wrapped.Code != InternalServerError {
		t.Errorf("foreign error code = %d", wrapped.Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{Success, 200},
		{NotFound, 404},
		{ModuleNotFound, 404},
		{WorkshopNotFound, 404},
		{ApproachNotFound, 404},
		{TooManyRequests, 429},
		{ServiceUnavailable, 503},
		{SyntaxInvalid, 422},
		{PolicyViolation, 422},
		{ExecutionError, 422},
		{TimeoutExceeded, 422},
		{ContractViolation, 500},
		{SandboxError, 500},
		{ValidationFailed, 400},
		{RequiredFieldEmpty, 400},
		{InvalidParams, 400},
		{ApproachRequired, 400},
		{SubmissionTooLarge, 400},
		{InternalServerError, 500},
		{ErrorCode(99999), 500},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if msg := ErrorCode(99999).Message(); msg != "Unknown error" {
		t.Errorf("Message = %q", msg)
	}
}
