package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		err  *Error
		want string
	}{
		{New(ErrCodePageNotFound, "page %q not found", "about"), `PAGE_NOT_FOUND: page "about" not found`},
		{Wrap(ErrCodeNetwork, cause, "save tenant %s", "acme"), "NETWORK_ERROR: save tenant acme: connection refused"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeStorage, cause, "write tenant file")
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
}

func TestCodes(t *testing.T) {
	notFound := New(ErrCodeTenantNotFound, "tenant not found")
	wrapped := fmt.Errorf("load acme: %w", notFound)
	nested := Wrap(ErrCodeNetwork, notFound, "retry gave up")

	tests := []struct {
		name     string
		err      error
		code     Code
		is       bool
		notFound bool
		invalid  bool
		message  string
	}{
		{"direct", notFound, ErrCodeTenantNotFound, true, true, false, "tenant not found"},
		{"fmt wrapped", wrapped, ErrCodeTenantNotFound, true, true, false, "tenant not found"},
		{"nested outer", nested, ErrCodeNetwork, true, false, false, "retry gave up"},
		{"nested inner", nested, ErrCodeTenantNotFound, true, false, false, "retry gave up"},
		{"invalid", New(ErrCodeInvalidSlug, "bad slug"), ErrCodeInvalidSlug, true, false, true, "bad slug"},
		{"other code", New(ErrCodeInternal, "boom"), ErrCodeStorage, false, false, false, "boom"},
		{"plain", errors.New("plain"), ErrCodeInternal, false, false, false, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.is {
				t.Errorf("Is(%s) = %v, want %v", tt.code, got, tt.is)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.notFound)
			}
			if got := IsInvalid(tt.err); got != tt.invalid {
				t.Errorf("IsInvalid = %v, want %v", got, tt.invalid)
			}
			if got := UserMessage(tt.err); got != tt.message {
				t.Errorf("UserMessage = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q", got)
	}
	if got := GetCode(errors.New("x")); got != "" {
		t.Errorf("GetCode(plain) = %q", got)
	}
	err := Wrap(ErrCodeTimeout, New(ErrCodeNetwork, "dial"), "load")
	if got := GetCode(err); got != ErrCodeTimeout {
		t.Errorf("GetCode = %q, want outermost TIMEOUT", got)
	}
}
