package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError(ErrorCodeBadRequest, "test error")
	if err.Error() != "test error" {
		t.Errorf("expected 'test error', got %s", err.Error())
	}

	wrapped := WrapAPIError(ErrorCodeNotFound, "wrapped", errors.New("original"))
	if wrapped.Error() == "" {
		t.Error("wrapped error should have message")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	original := errors.New("original error")
	wrapped := WrapAPIError(ErrorCodeBadRequest, "wrapped", original)

	unwrapped := wrapped.Unwrap()
	if unwrapped != original {
		t.Errorf("expected unwrapped error to be original, got %v", unwrapped)
	}
}

func TestAPIError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrorCodeBadRequest, http.StatusBadRequest},
		{ErrorCodeValidationFailed, http.StatusBadRequest},
		{ErrorCodeUnauthorized, http.StatusUnauthorized},
		{ErrorCodeForbidden, http.StatusForbidden},
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrorCodeInternalServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := NewAPIError(tt.code, "x").HTTPStatus(); got != tt.status {
			t.Errorf("code %s: expected status %d, got %d", tt.code, tt.status, got)
		}
	}
}

func TestAsAPIError(t *testing.T) {
	apiErr := NewAPIError(ErrorCodeBadRequest, "test")
	wrapped := WrapAPIError(ErrorCodeNotFound, "wrapped", apiErr)

	extracted, ok := AsAPIError(wrapped)
	if !ok {
		t.Error("expected AsAPIError to extract APIError from wrapped error")
	}

	if extracted.Code != ErrorCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrorCodeNotFound, extracted.Code)
	}

	if _, ok := AsAPIError(errors.New("plain")); ok {
		t.Error("plain errors must not extract as APIError")
	}
}

func TestBadRequest(t *testing.T) {
	err := BadRequest("test message")
	if err.Code != ErrorCodeBadRequest {
		t.Errorf("expected code %s, got %s", ErrorCodeBadRequest, err.Code)
	}
	if err.Message != "test message" {
		t.Errorf("expected message 'test message', got %s", err.Message)
	}
}
