package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "ignore file not found")
		if err.Error() != "[NOT_FOUND] ignore file not found" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("permission denied")
		err := Wrap(original, CodeIO, "read ignore file")
		expected := "[IO_ERROR] read ignore file: permission denied"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected Unwrap to expose the original error")
		}
	})

	t.Run("ContextIsSorted", func(t *testing.T) {
		err := New(CodeValidationError, "bad pattern")
		err = AddContext(err, CtxPattern, "[")
		err = AddContext(err, CtxPath, "/p/.gitignore")
		expected := "[VALIDATION_ERROR] bad pattern path=/p/.gitignore pattern=["
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("AddContextWrapsForeignErrors", func(t *testing.T) {
		err := AddContext(errors.New("boom"), CtxOperation, "walk")
		if !IsCode(err, CodeInternal) {
			t.Errorf("expected internal code, got %v", err)
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("scan: %w", New(CodeParse, "unexpected token"))
		if !IsCode(err, CodeParse) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})
}
