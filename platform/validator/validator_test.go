package validator

import (
	"testing"

	"recruitment_backend/platform/apperr"
)

type sample struct {
	Email  string `validate:"required,email"`
	Name   string `validate:"notblank"`
	Rating *int   `validate:"omitempty,min=1,max=5"`
}

func TestStructReturnsValidationError(t *testing.T) {
	v := New()
	six := 6

	err := v.Struct(sample{Email: "x", Name: "  ", Rating: &six})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	details, ok := err.(*apperr.Error).Details.(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", err.(*apperr.Error).Details)
	}
	for _, field := range []string{"Email", "Name", "Rating"} {
		if _, ok := details[field]; !ok {
			t.Errorf("expected %s in details %v", field, details)
		}
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	v := New()
	three := 3
	if err := v.Struct(sample{Email: "ana@example.cl", Name: "Ana", Rating: &three}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
