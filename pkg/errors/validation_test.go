package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFieldErrorsErr(t *testing.T) {
	var fe FieldErrors
	if err := fe.Err("graph"); err != nil {
		t.Fatalf("empty FieldErrors.Err() = %v, want nil", err)
	}

	fe.Add("id", "is required")
	fe.Add("edges[0].sources", "must list at least %d id", 1)

	err := fe.Err("graph")
	if err == nil {
		t.Fatal("Err() = nil, want error")
	}
	if !Is(err, ErrCodeValidation) {
		t.Errorf("code = %v, want %v", GetCode(err), ErrCodeValidation)
	}

	want := "VALIDATION_FAILED: invalid graph: 2 offending fields: id: is required; edges[0].sources: must list at least 1 id"
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant      %q", err.Error(), want)
	}
}

func TestFieldErrorsSingular(t *testing.T) {
	fe := FieldErrors{{Path: "id", Message: "is required"}}
	if got := UserMessage(fe.Err("graph")); got != "invalid graph: 1 offending field" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestValidationFields(t *testing.T) {
	fe := FieldErrors{{Path: "children[1].width", Message: "must be >= 0"}}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"direct", fe.Err("graph"), 1},
		{"wrapped in fmt", fmt.Errorf("compute: %w", fe.Err("graph")), 1},
		{"wrapped in Error", Wrap(ErrCodeInvalidInput, fe.Err("graph"), "request"), 1},
		{"plain", errors.New("nope"), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidationFields(tt.err); len(got) != tt.want {
				t.Errorf("len(ValidationFields()) = %d, want %d", len(got), tt.want)
			}
		})
	}
}
