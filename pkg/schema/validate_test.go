package schema

import (
	"reflect"
	"testing"

	"github.com/aretw0/pipegraph/pkg/domain"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"3", 3},
		{"2.5", 2.5},
		{"[1, 2, 3]", []any{1, 2, 3}},
		{"[]", []any{}},
		{"'a'", "a"},
		{"/tmp/out.nii", "/tmp/out.nii"},
		{"None", nil},
		{"null", nil},
		{"true", true},
	}

	for _, tt := range tests {
		got, err := ParseValue(tt.raw)
		if err != nil {
			t.Errorf("ParseValue(%q): %v", tt.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseValue("[1, 2"); err == nil {
		t.Error("expected error for unterminated sequence")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, "None"},
		{3, "3"},
		{[]any{1, 2, 3}, "[1, 2, 3]"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		got, err := FormatValue(tt.value)
		if err != nil {
			t.Errorf("FormatValue(%v): %v", tt.value, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestValidateOverrides(t *testing.T) {
	s, err := FromParams([]domain.ParamSpec{
		{Name: "n", Type: "int"},
		{Name: "xs", Type: "[float]"},
		{Name: "label"},
	})
	if err != nil {
		t.Fatalf("FromParams: %v", err)
	}

	values, err := ValidateOverrides(s, []domain.Override{
		{Name: "n", Raw: "4"},
		{Name: "xs", Raw: "[1.5, 2]"},
		{Name: "label", Raw: "None"},
	})
	if err != nil {
		t.Fatalf("ValidateOverrides: %v", err)
	}
	if values["n"] != 4 {
		t.Errorf("n = %v", values["n"])
	}
	if v, ok := values["label"]; !ok || v != nil {
		t.Errorf("label = %v, %v", v, ok)
	}

	_, err = ValidateOverrides(s, []domain.Override{
		{Name: "n", Raw: "'four'"},
		{Name: "missing", Raw: "1"},
	})
	if errs := ValidationErrors(err); len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %v", err)
	}
}

func TestFromParamsRejectsUnknownType(t *testing.T) {
	_, err := FromParams([]domain.ParamSpec{{Name: "x", Type: "matrix"}})
	if err == nil {
		t.Fatal("expected error")
	}
}
