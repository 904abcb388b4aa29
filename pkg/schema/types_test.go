package schema

import (
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantErr  bool
	}{
		{"", "any", false},
		{"any", "any", false},
		{"string", "string", false},
		{"file", "file", false},
		{"int", "int", false},
		{"float", "float", false},
		{"bool", "bool", false},
		{"[int]", "[int]", false},
		{"[[string]]", "[[string]]", false},
		{"[]", "", true},
		{"complex", "", true},
	}

	for _, tt := range tests {
		typ, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && typ.Name() != tt.wantName {
			t.Errorf("ParseType(%q).Name() = %q, want %q", tt.input, typ.Name(), tt.wantName)
		}
	}
}

func TestTypeValidate(t *testing.T) {
	tests := []struct {
		tag     string
		value   any
		wantErr bool
	}{
		{"int", 42, false},
		{"int", float64(42), false},
		{"int", 42.5, true},
		{"int", "42", true},
		{"float", 1, false},
		{"float", "1.0", true},
		{"bool", true, false},
		{"string", "x", false},
		{"file", "/tmp/a.nii", false},
		{"file", 3, true},
		{"any", struct{}{}, false},
		{"[int]", []any{1, 2, 3}, false},
		{"[int]", []any{1, "two"}, true},
		{"[int]", 1, true},
	}

	for _, tt := range tests {
		typ, err := ParseType(tt.tag)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", tt.tag, err)
		}
		err = typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%v) error = %v, wantErr %v", tt.tag, tt.value, err, tt.wantErr)
		}
	}
}

func TestSequenceOf(t *testing.T) {
	if got := SequenceOf("int"); got != "[int]" {
		t.Errorf("SequenceOf(int) = %q", got)
	}
	if got := SequenceOf(""); got != "[any]" {
		t.Errorf("SequenceOf(\"\") = %q", got)
	}
	typ, _ := ParseType("[string]")
	if elem := typ.(*SliceType).Elem().Name(); elem != "string" {
		t.Errorf("Elem() = %q", elem)
	}
}

func TestIsSequence(t *testing.T) {
	if n, ok := IsSequence([]any{1, 2}); !ok || n != 2 {
		t.Errorf("IsSequence([1 2]) = %d, %v", n, ok)
	}
	if _, ok := IsSequence("abc"); ok {
		t.Error("string must not be a sequence")
	}
	if n, ok := IsSequence([]int{}); !ok || n != 0 {
		t.Errorf("IsSequence([]) = %d, %v", n, ok)
	}
}
