package normalize

import (
	"reflect"
	"testing"

	"github.com/eduzmena/eduscan/internal/docschema"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"empty", "", "", false},
		{"whitespace", "   \t", "", false},
		{"trimmed", "  hello  ", "hello", true},
		{"number", float64(5), "5", true},
		{"decimal", 1.5, "1.5", true},
		{"bool true", true, "true", true},
		{"bool false", false, "false", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := String(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("String(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"scalar wraps", "x", []string{"x"}},
		{"empty slice", []any{}, nil},
		{"nil", nil, nil},
		{"blank scalar", "  ", nil},
		{"drops empties keeps order", []any{nil, "", "a"}, []string{"a"}},
		{"preserves duplicates", []any{"a", "a", float64(2)}, []string{"a", "a", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := List(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("List(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"already iso", "2024-03-05", "2024-03-05", true},
		{"dotted", "05.03.2024", "2024-03-05", true},
		{"dotted short year", "05.03.24", "2024-03-05", true},
		{"slashed", "05/03/2024", "2024-03-05", true},
		{"unparseable passes through", "not a date", "not a date", true},
		{"empty", "", "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Date(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValue_Dispatch(t *testing.T) {
	if got := Value("x", docschema.KindList); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("Value list = %v, want [x]", got)
	}
	if got := Value("05.03.2024", docschema.KindDate); got != "2024-03-05" {
		t.Errorf("Value date = %v, want 2024-03-05", got)
	}
	if got := Value("  text ", docschema.KindString); got != "text" {
		t.Errorf("Value string = %v, want text", got)
	}
	// Absence is nil, never an empty value.
	if got := Value([]any{nil, ""}, docschema.KindList); got != nil {
		t.Errorf("Value empty list = %v, want nil", got)
	}
	if got := Value(nil, docschema.KindString); got != nil {
		t.Errorf("Value nil string = %v, want nil", got)
	}
}

func TestEmpty(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, true},
		{"", true},
		{"  ", true},
		{[]any{}, true},
		{map[string]any{}, true},
		{"a", false},
		{float64(0), false},
		{false, false},
		{[]any{"x"}, false},
	}
	for _, tt := range tests {
		if got := Empty(tt.in); got != tt.want {
			t.Errorf("Empty(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
