// Package normalize coerces arbitrary JSON values into canonical forms.
//
// Model output is untrusted and inconsistent in type: a "list" field may
// arrive as a bare string, a null, or a true array. Every function here is
// total: it never fails, it either returns a canonical value or reports
// absence, so a single malformed field cannot abort processing of an
// otherwise valid record.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eduzmena/eduscan/internal/docschema"
)

// dateLayouts is the ordered ladder of accepted date formats. First match wins.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"02/01/2006",
	"02/01/06",
}

// String coerces v to a trimmed string. The second return value is false when
// v is null or normalizes to empty. Numbers stringify without a trailing
// ".0"; booleans become "true"/"false".
func String(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", t))
		return s, s != ""
	}
}

// List coerces v to a slice of normalized strings, preserving order and
// duplicates and dropping elements that normalize to empty. Scalars wrap into
// a one-element slice. Returns nil when nothing remains.
func List(v any) []string {
	if seq, ok := v.([]any); ok {
		var out []string
		for _, item := range seq {
			if s, ok := String(item); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := String(v); ok {
		return []string{s}
	}
	return nil
}

// Date normalizes v to an ISO-8601 date string when it matches one of the
// known layouts. Unparseable values pass through as the trimmed string,
// dates are never discarded. The second return value is false only when v
// normalizes to empty.
func Date(v any) (string, bool) {
	s, ok := String(v)
	if !ok {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return s, true
}

// Value dispatches on the declared field kind. The returned value is a
// []string for lists and a string otherwise; nil means absent.
func Value(v any, kind docschema.FieldKind) any {
	switch kind {
	case docschema.KindList:
		if l := List(v); l != nil {
			return l
		}
		return nil
	case docschema.KindDate:
		if s, ok := Date(v); ok {
			return s
		}
		return nil
	default:
		if s, ok := String(v); ok {
			return s
		}
		return nil
	}
}

// Empty reports whether v carries no usable content: null, blank string, or
// an empty sequence or mapping. Non-empty scalars of any type are kept.
func Empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
