package docschema

import "testing"

func TestSchemaFieldCounts(t *testing.T) {
	if got := len(AttendanceChecklist); got != 15 {
		t.Errorf("AttendanceChecklist has %d fields, want 15", got)
	}
	if got := len(FeedbackForm); got != 19 {
		t.Errorf("FeedbackForm has %d fields, want 19", got)
	}
}

func TestSchemaFieldsUniqueAndKinded(t *testing.T) {
	for name, schema := range map[string]Schema{
		"attendance": AttendanceChecklist,
		"feedback":   FeedbackForm,
	} {
		seen := make(map[string]bool)
		for _, f := range schema {
			if f.Name == "" {
				t.Errorf("%s: empty field name", name)
			}
			if seen[f.Name] {
				t.Errorf("%s: duplicate field %q", name, f.Name)
			}
			seen[f.Name] = true
			switch f.Kind {
			case KindList, KindString, KindDate:
			default:
				t.Errorf("%s: field %q has unknown kind %q", name, f.Name, f.Kind)
			}
		}
	}
}

func TestRecognized(t *testing.T) {
	for _, typ := range []string{TypeAttendanceChecklist, TypeFeedbackForm, TypeRecord} {
		if !Recognized(typ) {
			t.Errorf("Recognized(%q) = false", typ)
		}
	}
	for _, typ := range []string{"", "invoice", "Attendance_Checklist"} {
		if Recognized(typ) {
			t.Errorf("Recognized(%q) = true", typ)
		}
	}
}
