// Package docschema declares the recognized structured document types and
// the expected shape of their fields. The registry is static configuration:
// adding a document type means adding a schema here and a branch in the
// analysis extractor, nothing else.
package docschema

// FieldKind describes how a raw field value must be normalized.
type FieldKind string

const (
	// KindList is an ordered collection of short strings.
	KindList FieldKind = "list"
	// KindString is free text.
	KindString FieldKind = "string"
	// KindDate is a calendar date, canonicalized to YYYY-MM-DD when parseable.
	KindDate FieldKind = "date"
)

// Document type labels as they appear in the model's "data.type" field.
const (
	TypeAttendanceChecklist = "attendance_checklist"
	TypeFeedbackForm        = "feedback_form"
	TypeRecord              = "record"
)

// Field is a single (name, kind) declaration within a schema.
type Field struct {
	Name string
	Kind FieldKind
}

// Schema is an ordered list of field declarations for one document type.
type Schema []Field

// AttendanceChecklist describes sign-in sheets: participant lists, presence
// marks, checkboxes.
var AttendanceChecklist = Schema{
	{"school_year", KindList},
	{"date", KindDate},
	{"year", KindList},
	{"month", KindList},
	{"semester", KindList},
	{"intervention", KindList},
	{"intervention_type", KindList},
	{"intervention_detail", KindString},
	{"target_group", KindList},
	{"participant_name", KindString},
	{"organization_school", KindList},
	{"school_grade", KindList},
	{"school_type", KindList},
	{"region", KindList},
	{"feedback", KindString},
}

// FeedbackForm describes evaluations, satisfaction surveys, and session
// feedback. It shares the contextual prefix with AttendanceChecklist and adds
// the rating fields.
var FeedbackForm = Schema{
	{"school_year", KindList},
	{"date", KindDate},
	{"year", KindList},
	{"month", KindList},
	{"semester", KindList},
	{"participant_name", KindString},
	{"organization_school", KindList},
	{"school_grade", KindList},
	{"school_type", KindList},
	{"region", KindList},
	{"intervention", KindList},
	{"intervention_type", KindList},
	{"intervention_detail", KindString},
	{"target_group", KindList},
	{"overall_satisfaction", KindList},
	{"lecturer_performance_and_skills", KindList},
	{"planned_goals", KindList},
	{"gained_professional_development", KindList},
	{"open_feedback", KindString},
}

// Recognized reports whether t is one of the three declared type labels.
func Recognized(t string) bool {
	switch t {
	case TypeAttendanceChecklist, TypeFeedbackForm, TypeRecord:
		return true
	}
	return false
}
