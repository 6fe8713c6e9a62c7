package analysis

import (
	"strings"

	"github.com/eduzmena/eduscan/internal/docschema"
)

// maxPromptChars caps the document sample embedded in the prompt. Hard
// truncation, no chunking; the model sees at most this many characters.
const maxPromptChars = 8000

// BuildPrompt assembles the fixed instruction block followed by the source
// text sample delimited by triple quotes. The schema field lists are rendered
// from the registry so prompt and extractor can never drift apart.
func BuildPrompt(text string) string {
	sample := text
	if runes := []rune(sample); len(runes) > maxPromptChars {
		sample = string(runes[:maxPromptChars])
	}

	var b strings.Builder
	b.WriteString(`You are a backend service analyzing educational documents (often Czech school reports).

Your goal is to transform each document into a single, rich JSON object that captures as much machine-readable information as possible for later dashboards and analytics.

Rules:
- Return ONLY ONE JSON OBJECT and nothing else.
- Do not include backticks.
- Do not include explanations before or after the JSON.
- Do not include multiple JSON objects.
- Prefer short, machine-friendly keys in English using snake_case.
- Preserve original Czech text where appropriate.
- Use numbers where applicable.
- If uncertain, either omit the field or add "<field>_uncertain": true.

Required top-level structure:
- The top-level JSON MUST contain:
  - "summary": 2-4 sentence natural-language summary.
  - "data": an object containing all extracted structured information.
  - "data.type": one of:
      - "` + docschema.TypeAttendanceChecklist + `"
      - "` + docschema.TypeFeedbackForm + `"
      - "` + docschema.TypeRecord + `"

All documents:
- "data" MUST include **all core fields**, even if empty or null.

`)

	writeSchemaSection(&b, "ATTENDANCE CHECKLIST SCHEMA",
		"If the document appears to be an attendance checklist (sign-in sheets, lists of participants, presence marks, checkboxes, etc.),",
		docschema.TypeAttendanceChecklist, docschema.AttendanceChecklist)
	b.WriteString(`Example notes:
- A list means: [] if missing
- A string means: "" if missing

`)

	writeSchemaSection(&b, "FEEDBACK FORM SCHEMA",
		"If the document appears to be a feedback form (evaluations, satisfaction surveys, session feedback),",
		docschema.TypeFeedbackForm, docschema.FeedbackForm)

	b.WriteString(`============
GENERIC RECORD SCHEMA
============
If the document does NOT clearly match ` + docschema.TypeAttendanceChecklist + ` or ` + docschema.TypeFeedbackForm + `,
then:
  data.type = "` + docschema.TypeRecord + `"

Add any additional structure relevant for the record (student, school, evaluations, behaviors, recommendations, grades, events, etc.).

Focus on extracting:
- Identifiers (student, school, academic year, class, region)
- Metrics (grades, points, absences, percentages, ratings)
- Temporal info (dates, periods, semesters)
- Categories (type of document, intervention type)
- Teacher/student comments
- Trends, strengths, weaknesses
- Recommendations

Document content (possibly truncated):

"""` + sample + `"""
`)

	return b.String()
}

func writeSchemaSection(b *strings.Builder, title, condition, typeName string, schema docschema.Schema) {
	b.WriteString("============\n")
	b.WriteString(title)
	b.WriteString("\n============\n")
	b.WriteString(condition)
	b.WriteString("\nset:\n  data.type = \"")
	b.WriteString(typeName)
	b.WriteString("\"\n\nThen include every one of these fields exactly with the shown types (empty if missing):\n\n")
	for _, f := range schema {
		b.WriteString("  \"")
		b.WriteString(f.Name)
		b.WriteString("\": ")
		b.WriteString(string(f.Kind))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
