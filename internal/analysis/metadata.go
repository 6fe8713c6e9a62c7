// Package analysis turns raw model output into normalized document metadata
// and orchestrates the per-document analysis run.
package analysis

import (
	"strings"

	"github.com/eduzmena/eduscan/internal/docschema"
	"github.com/eduzmena/eduscan/internal/normalize"
)

// Result is the classification outcome for one model response. Type is empty
// when classification was ambiguous and nothing could be salvaged; otherwise
// exactly one of the three payloads may be populated, matching Type. The
// persistence layer maps this variant onto storage columns.
type Result struct {
	Summary    string
	Type       string
	Attendance map[string]any
	Feedback   map[string]any
	Record     map[string]any
}

// Classify produces a Result from the raw parsed model JSON. It is pure and
// total: any input shape yields a well-defined Result, and applying it twice
// to the same input yields the same outcome.
func Classify(raw any) Result {
	var res Result

	obj, ok := raw.(map[string]any)
	if !ok {
		return res
	}

	if s, ok := obj["summary"].(string); ok {
		res.Summary = strings.TrimSpace(s)
	}

	data, ok := obj["data"].(map[string]any)
	if !ok {
		return res
	}

	// The declared type counts only as the exact literal; anything else is
	// unrecognized here, not defaulted.
	declared := ""
	if t, ok := data["type"].(string); ok && docschema.Recognized(t) {
		declared = t
	}

	switch declared {
	case docschema.TypeAttendanceChecklist:
		res.Attendance = extractFields(data, docschema.AttendanceChecklist)
		res.Type = declared
	case docschema.TypeFeedbackForm:
		res.Feedback = extractFields(data, docschema.FeedbackForm)
		res.Type = declared
	default:
		payload := recordPayload(data)
		switch {
		case payload != nil:
			res.Record = payload
			if declared != "" {
				res.Type = declared
			} else {
				res.Type = docschema.TypeRecord
			}
		case declared != "":
			// Declared "record" with nothing usable: keep the label, leave
			// the payload empty.
			res.Type = declared
		}
	}

	return res
}

// extractFields normalizes the declared schema fields present in data.
// Fields absent from data are skipped entirely, no null placeholders.
// Returns nil when nothing usable was extracted.
func extractFields(data map[string]any, schema docschema.Schema) map[string]any {
	payload := make(map[string]any)
	for _, f := range schema {
		v, present := data[f.Name]
		if !present {
			continue
		}
		if n := normalize.Value(v, f.Kind); n != nil {
			payload[f.Name] = n
		}
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}

// recordPayload copies every key of data except the reserved "type" key,
// skipping empty values. The open-ended generic schema keeps values verbatim,
// nested structure included. Returns nil when nothing remains.
func recordPayload(data map[string]any) map[string]any {
	payload := make(map[string]any)
	for k, v := range data {
		if k == "type" {
			continue
		}
		if normalize.Empty(v) {
			continue
		}
		payload[k] = v
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
