package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Analysis lifecycle states for a document. A document moves
// pending -> processing -> done | failed, and may be reset back to
// pending from a terminal state.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Document is an uploaded file together with the state and output of its
// analysis. Text columns that are filled in only after analysis are plain
// strings; empty means not yet produced.
type Document struct {
	ID         string
	Filename   string
	SchoolID   *int64
	UploadedAt time.Time

	AnalysisStatus     string
	AnalysisStartedAt  *time.Time
	AnalysisFinishedAt *time.Time
	AnalysisError      string

	ExtractedText string
	BasicStats    string // JSON object stored as text
	LLMResponse   string // raw model output, JSON stored as text
	Summary       string
	AnalysisType  string

	// At most one of the three payload columns is set, matching AnalysisType.
	AttendanceData string // JSON object stored as text
	FeedbackData   string // JSON object stored as text
	RecordData     string // JSON object stored as text
}

type Region struct {
	ID   int64
	Name string
}

type School struct {
	ID       int64
	Name     string
	RegionID int64
}
