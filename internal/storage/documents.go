package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eduzmena/eduscan/internal/analysis"
	"github.com/eduzmena/eduscan/internal/docschema"
)

// maxErrorLen caps the stored analysis error message, in runes. Model and
// extraction failures can carry whole response bodies; the column keeps
// only the head.
const maxErrorLen = 512

const documentColumns = `id, filename, school_id, uploaded_at,
	analysis_status, analysis_started_at, analysis_finished_at, analysis_error,
	extracted_text, basic_stats, llm_response, llm_summary, analysis_type,
	attendance_data, feedback_data, record_data`

// CreateDocument inserts a new document in the pending state.
func (s *Store) CreateDocument(d Document) error {
	status := d.AnalysisStatus
	if status == "" {
		status = StatusPending
	}
	var schoolID any
	if d.SchoolID != nil {
		schoolID = *d.SchoolID
	}
	_, err := s.db.Exec(`
		INSERT INTO documents (id, filename, school_id, uploaded_at, analysis_status, extracted_text)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Filename, schoolID, d.UploadedAt.UTC().Format(time.RFC3339), status, nullIfEmpty(d.ExtractedText),
	)
	return err
}

// GetDocument returns the document with the given ID.
func (s *Store) GetDocument(id string) (Document, error) {
	row := s.db.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	return d, err
}

// DocumentFilter narrows ListDocuments. Zero values mean no filtering on
// that dimension.
type DocumentFilter struct {
	Status   string
	SchoolID *int64
	Limit    int
	Offset   int
}

// ListDocuments returns documents newest-first, optionally filtered by
// analysis status and school.
func (s *Store) ListDocuments(f DocumentFilter) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "analysis_status = ?")
		args = append(args, f.Status)
	}
	if f.SchoolID != nil {
		conds = append(conds, "school_id = ?")
		args = append(args, *f.SchoolID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY uploaded_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// PendingDocuments returns up to limit documents awaiting analysis, oldest
// upload first.
func (s *Store) PendingDocuments(limit int) ([]Document, error) {
	rows, err := s.db.Query(`SELECT `+documentColumns+` FROM documents
		WHERE analysis_status = ? ORDER BY uploaded_at ASC, id ASC LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// ClaimDocument moves a pending document to processing. Returns ErrNotFound
// if the document does not exist or is no longer pending, so concurrent
// workers cannot pick up the same document twice.
func (s *Store) ClaimDocument(id string, startedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE documents
		SET analysis_status = ?, analysis_started_at = ?, analysis_error = NULL
		WHERE id = ? AND analysis_status = ?`,
		StatusProcessing, startedAt.UTC().Format(time.RFC3339), id, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAnalysis records a finished analysis: extracted text, stats, raw
// model output, and the classified result. Exactly one payload column is
// written, matching the result variant.
func (s *Store) CompleteAnalysis(id string, rep analysis.Report, finishedAt time.Time) error {
	stats, err := json.Marshal(rep.Stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	var attendance, feedback, record any
	switch {
	case rep.Result.Attendance != nil:
		b, err := json.Marshal(rep.Result.Attendance)
		if err != nil {
			return fmt.Errorf("marshaling attendance data: %w", err)
		}
		attendance = string(b)
	case rep.Result.Feedback != nil:
		b, err := json.Marshal(rep.Result.Feedback)
		if err != nil {
			return fmt.Errorf("marshaling feedback data: %w", err)
		}
		feedback = string(b)
	case rep.Result.Record != nil:
		b, err := json.Marshal(rep.Result.Record)
		if err != nil {
			return fmt.Errorf("marshaling record data: %w", err)
		}
		record = string(b)
	}

	res, err := s.db.Exec(`UPDATE documents SET
		analysis_status = ?, analysis_finished_at = ?, analysis_error = NULL,
		extracted_text = ?, basic_stats = ?, llm_response = ?, llm_summary = ?,
		analysis_type = ?, attendance_data = ?, feedback_data = ?, record_data = ?
		WHERE id = ?`,
		StatusDone, finishedAt.UTC().Format(time.RFC3339),
		rep.Text, string(stats), string(rep.RawResponse), nullIfEmpty(rep.Result.Summary),
		nullIfEmpty(rep.Result.Type), attendance, feedback, record, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailAnalysis marks a document failed with a truncated error message.
// Extracted text and any previous summary are left in place.
func (s *Store) FailAnalysis(id, errMsg string, finishedAt time.Time) error {
	if r := []rune(errMsg); len(r) > maxErrorLen {
		errMsg = string(r[:maxErrorLen])
	}
	res, err := s.db.Exec(`UPDATE documents
		SET analysis_status = ?, analysis_finished_at = ?, analysis_error = ?
		WHERE id = ?`,
		StatusFailed, finishedAt.UTC().Format(time.RFC3339), errMsg, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetDocument returns a done or failed document to pending so the worker
// analyzes it again. Extracted text and the previous summary survive the
// reset; the error and timestamps are cleared. Resetting a pending or
// processing document returns ErrNotFound.
func (s *Store) ResetDocument(id string) error {
	res, err := s.db.Exec(`UPDATE documents
		SET analysis_status = ?, analysis_started_at = NULL, analysis_finished_at = NULL, analysis_error = NULL
		WHERE id = ? AND analysis_status IN (?, ?)`,
		StatusPending, id, StatusDone, StatusFailed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes the document and its vector chunks.
func (s *Store) DeleteDocument(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM document_vectors WHERE document_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// CountDocumentsByStatus returns how many documents sit in each analysis state.
func (s *Store) CountDocumentsByStatus() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT analysis_status, COUNT(*) FROM documents GROUP BY analysis_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DocumentResult unmarshals the stored payload of an analyzed document back
// into the in-memory result form.
func DocumentResult(d Document) (analysis.Result, error) {
	r := analysis.Result{Summary: d.Summary, Type: d.AnalysisType}
	unmarshal := func(src string, dst *map[string]any) error {
		if src == "" {
			return nil
		}
		return json.Unmarshal([]byte(src), dst)
	}
	if err := unmarshal(d.AttendanceData, &r.Attendance); err != nil {
		return analysis.Result{}, fmt.Errorf("parsing attendance data: %w", err)
	}
	if err := unmarshal(d.FeedbackData, &r.Feedback); err != nil {
		return analysis.Result{}, fmt.Errorf("parsing feedback data: %w", err)
	}
	if err := unmarshal(d.RecordData, &r.Record); err != nil {
		return analysis.Result{}, fmt.Errorf("parsing record data: %w", err)
	}
	if r.Type == "" && r.Record != nil {
		r.Type = docschema.TypeRecord
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var uploadedAt string
	var schoolID sql.NullInt64
	var startedAt, finishedAt, analysisErr sql.NullString
	var text, stats, response, summary, typ sql.NullString
	var attendance, feedback, record sql.NullString

	err := row.Scan(&d.ID, &d.Filename, &schoolID, &uploadedAt,
		&d.AnalysisStatus, &startedAt, &finishedAt, &analysisErr,
		&text, &stats, &response, &summary, &typ,
		&attendance, &feedback, &record)
	if err != nil {
		return Document{}, err
	}

	if d.UploadedAt, err = time.Parse(time.RFC3339, uploadedAt); err != nil {
		return Document{}, fmt.Errorf("parsing uploaded_at: %w", err)
	}
	if schoolID.Valid {
		d.SchoolID = &schoolID.Int64
	}
	if d.AnalysisStartedAt, err = parseNullTime(startedAt); err != nil {
		return Document{}, fmt.Errorf("parsing analysis_started_at: %w", err)
	}
	if d.AnalysisFinishedAt, err = parseNullTime(finishedAt); err != nil {
		return Document{}, fmt.Errorf("parsing analysis_finished_at: %w", err)
	}
	d.AnalysisError = analysisErr.String
	d.ExtractedText = text.String
	d.BasicStats = stats.String
	d.LLMResponse = response.String
	d.Summary = summary.String
	d.AnalysisType = typ.String
	d.AttendanceData = attendance.String
	d.FeedbackData = feedback.String
	d.RecordData = record.String
	return d, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
