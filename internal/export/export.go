// Package export produces XLSX workbooks summarizing analyzed documents.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eduzmena/eduscan/internal/docschema"
	"github.com/eduzmena/eduscan/internal/storage"
)

// DocumentLister is the storage-side dependency of Service.
type DocumentLister interface {
	ListDocuments(f storage.DocumentFilter) ([]storage.Document, error)
	GetSchool(id int64) (storage.School, error)
}

// Service produces XLSX bytes for document exports.
type Service struct {
	store  DocumentLister
	logger *slog.Logger
}

func NewService(store DocumentLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

const sheet = "Documents"

var headers = []string{
	"Uploaded",
	"Filename",
	"School",
	"Status",
	"Document Type",
	"Summary",
	"Details",
	"Error",
}

// ExportDocumentsXLSX returns an XLSX workbook for documents matching the
// filter. Limit and offset on the filter are ignored; exports are whole.
func (s *Service) ExportDocumentsXLSX(f storage.DocumentFilter) ([]byte, error) {
	start := time.Now()
	f.Limit = 0
	f.Offset = 0

	docs, err := s.store.ListDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	// A new workbook starts with one sheet named "Sheet1"; renaming it keeps
	// the workbook single-sheet.
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	activeIndex, _ := wb.GetSheetIndex(sheet)
	wb.SetActiveSheet(activeIndex)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(sheet, cell, h)
	}

	// School names repeat heavily; resolve each ID once.
	schoolNames := make(map[int64]string)

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = wb.SetCellValue(sheet, cell, v)
		}

		write(1, d.UploadedAt.Format("2006-01-02 15:04"))
		write(2, d.Filename)
		write(3, s.schoolName(d.SchoolID, schoolNames))
		write(4, d.AnalysisStatus)
		write(5, d.AnalysisType)
		write(6, truncate(d.Summary, 500))
		write(7, flattenPayload(d))
		write(8, d.AnalysisError)

		row++
	}

	_ = wb.SetColWidth(sheet, "A", "A", 18) // uploaded
	_ = wb.SetColWidth(sheet, "B", "B", 32) // filename
	_ = wb.SetColWidth(sheet, "C", "C", 24) // school
	_ = wb.SetColWidth(sheet, "D", "E", 16) // status, type
	_ = wb.SetColWidth(sheet, "F", "G", 64) // summary, details
	_ = wb.SetColWidth(sheet, "H", "H", 40) // error

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) schoolName(id *int64, cache map[int64]string) string {
	if id == nil {
		return ""
	}
	if name, ok := cache[*id]; ok {
		return name
	}
	name := ""
	if school, err := s.store.GetSchool(*id); err == nil {
		name = school.Name
	}
	cache[*id] = name
	return name
}

// flattenPayload renders the document's structured payload as "key: value"
// pairs on one line, so the workbook carries the extracted fields without a
// column per schema field. Keys are sorted; empty and null values are skipped.
func flattenPayload(d storage.Document) string {
	var raw string
	switch d.AnalysisType {
	case docschema.TypeAttendanceChecklist:
		raw = d.AttendanceData
	case docschema.TypeFeedbackForm:
		raw = d.FeedbackData
	case docschema.TypeRecord:
		raw = d.RecordData
	}
	if raw == "" {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
