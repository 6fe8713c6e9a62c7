package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eduzmena/eduscan/internal/storage"
)

type mockLister struct {
	docs    []storage.Document
	listErr error
	schools map[int64]storage.School
	lookups int
}

func (m *mockLister) ListDocuments(storage.DocumentFilter) ([]storage.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.docs, nil
}

func (m *mockLister) GetSchool(id int64) (storage.School, error) {
	m.lookups++
	s, ok := m.schools[id]
	if !ok {
		return storage.School{}, storage.ErrNotFound
	}
	return s, nil
}

func TestExportDocumentsXLSX(t *testing.T) {
	schoolID := int64(7)
	lister := &mockLister{
		docs: []storage.Document{
			{
				ID:             "doc-1",
				Filename:       "dochazka.pdf",
				SchoolID:       &schoolID,
				UploadedAt:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
				AnalysisStatus: storage.StatusDone,
				AnalysisType:   "attendance_checklist",
				Summary:        "Prezenční listina z exkurze.",
				AttendanceData: `{"school": "ZŠ Vinohrady", "children_count": 12, "date": "2025-05-28", "teacher": ""}`,
			},
			{
				ID:             "doc-2",
				Filename:       "rozbity.docx",
				SchoolID:       &schoolID,
				UploadedAt:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				AnalysisStatus: storage.StatusFailed,
				AnalysisError:  "model unreachable",
			},
		},
		schools: map[int64]storage.School{7: {ID: 7, Name: "ZŠ Vinohrady", RegionID: 1}},
	}

	svc := NewService(lister, nil)
	data, err := svc.ExportDocumentsXLSX(storage.DocumentFilter{})
	if err != nil {
		t.Fatalf("ExportDocumentsXLSX: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer wb.Close()

	if got := wb.GetSheetList(); len(got) != 1 || got[0] != sheet {
		t.Errorf("sheets = %v, want just %q", got, sheet)
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Uploaded" || rows[0][5] != "Summary" || rows[0][6] != "Details" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "dochazka.pdf" || rows[1][2] != "ZŠ Vinohrady" || rows[1][4] != "attendance_checklist" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[1][6] != "children_count: 12; date: 2025-05-28; school: ZŠ Vinohrady" {
		t.Errorf("details = %q", rows[1][6])
	}
	if rows[2][3] != storage.StatusFailed || rows[2][7] != "model unreachable" {
		t.Errorf("row 2 = %v", rows[2])
	}

	// Both documents share a school; one lookup is enough.
	if lister.lookups != 1 {
		t.Errorf("school lookups = %d, want 1", lister.lookups)
	}
}

func TestExportDocumentsXLSX_Empty(t *testing.T) {
	svc := NewService(&mockLister{}, nil)
	data, err := svc.ExportDocumentsXLSX(storage.DocumentFilter{})
	if err != nil {
		t.Fatalf("ExportDocumentsXLSX: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(sheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestFlattenPayload(t *testing.T) {
	d := storage.Document{
		AnalysisType: "record",
		RecordData:   `{"student": "Jan Novák", "grade": 3, "note": null, "club": ""}`,
	}
	if got := flattenPayload(d); got != "grade: 3; student: Jan Novák" {
		t.Errorf("got %q", got)
	}

	if got := flattenPayload(storage.Document{AnalysisType: "record"}); got != "" {
		t.Errorf("empty payload: got %q", got)
	}
	// Payload column not matching the analysis type is ignored.
	if got := flattenPayload(storage.Document{RecordData: `{"a": 1}`}); got != "" {
		t.Errorf("typeless document: got %q", got)
	}
	if got := flattenPayload(storage.Document{AnalysisType: "record", RecordData: "not json"}); got != "" {
		t.Errorf("malformed payload: got %q", got)
	}
}

func TestExportDocumentsXLSX_ListError(t *testing.T) {
	wantErr := errors.New("db closed")
	svc := NewService(&mockLister{listErr: wantErr}, nil)
	if _, err := svc.ExportDocumentsXLSX(storage.DocumentFilter{}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want list error", err)
	}
}
