package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/metrics"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories/memory"
	"github.com/staff-academy/course-platform/internal/validator"
)

func TestReportService_ExportProgress(t *testing.T) {
	store := memory.NewStore()
	cat := newTestCatalog(t)
	ctx := context.Background()
	user := Identity{UserID: "u-1"}

	progress := NewProgressService(store, cat, nil, metrics.New(), newTestLogger(), validator.New())
	for _, v := range []models.WatchVideo{{CourseID: 1, VideoID: 1}, {CourseID: 1, VideoID: 3}, {CourseID: 2, VideoID: 5}} {
		v := v
		if _, err := progress.RecordWatched(ctx, user, &v); err != nil {
			t.Fatalf("RecordWatched() error = %v", err)
		}
	}

	var buf bytes.Buffer
	svc := NewReportService(store, cat, newTestLogger())
	if err := svc.ExportProgress(ctx, user, &buf); err != nil {
		t.Fatalf("ExportProgress() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	want := []string{"Summary", "1 Basics", "2 Advanced"}
	sheets := f.GetSheetList()
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet %d = %q, want %q", i, sheets[i], want[i])
		}
	}

	cells := map[string]string{
		"A2": "Basics",
		"B2": "2",
		"C2": "4",
		"A3": "Advanced",
		"B3": "1",
		"C3": "1",
	}
	for cell, wantValue := range cells {
		got, err := f.GetCellValue("Summary", cell)
		if err != nil || got != wantValue {
			t.Errorf("Summary!%s = %q, %v; want %q", cell, got, err, wantValue)
		}
	}
	// three watched videos: level 2, next level at 5
	for cell, wantValue := range map[string]string{"A5": "Level", "B5": "2", "D5": "3", "B6": "5"} {
		if got, _ := f.GetCellValue("Summary", cell); got != wantValue {
			t.Errorf("Summary!%s = %q, want %q", cell, got, wantValue)
		}
	}
	if got, _ := f.GetCellValue("Summary", "E2"); got != "" {
		t.Errorf("unfinished course has completion time %q", got)
	}
	if got, _ := f.GetCellValue("Summary", "E3"); got == "" {
		t.Error("finished course is missing its completion time")
	}

	rows, err := f.GetRows("1 Basics")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("course sheet rows = %d, want header plus 4 videos", len(rows))
	}
	if rows[3][0] != "Core" || rows[3][1] != "3" || rows[3][4] == "" {
		t.Errorf("row for video 3 = %v", rows[3])
	}
}

func TestReportService_TemporaryIdentity(t *testing.T) {
	var buf bytes.Buffer
	svc := NewReportService(memory.NewStore(), newTestCatalog(t), newTestLogger())
	if err := svc.ExportProgress(context.Background(), Identity{UserID: "t", Ephemeral: true}, &buf); err != nil {
		t.Fatalf("ExportProgress() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	if got, _ := f.GetCellValue("Summary", "B2"); got != "0" {
		t.Errorf("watched count = %q, want 0", got)
	}
}

func TestSheetName(t *testing.T) {
	long := sheetName(&catalog.Course{ID: 12, Name: "Escalations: tier/2 [advanced] handling"})
	if len([]rune(long)) > maxSheetName {
		t.Errorf("sheet name %q longer than %d", long, maxSheetName)
	}
	for _, r := range invalidInSheet {
		if strings.ContainsRune(long, r) {
			t.Errorf("sheet name %q contains %q", long, r)
		}
	}
}
