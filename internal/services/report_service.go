package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/models"
	"github.com/staff-academy/course-platform/internal/repositories"
)

const (
	summarySheet   = "Summary"
	maxSheetName   = 31
	reportTimeFmt  = time.RFC3339
	invalidInSheet = `[]:*?/\`
)

type reportService struct {
	repo    repositories.Repository
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func NewReportService(repo repositories.Repository, cat *catalog.Catalog, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, catalog: cat, logger: logger}
}

// ExportProgress writes a summary sheet plus one sheet per course
func (s *reportService) ExportProgress(ctx context.Context, identity Identity, w io.Writer) error {
	progress := map[int]map[int]models.ProgressEntry{}
	completions := map[int]models.CompletionRecord{}
	var totalWatched int64

	if !identity.Ephemeral {
		entries, err := s.repo.Progress().ListByUser(ctx, identity.UserID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}
		for _, e := range entries {
			if e.Completed {
				totalWatched++
			}
			if progress[e.CourseID] == nil {
				progress[e.CourseID] = map[int]models.ProgressEntry{}
			}
			progress[e.CourseID][e.VideoID] = e
		}

		records, err := s.repo.Completion().ListByUser(ctx, identity.UserID)
		if err != nil {
			return fmt.Errorf("failed to load completions: %w", err)
		}
		for _, r := range records {
			completions[r.CourseID] = r
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, 1, "Course", "Watched", "Total", "Completed", "Completed At"); err != nil {
		return err
	}
	f.SetRowStyle(summarySheet, 1, 1, header)

	courses := s.catalog.Courses()
	for i, summary := range courses {
		course, err := s.catalog.Course(summary.ID)
		if err != nil {
			return err
		}
		watched := s.writeCourseSheet(f, course, progress[course.ID], header)

		completedAt := ""
		rec, completed := completions[course.ID]
		if completed {
			completedAt = rec.CompletedAt.Format(reportTimeFmt)
		}
		if err := writeRow(f, summarySheet, i+2, course.Name, watched, summary.VideoCount, completed, completedAt); err != nil {
			return err
		}
	}

	level := DescribeLevel(totalWatched)
	levelRow := len(courses) + 3
	if err := writeRow(f, summarySheet, levelRow, "Level", level.Level, "Videos Watched", level.TotalCompleted); err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, levelRow+1, "Next Level At", level.NextThreshold, "Progress %", level.ProgressPercent); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "Progress exported", "user_id", identity.UserID)
	return nil
}

// writeCourseSheet fills one sheet in course order and returns the number of watched videos
func (s *reportService) writeCourseSheet(f *excelize.File, course *catalog.Course, watched map[int]models.ProgressEntry, header int) int {
	sheet := sheetName(course)
	if _, err := f.NewSheet(sheet); err != nil {
		s.logger.Warn("Skipping course sheet", "course_id", course.ID, "error", err)
		return 0
	}
	writeRow(f, sheet, 1, "Section", "Video ID", "Title", "Watched", "Watched At")
	f.SetRowStyle(sheet, 1, 1, header)

	row, count := 2, 0
	for _, section := range course.Sections {
		for _, video := range section.Videos {
			entry, ok := watched[video.ID]
			done := ok && entry.Completed
			at := ""
			if done {
				count++
				at = entry.WatchedAt.Format(reportTimeFmt)
			}
			writeRow(f, sheet, row, section.Title, video.ID, video.Title, done, at)
			row++
		}
	}
	return count
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func sheetName(course *catalog.Course) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidInSheet, r) {
			return '-'
		}
		return r
	}, fmt.Sprintf("%d %s", course.ID, course.Name))

	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}
