package services

import (
	"github.com/staff-academy/course-platform/internal/catalog"
	"github.com/staff-academy/course-platform/internal/models"
)

// IsUnlocked reports whether videoID may be watched. The first video of the
// course is always open, a completed video stays open, and any other video
// opens once its predecessor in course order is completed. Videos outside
// ordered are never unlocked.
func IsUnlocked(ordered []catalog.VideoRef, completed map[int]bool, videoID int) bool {
	for i, ref := range ordered {
		if ref.VideoID != videoID {
			continue
		}
		if i == 0 || completed[videoID] {
			return true
		}
		return completed[ordered[i-1].VideoID]
	}
	return false
}

// CourseAccess evaluates every video of a course in order
func CourseAccess(ordered []catalog.VideoRef, entries []models.ProgressEntry) []models.VideoUnlockStatus {
	completed := completedVideos(entries)

	out := make([]models.VideoUnlockStatus, 0, len(ordered))
	for _, ref := range ordered {
		out = append(out, models.VideoUnlockStatus{
			VideoID:   ref.VideoID,
			SectionID: ref.SectionID,
			Completed: completed[ref.VideoID],
			Unlocked:  IsUnlocked(ordered, completed, ref.VideoID),
		})
	}
	return out
}

func completedVideos(entries []models.ProgressEntry) map[int]bool {
	completed := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.Completed {
			completed[e.VideoID] = true
		}
	}
	return completed
}
