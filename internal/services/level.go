package services

import "math"

// maxCountedCompletions bounds the input of the level curve so every
// threshold stays well inside int64
const maxCountedCompletions int64 = 1 << 40

// LevelInfo describes where a completion count sits on the level curve
type LevelInfo struct {
	Level            int
	TotalCompleted   int64
	CurrentThreshold int64
	NextThreshold    int64
	ProgressPercent  float64
}

// LevelThreshold returns the completions needed to reach level. Level 1 needs
// none and each later level needs one more than the step before it
// (0, 2, 5, 9, 14, 20, ...).
func LevelThreshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	l := int64(level)
	return (l - 1) * (l + 2) / 2
}

// CalculateLevel maps a total completion count to a level. Negative counts are treated as zero.
func CalculateLevel(completed int64) int {
	completed = clampCompletions(completed)
	if completed == 0 {
		return 1
	}
	// largest L with (L-1)(L+2)/2 <= completed
	level := int((math.Sqrt(float64(9+8*completed)) - 1) / 2)
	for level > 1 && LevelThreshold(level) > completed {
		level--
	}
	for LevelThreshold(level+1) <= completed {
		level++
	}
	return level
}

func clampCompletions(completed int64) int64 {
	switch {
	case completed < 0:
		return 0
	case completed > maxCountedCompletions:
		return maxCountedCompletions
	}
	return completed
}

// ProgressToNextLevel returns how far completed is between the current and next threshold, as a percentage in [0, 100]
func ProgressToNextLevel(completed int64) float64 {
	completed = clampCompletions(completed)
	level := CalculateLevel(completed)
	current := LevelThreshold(level)
	next := LevelThreshold(level + 1)

	pct := float64(completed-current) / float64(next-current) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// DescribeLevel bundles the level curve values for completed
func DescribeLevel(completed int64) LevelInfo {
	completed = clampCompletions(completed)
	level := CalculateLevel(completed)
	return LevelInfo{
		Level:            level,
		TotalCompleted:   completed,
		CurrentThreshold: LevelThreshold(level),
		NextThreshold:    LevelThreshold(level + 1),
		ProgressPercent:  ProgressToNextLevel(completed),
	}
}
