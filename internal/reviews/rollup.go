package reviews

import (
	"sort"
	"strings"
	"time"

	"complai-backend/internal/shared/config"
)

// ComputeSnapshot derives the reviewer metrics from an item collection. It is
// a pure function of its inputs; callers recompute wholesale after every
// mutating queue action.
func ComputeSnapshot(items []Item, now time.Time, policy config.Policy) Snapshot {
	var snap Snapshot
	if len(items) == 0 {
		return snap
	}

	// Date-string prefix comparison, deliberately not timezone-aware.
	today := now.Format("2006-01-02")

	var completed []Item
	var touchTimes []int64
	autoReady := 0
	loopTotal := 0

	for _, item := range items {
		if strings.HasPrefix(item.CreatedAt.Format(time.RFC3339), today) {
			snap.ItemsToday++
		}
		if item.Status == StatusAutoReady ||
			(item.Confidence >= policy.AutoReadyThreshold && item.Kind == KindClassification) {
			autoReady++
		}
		loopTotal += item.LoopCount

		if item.Status == StatusCompleted {
			completed = append(completed, item)
			if item.TouchTimeSeconds != nil && *item.TouchTimeSeconds > 0 {
				touchTimes = append(touchTimes, *item.TouchTimeSeconds)
			}
		}
	}

	snap.ItemsCompleted = len(completed)
	snap.MedianTimeSeconds = upperMedian(touchTimes)
	snap.AutoReadyRate = float64(autoReady) / float64(len(items))
	snap.ReturnLoopCount = float64(loopTotal) / float64(len(items))

	if len(completed) > 0 {
		firstPass := 0
		totalMinutesSaved := 0.0
		for _, item := range completed {
			if item.LoopCount == 0 {
				firstPass++
			}
			baseline := policy.DefaultBaselineMinutes
			if item.Kind == KindClassification {
				baseline = policy.ClassificationBaselineMinutes
			}
			actual := 0.0
			if item.TouchTimeSeconds != nil {
				actual = float64(*item.TouchTimeSeconds) / 60
			}
			if saved := baseline - actual; saved > 0 {
				totalMinutesSaved += saved
			}
		}
		snap.FirstPassRate = float64(firstPass) / float64(len(completed))
		snap.HoursAvoided = totalMinutesSaved / 60
		snap.DollarsSaved = snap.HoursAvoided * policy.HourlyRateUSD
	}

	return snap
}

// upperMedian returns the middle element of the sorted values, taking the
// upper-middle element for even-length input rather than averaging the two
// middle values.
func upperMedian(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}
