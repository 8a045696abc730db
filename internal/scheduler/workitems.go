// Package scheduler drives a run: it expands dates into work items,
// walks them in canonical order through one shared browser session,
// and folds per-game outcomes into a run summary.
package scheduler

import (
	"time"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// GenerateWorkItems expands the date range into items in canonical
// order: date, then gender, then division one before two before three.
// The order is load-bearing for dedup: the division that sees a shared
// game first owns its canonical record.
func GenerateWorkItems(dates []time.Time, genders []types.Gender, divisions []types.Division) []types.WorkItem {
	items := make([]types.WorkItem, 0, len(dates)*len(genders)*len(divisions))
	for _, date := range dates {
		for _, gender := range genders {
			for _, division := range divisions {
				items = append(items, types.WorkItem{
					Date:     date,
					Division: division,
					Gender:   gender,
				})
			}
		}
	}
	return items
}

// DateRange returns every day from start to end inclusive.
func DateRange(start, end time.Time) []time.Time {
	start = truncateDay(start)
	end = truncateDay(end)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
