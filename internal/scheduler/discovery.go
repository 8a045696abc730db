package scheduler

import (
	"context"
	"time"

	"github.com/kmacleod/hoopsweep/internal/notify"
	"github.com/kmacleod/hoopsweep/internal/storage"
	"github.com/kmacleod/hoopsweep/internal/types"
	"github.com/kmacleod/hoopsweep/internal/urls"
)

// RunDiscovery walks the listings only, never opening a game page, and
// maps every link to the divisions it appears under. The artifact is
// the ground truth for how much cross-division duplication a date range
// carries.
func (s *Scheduler) RunDiscovery(ctx context.Context, items []types.WorkItem) (*storage.DiscoveryArtifact, error) {
	if err := s.session.Open(); err != nil {
		return nil, err
	}
	defer s.session.Close()

	var order []types.GameLink
	entries := make(map[types.GameLink]*storage.DiscoveryEntry)
	var dates []string
	seenDates := make(map[string]struct{})

	for i, item := range items {
		if ctx.Err() != nil {
			s.logger.Warn("discovery cancelled", "remaining_items", len(items)-i)
			break
		}

		if date := item.DateString(); !contains(seenDates, date) {
			seenDates[date] = struct{}{}
			dates = append(dates, date)
		}

		result := s.lister.LoadListing(item)
		if result.Status != types.LoadOK {
			if result.Status != types.LoadNoListings {
				s.logger.Warn("discovery listing unavailable",
					"item", item.String(), "status", result.Status.String(), "error", result.Err)
			}
			continue
		}

		for _, link := range result.Links {
			entry, ok := entries[link]
			if !ok {
				entry = &storage.DiscoveryEntry{
					Link:            link,
					GameID:          urls.GameID(link),
					Date:            item.DateString(),
					PrimaryDivision: item.Division,
					PrimaryGender:   item.Gender,
				}
				entries[link] = entry
				order = append(order, link)
			}
			if !hasDivision(entry.Divisions, item.Division) {
				entry.Divisions = append(entry.Divisions, item.Division)
			}
			if !hasGender(entry.Genders, item.Gender) {
				entry.Genders = append(entry.Genders, item.Gender)
			}
		}
	}

	artifact := &storage.DiscoveryArtifact{
		GeneratedAt: time.Now().UTC(),
		Dates:       dates,
	}
	for _, link := range order {
		entry := *entries[link]
		entry.IsDuplicate = entry.Duplicate()
		artifact.Entries = append(artifact.Entries, entry)
	}

	dups := len(artifact.Duplicates())
	s.logger.Info("discovery finished",
		"links", len(artifact.Entries), "cross_division", dups)
	s.notifyEvent(ctx, notify.SeverityInfo, "Discovery run finished", "", nil)
	return artifact, nil
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func hasDivision(divisions []types.Division, d types.Division) bool {
	for _, existing := range divisions {
		if existing == d {
			return true
		}
	}
	return false
}

func hasGender(genders []types.Gender, g types.Gender) bool {
	for _, existing := range genders {
		if existing == g {
			return true
		}
	}
	return false
}
