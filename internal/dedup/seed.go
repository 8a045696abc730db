package dedup

import (
	"time"

	"github.com/kmacleod/hoopsweep/internal/storage"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// SeedFromArtifact pre-populates the index from a prior discovery run,
// pinning each link's canonical owner to the first division that listed
// it. A narrower rerun (single division or gender) can then transplant
// from the canonical partition instead of fetching the game again.
// Entries without a parseable date or a primary division are ignored.
// Returns the number of links seeded.
func (v *VisitedIndex) SeedFromArtifact(artifact *storage.DiscoveryArtifact) int {
	seeded := 0
	for _, e := range artifact.Entries {
		if e.PrimaryDivision == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			continue
		}
		v.Seed(types.WorkItem{
			Date:     date,
			Division: e.PrimaryDivision,
			Gender:   e.PrimaryGender,
		}, e.Link)
		seeded++
	}
	return seeded
}
