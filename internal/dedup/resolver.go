package dedup

import (
	"errors"
	"log/slog"

	"github.com/kmacleod/hoopsweep/internal/storage"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Outcome classifies how one game link was resolved.
type Outcome int

const (
	// OutcomeFetched means the game was freshly extracted and stored.
	OutcomeFetched Outcome = iota
	// OutcomeTransplanted means the record was copied from the division
	// that captured it first, both copies flagged.
	OutcomeTransplanted
	// OutcomeSkippedStored means this partition already held the game.
	OutcomeSkippedStored
	// OutcomeSkippedSameDivision means the listing repeated a link the
	// same partition already resolved this run.
	OutcomeSkippedSameDivision
	// OutcomeFailed means the game could not be captured.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFetched:
		return "fetched"
	case OutcomeTransplanted:
		return "transplanted"
	case OutcomeSkippedStored:
		return "skipped_stored"
	case OutcomeSkippedSameDivision:
		return "skipped_same_division"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher extracts one game through the browser. Satisfied by
// *scrape.Scraper.
type Fetcher interface {
	FetchGame(link types.GameLink, item types.WorkItem) (*types.GameRecord, error)
}

// Resolver decides, for every candidate link on a listing, whether to
// skip it, copy it across divisions, or fetch it for real.
type Resolver struct {
	store   storage.Store
	fetcher Fetcher
	visited *VisitedIndex
	force   bool
	logger  *slog.Logger
}

// NewResolver wires a Resolver. force bypasses the already-stored skip.
func NewResolver(store storage.Store, fetcher Fetcher, visited *VisitedIndex, force bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		visited: visited,
		force:   force,
		logger:  logger.With("component", "resolver"),
	}
}

// Resolve runs the resolution steps for one link under one work item:
//
//  1. already stored in this partition: skip (unless forced)
//  2. seen this run under the same division: skip
//  3. seen under a sibling division, this run or in a seeded discovery
//     artifact: transplant the stored record, flagging both copies
//  4. otherwise: fetch through the browser
//
// A transplant that cannot complete falls back to a fresh fetch after
// reverting any flag it set on the source copy.
func (r *Resolver) Resolve(item types.WorkItem, link types.GameLink) (Outcome, error) {
	if !r.force {
		stored, err := r.store.HasGame(item, link)
		if err != nil {
			return OutcomeFailed, err
		}
		if stored {
			r.visited.Mark(item, link)
			return OutcomeSkippedStored, nil
		}
	}

	if entry, seen := r.visited.Lookup(link); seen {
		samePartition := entry.Current.Division == item.Division && entry.Current.Gender == item.Gender
		if samePartition && !entry.Seeded {
			return OutcomeSkippedSameDivision, nil
		}

		// A seeded entry whose canonical owner is this very partition
		// has nothing to transplant from; fall through to the fetch.
		if entry.First.Division != item.Division || entry.First.Gender != item.Gender {
			err := r.transplant(item, link, entry.First)
			if err == nil {
				r.visited.Mark(item, link)
				return OutcomeTransplanted, nil
			}
			r.logger.Warn("transplant failed, falling back to fetch",
				"link", string(link), "source", entry.First.String(), "error", err)
		}
	}

	record, err := r.fetcher.FetchGame(link, item)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := r.store.Append(item, record); err != nil {
		return OutcomeFailed, err
	}
	r.visited.Mark(item, link)
	return OutcomeFetched, nil
}

// transplant copies the canonical record from its source partition into
// item's partition. Both copies end up flagged; on a failed append the
// source flag is put back the way it was.
func (r *Resolver) transplant(item types.WorkItem, link types.GameLink, source types.WorkItem) error {
	src, err := r.store.ReadGame(source, link)
	if err != nil {
		return err
	}

	sourceWasFlagged := src.DuplicateAcrossDivisions
	if !sourceWasFlagged {
		if err := r.store.SetDuplicateFlag(source, link, true); err != nil {
			return err
		}
	}

	copied := src.Clone()
	copied.Division = item.Division
	copied.Gender = item.Gender
	copied.Date = item.DateString()
	copied.DuplicateAcrossDivisions = true

	if err := r.store.Append(item, copied); err != nil {
		if !sourceWasFlagged {
			if revertErr := r.store.SetDuplicateFlag(source, link, false); revertErr != nil &&
				!errors.Is(revertErr, types.ErrDuplicateSourceMissing) {
				r.logger.Error("could not revert source duplicate flag",
					"link", string(link), "source", source.String(), "error", revertErr)
			}
		}
		return err
	}

	r.logger.Info("record transplanted",
		"link", string(link),
		"from", source.String(),
		"to", item.String(),
	)
	return nil
}
