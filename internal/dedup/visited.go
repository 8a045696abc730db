// Package dedup tracks which game links a run has already captured and
// resolves cross-division duplicates without re-fetching.
package dedup

import (
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Entry records where a game link has been captured. First is the work
// item that captured the canonical copy and never changes afterwards;
// Current tracks the most recent sighting. Seeded entries came from a
// prior discovery artifact rather than this run, so their partitions
// may not actually hold the record yet.
type Entry struct {
	First   types.WorkItem
	Current types.WorkItem
	Seeded  bool
}

// VisitedIndex maps game links to the divisions that captured them
// during the current run. Owned by the scheduler goroutine, never
// shared, so it carries no lock.
type VisitedIndex struct {
	entries map[types.GameLink]*Entry
}

// NewVisitedIndex returns an empty index.
func NewVisitedIndex() *VisitedIndex {
	return &VisitedIndex{entries: make(map[types.GameLink]*Entry)}
}

// Mark records a sighting of link under item. The first sighting pins
// the canonical owner; later sightings only move Current. Marking a
// seeded entry promotes it to a real one.
func (v *VisitedIndex) Mark(item types.WorkItem, link types.GameLink) {
	if entry, ok := v.entries[link]; ok {
		entry.Current = item
		entry.Seeded = false
		return
	}
	v.entries[link] = &Entry{First: item, Current: item}
}

// Seed records cross-run ownership of a link without claiming this run
// has captured it. A link the run has already marked is left alone.
func (v *VisitedIndex) Seed(item types.WorkItem, link types.GameLink) {
	if _, ok := v.entries[link]; ok {
		return
	}
	v.entries[link] = &Entry{First: item, Current: item, Seeded: true}
}

// Lookup returns the entry for a link, if any.
func (v *VisitedIndex) Lookup(link types.GameLink) (Entry, bool) {
	entry, ok := v.entries[link]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Len returns the number of distinct links seen.
func (v *VisitedIndex) Len() int { return len(v.entries) }

// Links returns all seen links in unspecified order.
func (v *VisitedIndex) Links() []types.GameLink {
	links := make([]types.GameLink, 0, len(v.entries))
	for link := range v.entries {
		links = append(links, link)
	}
	return links
}
