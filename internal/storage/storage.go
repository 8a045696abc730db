// Package storage persists extracted game records. Two backends exist:
// a partitioned CSV tree matching the published dataset layout, and a
// MongoDB collection. Both expose the same Store surface so the dedup
// pipeline can read, transplant and re-flag records without caring
// where they live.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Store is the persistence surface for game records. A record's home is
// the (date, division, gender) partition of the work item it was
// captured under.
type Store interface {
	// Name returns the backend identifier.
	Name() string

	// Exists reports whether the partition for this work item already
	// holds any records. Used for idempotent re-run skipping.
	Exists(item types.WorkItem) (bool, error)

	// HasGame reports whether this partition already holds the game.
	HasGame(item types.WorkItem, link types.GameLink) (bool, error)

	// ReadGame loads a stored record from the partition, or
	// ErrDuplicateSourceMissing when the game is not there.
	ReadGame(item types.WorkItem, link types.GameLink) (*types.GameRecord, error)

	// Append persists one record into the item's partition.
	Append(item types.WorkItem, record *types.GameRecord) error

	// SetDuplicateFlag rewrites the cross-division duplicate flag on an
	// already stored record.
	SetDuplicateFlag(item types.WorkItem, link types.GameLink, duplicate bool) error

	// Close flushes pending writes and releases resources.
	Close() error
}

// New builds the configured Store backend.
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "csv":
		return NewCSVStore(cfg.OutputDir, logger)
	case "mongo":
		return NewMongoStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
