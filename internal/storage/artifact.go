package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// DiscoveryEntry records every division and gender one game link was
// seen under, in visit order. The primary fields name the partition
// that listed the link first; that partition owns the canonical record.
type DiscoveryEntry struct {
	Link            types.GameLink   `json:"link"`
	GameID          string           `json:"game_id"`
	Date            string           `json:"date"`
	PrimaryDivision types.Division   `json:"primary_division"`
	PrimaryGender   types.Gender     `json:"primary_gender"`
	Divisions       []types.Division `json:"divisions"`
	Genders         []types.Gender   `json:"genders"`
	IsDuplicate     bool             `json:"is_duplicate"`
}

// Duplicate reports whether the link appeared under more than one
// division.
func (e DiscoveryEntry) Duplicate() bool { return len(e.Divisions) > 1 }

// DiscoveryArtifact is the output of a discovery run: the full
// link-to-divisions mapping, persisted as JSON for offline analysis.
type DiscoveryArtifact struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Dates       []string         `json:"dates"`
	Entries     []DiscoveryEntry `json:"entries"`
}

// Duplicates returns only the cross-division entries.
func (a *DiscoveryArtifact) Duplicates() []DiscoveryEntry {
	var dups []DiscoveryEntry
	for _, e := range a.Entries {
		if e.Duplicate() {
			dups = append(dups, e)
		}
	}
	return dups
}

// SaveArtifact writes the artifact as indented JSON, creating parent
// directories as needed.
func SaveArtifact(path string, artifact *DiscoveryArtifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a previously saved artifact.
func LoadArtifact(path string) (*DiscoveryArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var artifact DiscoveryArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return &artifact, nil
}
