package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// CSV layout: one row per player stat line, with game metadata columns
// in front and the table's own columns packed pipe-separated. Stat
// tables vary in shape between seasons, so the packed form keeps the
// file header stable while preserving each game's exact columns.
var csvHeader = []string{
	"GAMEID",
	"GAMELINK",
	"TEAM",
	"OPPONENT",
	"DUPLICATE_ACROSS_DIVISIONS",
	"STAT_COLUMNS",
	"STAT_VALUES",
}

const statSep = "|"

// CSVStore writes records into a partitioned file tree:
// <root>/<year>/<month>/<gender>/<division>/basketball_<gender>_<division>_<y>_<m>_<d>.csv
type CSVStore struct {
	root   string
	logger *slog.Logger
}

// NewCSVStore creates the root directory if needed.
func NewCSVStore(root string, logger *slog.Logger) (*CSVStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output root: %w", err)}
	}
	return &CSVStore{
		root:   root,
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStore) Name() string { return "csv" }

// Path returns the partition file for a work item.
func (s *CSVStore) Path(item types.WorkItem) string {
	year, month, day := item.DateParts()
	name := fmt.Sprintf("basketball_%s_%s_%s_%s_%s.csv",
		item.Gender, item.Division, year, month, day)
	return filepath.Join(s.root, year, month, string(item.Gender), string(item.Division), name)
}

func (s *CSVStore) Exists(item types.WorkItem) (bool, error) {
	info, err := os.Stat(s.Path(item))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &types.StorageError{Backend: "csv", Err: err}
	}
	return info.Size() > 0, nil
}

func (s *CSVStore) HasGame(item types.WorkItem, link types.GameLink) (bool, error) {
	rows, err := s.readRows(item)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row[1] == string(link) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CSVStore) ReadGame(item types.WorkItem, link types.GameLink) (*types.GameRecord, error) {
	rows, err := s.readRows(item)
	if err != nil {
		return nil, err
	}

	record := &types.GameRecord{
		Link:     link,
		Division: item.Division,
		Gender:   item.Gender,
		Date:     item.DateString(),
	}

	// Rows for one game are contiguous and grouped by team, first team
	// first, so accumulation in file order reconstructs both tables.
	var teams []*types.TeamStats
	byTeam := make(map[string]*types.TeamStats)
	for _, row := range rows {
		if row[1] != string(link) {
			continue
		}
		record.GameID = row[0]
		record.DuplicateAcrossDivisions = record.DuplicateAcrossDivisions || row[4] == "true"

		stats, ok := byTeam[row[2]]
		if !ok {
			stats = &types.TeamStats{
				TeamName:     row[2],
				OpponentName: row[3],
				Columns:      splitStat(row[5]),
			}
			byTeam[row[2]] = stats
			teams = append(teams, stats)
		}
		stats.Rows = append(stats.Rows, splitStat(row[6]))
	}

	if len(teams) == 0 {
		return nil, types.ErrDuplicateSourceMissing
	}
	record.TeamOne = *teams[0]
	if len(teams) > 1 {
		record.TeamTwo = *teams[1]
	}
	return record, nil
}

func (s *CSVStore) Append(item types.WorkItem, record *types.GameRecord) error {
	path := s.Path(item)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "csv", Err: fmt.Errorf("create partition dir: %w", err)}
	}

	info, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(csvHeader); err != nil {
			return &types.StorageError{Backend: "csv", Err: err}
		}
	}
	for _, stats := range []types.TeamStats{record.TeamOne, record.TeamTwo} {
		cols := joinStat(stats.Columns)
		for _, statRow := range stats.Rows {
			row := []string{
				record.GameID,
				string(record.Link),
				stats.TeamName,
				stats.OpponentName,
				strconv.FormatBool(record.DuplicateAcrossDivisions),
				cols,
				joinStat(statRow),
			}
			if err := w.Write(row); err != nil {
				return &types.StorageError{Backend: "csv", Err: err}
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}

	s.logger.Debug("record appended",
		"file", path, "game_id", record.GameID,
		"duplicate", record.DuplicateAcrossDivisions)
	return nil
}

// SetDuplicateFlag rewrites the partition file with the flag changed on
// every row of the given game. Write-to-temp-then-rename keeps the file
// whole if the rewrite dies midway.
func (s *CSVStore) SetDuplicateFlag(item types.WorkItem, link types.GameLink, duplicate bool) error {
	rows, err := s.readRows(item)
	if err != nil {
		return err
	}

	found := false
	for _, row := range rows {
		if row[1] == string(link) {
			row[4] = strconv.FormatBool(duplicate)
			found = true
		}
	}
	if !found {
		return types.ErrDuplicateSourceMissing
	}

	path := s.Path(item)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rewrite-*.csv")
	if err != nil {
		return &types.StorageError{Backend: "csv", Err: err}
	}
	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err == nil {
		err = w.WriteAll(rows)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return &types.StorageError{Backend: "csv", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &types.StorageError{Backend: "csv", Err: err}
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

// readRows loads the data rows (header stripped) of a partition file.
// A missing file reads as empty.
func (s *CSVStore) readRows(item types.WorkItem) ([][]string, error) {
	f, err := os.Open(s.Path(item))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &types.StorageError{Backend: "csv", Err: err}
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func joinStat(fields []string) string { return strings.Join(fields, statSep) }

func splitStat(packed string) []string {
	if packed == "" {
		return nil
	}
	return strings.Split(packed, statSep)
}
