package types

// GameLink is the stable identifier of one contest as extracted from a
// listing page. It is the dedup key across divisions, so it must be
// derived deterministically from page content, never session tokens.
type GameLink string

// TeamStats holds the box-score table for one side of a game.
type TeamStats struct {
	TeamName     string
	OpponentName string
	Columns      []string
	Rows         [][]string
}

// Empty reports whether the table carries no player rows.
func (t TeamStats) Empty() bool { return len(t.Rows) == 0 }

// GameRecord is a fully extracted game. DuplicateAcrossDivisions is the
// only field the dedup pipeline mutates after extraction; Division is
// re-targeted when a record is transplanted into a sibling division.
type GameRecord struct {
	GameID                   string
	Link                     GameLink
	Division                 Division
	Gender                   Gender
	Date                     string
	TeamOne                  TeamStats
	TeamTwo                  TeamStats
	DuplicateAcrossDivisions bool
}

// Clone returns a deep copy, used when transplanting a record into a
// sibling division so the source copy stays untouched.
func (g *GameRecord) Clone() *GameRecord {
	clone := *g
	clone.TeamOne = cloneStats(g.TeamOne)
	clone.TeamTwo = cloneStats(g.TeamTwo)
	return &clone
}

func cloneStats(t TeamStats) TeamStats {
	c := t
	c.Columns = append([]string(nil), t.Columns...)
	c.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	return c
}

// RunSummary reports the outcome of a full scrape run.
type RunSummary struct {
	ItemsProcessed int
	ItemsSkipped   int
	GamesCaptured  int
	GamesSkipped   int
	GamesFailed    int
}
