// Package urls builds and parses the scoreboard and contest URLs of the
// stats site. All identifiers derived here are deterministic functions
// of their inputs so they can serve as dedup keys.
package urls

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kmacleod/hoopsweep/internal/types"
)

// ScoreboardBase is the listing endpoint for a (date, division, gender)
// combination.
const ScoreboardBase = "https://stats.ncaa.org/contests/livestream_scoreboards"

// Scoreboard returns the listing URL for one work item.
func Scoreboard(item types.WorkItem) string {
	q := url.Values{}
	q.Set("utf8", "✓")
	q.Set("sport_code", item.Gender.SportCode())
	q.Set("division", item.Division.Number())
	q.Set("game_date", item.Date.Format("01/02/2006"))
	q.Set("commit", "Submit")
	return ScoreboardBase + "?" + q.Encode()
}

// ParseScoreboard extracts the work item encoded in a scoreboard URL.
func ParseScoreboard(raw string) (types.WorkItem, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("parse scoreboard URL %q: %w", raw, err)
	}
	q := u.Query()

	var gender types.Gender
	switch q.Get("sport_code") {
	case "WBB":
		gender = types.GenderWomen
	case "MBB":
		gender = types.GenderMen
	default:
		return types.WorkItem{}, fmt.Errorf("unknown sport_code %q in %q", q.Get("sport_code"), raw)
	}

	var division types.Division
	switch q.Get("division") {
	case "1":
		division = types.DivisionOne
	case "2":
		division = types.DivisionTwo
	case "3":
		division = types.DivisionThree
	default:
		return types.WorkItem{}, fmt.Errorf("unknown division %q in %q", q.Get("division"), raw)
	}

	date, err := time.Parse("01/02/2006", q.Get("game_date"))
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("bad game_date in %q: %w", raw, err)
	}

	return types.WorkItem{Date: date, Division: division, Gender: gender}, nil
}

// GameID extracts the contest identifier from a game link.
// Links look like https://stats.ncaa.org/contests/6458485/individual_stats
// or https://stats.ncaa.org/contests/6458485.
func GameID(link types.GameLink) string {
	parts := strings.Split(strings.TrimRight(string(link), "/"), "/")
	for i, p := range parts {
		if p == "contests" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	// Fallback: last path segment, query stripped.
	last := parts[len(parts)-1]
	if idx := strings.IndexByte(last, '?'); idx >= 0 {
		last = last[:idx]
	}
	return last
}

// IsGameLink reports whether a href points at a contest page.
func IsGameLink(href string) bool {
	return strings.Contains(href, "/contests/")
}

// Absolute resolves a possibly relative href against the stats site host.
func Absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return "https://stats.ncaa.org" + href
}
