// Package scrape turns scoreboard and box-score pages into typed
// records. The parser works on serialized HTML so it can be tested
// against fixtures without a browser.
package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/kmacleod/hoopsweep/internal/types"
	"github.com/kmacleod/hoopsweep/internal/urls"
)

// Selectors and markers for the stats site. The listing marker is the
// structural anchor that distinguishes a half-rendered page from a page
// that genuinely has no games.
const (
	ListingMarker    = "#contentArea"
	ListingAnchorSel = "a[href*='/contests/']"
	TeamTabSel       = "ul.nav-tabs a, .card-header a"
	NoGamesText      = "No games"
)

// PageParser extracts typed data from serialized pages.
type PageParser interface {
	// ParseListing classifies a scoreboard page and returns its
	// candidate game links, order preserved, page-level duplicates
	// removed.
	ParseListing(pageHTML, pageURL string) types.ListingResult

	// TeamNames returns the two team names shown on a box-score page,
	// in display order.
	TeamNames(pageHTML string) (one, two string, err error)

	// TeamTable extracts the box-score table currently displayed.
	TeamTable(pageHTML, team, opponent string) (types.TeamStats, error)
}

// HTMLParser is the production PageParser.
type HTMLParser struct{}

// NewParser returns the production parser.
func NewParser() *HTMLParser { return &HTMLParser{} }

// ParseListing classifies the scoreboard page and collects game links.
func (p *HTMLParser) ParseListing(pageHTML, pageURL string) types.ListingResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return types.ListingResult{
			Status: types.LoadTransportError,
			Err:    fmt.Errorf("parse listing document: %w", err),
		}
	}

	// The explicit empty-scoreboard message is informational, not an
	// error, and takes priority over the structural check.
	bodyText := doc.Find("body").Text()
	if strings.Contains(bodyText, NoGamesText) {
		return types.ListingResult{Status: types.LoadNoListings, Err: types.ErrNoGamesPublished}
	}

	if doc.Find(ListingMarker).Length() == 0 {
		return types.ListingResult{
			Status: types.LoadStructuralError,
			Err:    &types.StructuralError{URL: pageURL, Marker: ListingMarker},
		}
	}

	seen := make(map[types.GameLink]struct{})
	var links []types.GameLink
	doc.Find(ListingAnchorSel).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !urls.IsGameLink(href) {
			return
		}
		link := types.GameLink(urls.Absolute(href))
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return types.ListingResult{Status: types.LoadOK, Links: links}
}

// TeamNames reads the two team tabs from a box-score page.
func (p *HTMLParser) TeamNames(pageHTML string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", "", fmt.Errorf("parse box-score document: %w", err)
	}

	var names []string
	doc.Find(TeamTabSel).Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name == "" {
			return
		}
		for _, existing := range names {
			if existing == name {
				return
			}
		}
		names = append(names, name)
	})

	if len(names) < 2 {
		return "", "", fmt.Errorf("expected two team tabs, found %d", len(names))
	}
	return names[0], names[1], nil
}

// TeamTable extracts the box-score table via XPath. The stat table is
// the widest table on the page with both a header row and body rows;
// layout tables around it never carry a full header.
func (p *HTMLParser) TeamTable(pageHTML, team, opponent string) (types.TeamStats, error) {
	doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return types.TeamStats{}, fmt.Errorf("parse box-score document: %w", err)
	}

	tables, err := htmlquery.QueryAll(doc, "//table[.//th and .//td]")
	if err != nil {
		return types.TeamStats{}, fmt.Errorf("query tables: %w", err)
	}

	var best *html.Node
	bestCols := 0
	for _, table := range tables {
		ths, _ := htmlquery.QueryAll(table, ".//th")
		if len(ths) > bestCols {
			bestCols = len(ths)
			best = table
		}
	}
	if best == nil {
		return types.TeamStats{}, fmt.Errorf("no stat table found for team %q", team)
	}

	stats := types.TeamStats{TeamName: team, OpponentName: opponent}

	headers, _ := htmlquery.QueryAll(best, ".//thead//th")
	if len(headers) == 0 {
		headers, _ = htmlquery.QueryAll(best, ".//tr[1]/th")
	}
	for _, th := range headers {
		stats.Columns = append(stats.Columns, cellText(th))
	}

	rows, err := htmlquery.QueryAll(best, ".//tbody/tr")
	if err != nil || len(rows) == 0 {
		rows, _ = htmlquery.QueryAll(best, ".//tr[td]")
	}
	for _, tr := range rows {
		cells, _ := htmlquery.QueryAll(tr, "./td")
		if len(cells) == 0 {
			continue
		}
		row := make([]string, 0, len(cells))
		for _, td := range cells {
			row = append(row, cellText(td))
		}
		stats.Rows = append(stats.Rows, row)
	}

	if stats.Empty() {
		return types.TeamStats{}, fmt.Errorf("stat table for team %q has no rows", team)
	}
	return stats, nil
}

func cellText(n *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " ")
}
