package scrape

import (
	"log/slog"
	"time"

	"github.com/kmacleod/hoopsweep/internal/observability"
	"github.com/kmacleod/hoopsweep/internal/retry"
	"github.com/kmacleod/hoopsweep/internal/session"
	"github.com/kmacleod/hoopsweep/internal/types"
	"github.com/kmacleod/hoopsweep/internal/urls"
)

// Browser is the slice of the session surface the scraper needs.
// Satisfied by *session.Handle; faked in tests.
type Browser interface {
	Navigate(url string) error
	HTML() (string, error)
	ClickMatching(selector, text string) error
}

var _ Browser = (*session.Handle)(nil)

// Scraper drives one browser session through listing and box-score
// pages, with every remote call wrapped in the retry policy.
type Scraper struct {
	browser Browser
	parser  PageParser
	policy  *retry.Policy
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewScraper wires a Scraper. metrics may be nil.
func NewScraper(browser Browser, parser PageParser, policy *retry.Policy, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	return &Scraper{
		browser: browser,
		parser:  parser,
		policy:  policy,
		metrics: metrics,
		logger:  logger.With("component", "scraper"),
	}
}

// LoadListing loads the scoreboard for one work item and returns its
// classified result. Transport failures after all retries come back as
// LoadTransportError rather than an error return, so the caller can
// treat every outcome uniformly.
func (s *Scraper) LoadListing(item types.WorkItem) types.ListingResult {
	target := urls.Scoreboard(item)

	var pageHTML string
	err := s.policy.Do("load_listing", func() error {
		start := time.Now()
		if err := s.browser.Navigate(target); err != nil {
			return err
		}
		s.metrics.ObservePageLoad(time.Since(start))
		h, err := s.browser.HTML()
		if err != nil {
			return err
		}
		pageHTML = h
		return nil
	})
	if err != nil {
		s.metrics.IncError(string(retry.Classify(err)))
		return types.ListingResult{Status: types.LoadTransportError, Err: err}
	}

	s.metrics.IncPageLoaded("listing")
	result := s.parser.ParseListing(pageHTML, target)
	switch result.Status {
	case types.LoadOK:
		s.logger.Info("listing loaded", "item", item.String(), "links", len(result.Links))
	case types.LoadNoListings:
		s.logger.Info("no games published", "item", item.String())
	case types.LoadStructuralError:
		s.logger.Warn("listing page malformed", "item", item.String(), "url", target)
		s.metrics.IncError(string(retry.ClassStructural))
	}
	return result
}

// FetchGame extracts the full record for one game link: both teams'
// tables, switching the displayed team via the page's own tab control.
// A record missing either side is never returned half-populated.
func (s *Scraper) FetchGame(link types.GameLink, item types.WorkItem) (*types.GameRecord, error) {
	var record *types.GameRecord

	err := s.policy.Do("fetch_game", func() error {
		start := time.Now()
		if err := s.browser.Navigate(string(link)); err != nil {
			return err
		}
		s.metrics.ObservePageLoad(time.Since(start))

		pageHTML, err := s.browser.HTML()
		if err != nil {
			return err
		}

		teamOne, teamTwo, err := s.parser.TeamNames(pageHTML)
		if err != nil {
			return &types.StructuralError{URL: string(link), Marker: TeamTabSel}
		}

		statsOne, err := s.parser.TeamTable(pageHTML, teamOne, teamTwo)
		if err != nil {
			return &types.PartialExtractionError{Link: link, Team: teamOne, Err: err}
		}

		if err := s.browser.ClickMatching(TeamTabSel, teamTwo); err != nil {
			return err
		}
		pageHTML, err = s.browser.HTML()
		if err != nil {
			return err
		}
		statsTwo, err := s.parser.TeamTable(pageHTML, teamTwo, teamOne)
		if err != nil {
			return &types.PartialExtractionError{Link: link, Team: teamTwo, Err: err}
		}

		record = &types.GameRecord{
			GameID:   urls.GameID(link),
			Link:     link,
			Division: item.Division,
			Gender:   item.Gender,
			Date:     item.DateString(),
			TeamOne:  statsOne,
			TeamTwo:  statsTwo,
		}
		return nil
	})
	if err != nil {
		s.metrics.IncError(string(retry.Classify(err)))
		return nil, err
	}

	s.metrics.IncPageLoaded("game")
	return record, nil
}
