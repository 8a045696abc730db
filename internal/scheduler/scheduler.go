package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/dedup"
	"github.com/kmacleod/hoopsweep/internal/notify"
	"github.com/kmacleod/hoopsweep/internal/observability"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// Lister loads the scoreboard page for one work item. Satisfied by
// *scrape.Scraper.
type Lister interface {
	LoadListing(item types.WorkItem) types.ListingResult
}

// LinkResolver resolves one candidate game link. Satisfied by
// *dedup.Resolver.
type LinkResolver interface {
	Resolve(item types.WorkItem, link types.GameLink) (dedup.Outcome, error)
}

// SessionControl is the lifecycle slice of the browser session the
// scheduler drives. Satisfied by *session.Handle.
type SessionControl interface {
	Open() error
	Close()
	Recycle(pause time.Duration) error
}

// MirrorChecker answers whether a partition is already published on
// the dataset mirror. Satisfied by *remote.Mirror.
type MirrorChecker interface {
	Exists(ctx context.Context, item types.WorkItem) (bool, error)
}

// PartitionChecker answers whether the local store already holds a
// partition. Satisfied by storage.Store.
type PartitionChecker interface {
	Exists(item types.WorkItem) (bool, error)
}

// Scheduler walks work items through one shared browser session. A
// failed item never aborts the run; the failure is folded into the
// summary and the walk continues.
type Scheduler struct {
	cfg      config.SchedulerConfig
	session  SessionControl
	lister   Lister
	resolver LinkResolver
	store    PartitionChecker
	mirror   MirrorChecker
	sink     notify.Sink
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New wires a Scheduler. store and mirror may be nil; sink and metrics
// may be nil-equivalent (NopSink, nil *Metrics).
func New(
	cfg config.SchedulerConfig,
	session SessionControl,
	lister Lister,
	resolver LinkResolver,
	store PartitionChecker,
	mirror MirrorChecker,
	sink notify.Sink,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Scheduler {
	if sink == nil {
		sink = notify.NopSink{}
	}
	return &Scheduler{
		cfg:      cfg,
		session:  session,
		lister:   lister,
		resolver: resolver,
		store:    store,
		mirror:   mirror,
		sink:     sink,
		metrics:  metrics,
		logger:   logger.With("component", "scheduler"),
	}
}

// RunScrape processes every work item and returns the run summary. The
// returned error is non-nil only when the run could not start at all.
func (s *Scheduler) RunScrape(ctx context.Context, items []types.WorkItem) (*types.RunSummary, error) {
	summary := &types.RunSummary{}

	// The session opens lazily: a run whose every item is already
	// stored or published never launches a browser at all.
	opened := false
	defer func() {
		if opened {
			s.session.Close()
		}
	}()

	for i, item := range items {
		if ctx.Err() != nil {
			s.logger.Warn("run cancelled", "remaining_items", len(items)-i)
			break
		}

		if s.skipComplete(ctx, item) {
			summary.ItemsSkipped++
			continue
		}

		if !opened {
			if err := s.session.Open(); err != nil {
				s.notifyEvent(ctx, notify.SeverityError, "Scrape run aborted", err.Error(), summary)
				return summary, err
			}
			opened = true
		}

		s.processItem(ctx, item, summary)
		summary.ItemsProcessed++

		if opened && s.cfg.TeardownBetweenItems && i < len(items)-1 {
			if err := s.session.Recycle(s.cfg.RecyclePause); err != nil {
				// The next remote operation reopens the session on its
				// own, so the walk continues.
				s.logger.Error("session rebuild between items failed", "error", err)
				s.notifyEvent(ctx, notify.SeverityWarning, "Session rebuild failed",
					"continuing; session reopens on next use", summary)
			}
		}
	}

	s.logger.Info("scrape run finished",
		"items_processed", summary.ItemsProcessed,
		"items_skipped", summary.ItemsSkipped,
		"games_captured", summary.GamesCaptured,
		"games_skipped", summary.GamesSkipped,
		"games_failed", summary.GamesFailed,
	)
	s.notifyEvent(ctx, notify.SeverityInfo, "Scrape run finished", "", summary)
	return summary, nil
}

// skipComplete reports whether a work item needs no browser work at
// all: its partition is already in the local store or already published
// on the dataset mirror. Check failures read as "not present": a broken
// store or mirror must not stall scraping.
func (s *Scheduler) skipComplete(ctx context.Context, item types.WorkItem) bool {
	if s.cfg.ForceRescrape {
		return false
	}

	if s.store != nil {
		stored, err := s.store.Exists(item)
		if err != nil {
			s.logger.Warn("store check failed, scraping anyway", "item", item.String(), "error", err)
		} else if stored {
			s.logger.Info("partition already stored, skipping", "item", item.String())
			s.metrics.IncSkipped("stored")
			return true
		}
	}

	if s.mirror != nil {
		published, err := s.mirror.Exists(ctx, item)
		if err != nil {
			s.logger.Warn("mirror check failed, scraping anyway", "item", item.String(), "error", err)
		} else if published {
			s.logger.Info("partition already published, skipping", "item", item.String())
			s.metrics.IncSkipped("remote")
			return true
		}
	}
	return false
}

// processItem loads one listing and resolves each of its links. The
// recycle counter is scoped to the item: only fresh fetches count,
// since transplants and skips never touch the browser.
func (s *Scheduler) processItem(ctx context.Context, item types.WorkItem, summary *types.RunSummary) {
	gamesSinceRecycle := 0

	result := s.lister.LoadListing(item)
	switch result.Status {
	case types.LoadNoListings:
		return
	case types.LoadStructuralError, types.LoadTransportError:
		s.logger.Warn("listing unavailable, item abandoned",
			"item", item.String(), "status", result.Status.String(), "error", result.Err)
		s.notifyEvent(ctx, notify.SeverityWarning, "Listing unavailable", item.String(), nil)
		return
	}

	s.logger.Info("processing item", "item", item.String(), "candidates", len(result.Links))

	for _, link := range result.Links {
		if ctx.Err() != nil {
			return
		}

		outcome, err := s.resolver.Resolve(item, link)
		switch outcome {
		case dedup.OutcomeFetched:
			summary.GamesCaptured++
			s.metrics.IncCaptured()
			gamesSinceRecycle++
		case dedup.OutcomeTransplanted:
			summary.GamesCaptured++
			s.metrics.IncCaptured()
			s.metrics.IncSkipped("duplicate")
		case dedup.OutcomeSkippedStored:
			summary.GamesSkipped++
			s.metrics.IncSkipped("stored")
		case dedup.OutcomeSkippedSameDivision:
			summary.GamesSkipped++
			s.metrics.IncSkipped("same_division")
		case dedup.OutcomeFailed:
			summary.GamesFailed++
			s.metrics.IncFailed()
			s.logger.Error("game abandoned", "item", item.String(), "link", string(link), "error", err)
		}

		// Preventive maintenance: long-lived sessions degrade, so the
		// browser is rebuilt after a fixed number of real fetches.
		if gamesSinceRecycle >= s.cfg.RecycleEvery {
			if err := s.session.Recycle(s.cfg.RecyclePause); err != nil {
				s.logger.Error("mid-item session recycle failed, item abandoned",
					"item", item.String(), "error", err)
				return
			}
			s.metrics.IncRecreation()
			gamesSinceRecycle = 0
		}
	}
}

// notifyEvent delivers a notification, swallowing delivery failures.
func (s *Scheduler) notifyEvent(ctx context.Context, severity notify.Severity, title, message string, summary *types.RunSummary) {
	if err := s.sink.Notify(ctx, notify.Event{
		Severity: severity,
		Title:    title,
		Message:  message,
		Summary:  summary,
	}); err != nil {
		s.logger.Warn("notification delivery failed", "title", title, "error", err)
	}
}
