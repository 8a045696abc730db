package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kmacleod/hoopsweep/internal/config"
	"github.com/kmacleod/hoopsweep/internal/dedup"
	"github.com/kmacleod/hoopsweep/internal/types"
)

// fakeSession counts lifecycle calls.
type fakeSession struct {
	opens      int
	closes     int
	recycles   int
	openErr    error
	recycleErr error
}

func (f *fakeSession) Open() error {
	f.opens++
	return f.openErr
}

func (f *fakeSession) Close() { f.closes++ }

func (f *fakeSession) Recycle(time.Duration) error {
	f.recycles++
	return f.recycleErr
}

// fakeLister serves a canned listing per item key.
type fakeLister struct {
	results map[string]types.ListingResult
}

func (f *fakeLister) LoadListing(item types.WorkItem) types.ListingResult {
	if r, ok := f.results[item.String()]; ok {
		return r
	}
	return types.ListingResult{Status: types.LoadNoListings, Err: types.ErrNoGamesPublished}
}

// fakeResolver returns scripted outcomes in order per item.
type fakeResolver struct {
	outcomes map[string][]dedup.Outcome
	calls    []string
}

func (f *fakeResolver) Resolve(item types.WorkItem, link types.GameLink) (dedup.Outcome, error) {
	f.calls = append(f.calls, item.String()+" "+string(link))
	key := item.String()
	if len(f.outcomes[key]) == 0 {
		return dedup.OutcomeFetched, nil
	}
	outcome := f.outcomes[key][0]
	f.outcomes[key] = f.outcomes[key][1:]
	if outcome == dedup.OutcomeFailed {
		return outcome, errors.New("scripted failure")
	}
	return outcome, nil
}

// fakeMirror answers presence per item key.
type fakeMirror struct {
	published map[string]bool
	err       error
}

func (f *fakeMirror) Exists(_ context.Context, item types.WorkItem) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.published[item.String()], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func schedCfg() config.SchedulerConfig {
	return config.SchedulerConfig{
		RecycleEvery:         20,
		TeardownBetweenItems: false,
		RecyclePause:         0,
	}
}

func dayItem(div types.Division, gender types.Gender) types.WorkItem {
	return types.WorkItem{
		Date:     time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Division: div,
		Gender:   gender,
	}
}

func links(ids ...string) []types.GameLink {
	out := make([]types.GameLink, len(ids))
	for i, id := range ids {
		out[i] = types.GameLink("https://stats.ncaa.org/contests/" + id + "/box_score")
	}
	return out
}

func TestGenerateWorkItemsOrder(t *testing.T) {
	dates := []time.Time{
		time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}
	items := GenerateWorkItems(dates, types.AllGenders, types.AllDivisions)

	if len(items) != 12 {
		t.Fatalf("items = %d, want 12", len(items))
	}
	// Division cycles fastest, then gender, then date; d1 always comes
	// before d2 and d3 within a (date, gender) block.
	if items[0].Division != types.DivisionOne || items[0].Gender != types.GenderMen {
		t.Errorf("items[0] = %s", items[0])
	}
	if items[2].Division != types.DivisionThree {
		t.Errorf("items[2] = %s, want d3", items[2])
	}
	if items[3].Gender != types.GenderWomen || items[3].Division != types.DivisionOne {
		t.Errorf("items[3] = %s, want women d1", items[3])
	}
	if !items[6].Date.Equal(dates[1]) {
		t.Errorf("items[6] date = %s, want second date", items[6].DateString())
	}
}

func TestDateRangeInclusive(t *testing.T) {
	start := time.Date(2025, 1, 30, 15, 4, 5, 0, time.UTC)
	end := time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC)

	dates := DateRange(start, end)
	if len(dates) != 4 {
		t.Fatalf("dates = %d, want 4", len(dates))
	}
	if dates[0].Day() != 30 || dates[3].Day() != 2 {
		t.Errorf("range = %v", dates)
	}
	if dates[0].Hour() != 0 {
		t.Error("dates must be truncated to midnight")
	}
}

func TestRunScrapeCountsOutcomes(t *testing.T) {
	item := dayItem(types.DivisionOne, types.GenderWomen)
	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links("1", "2", "3", "4")},
	}}
	resolver := &fakeResolver{outcomes: map[string][]dedup.Outcome{
		item.String(): {
			dedup.OutcomeFetched,
			dedup.OutcomeTransplanted,
			dedup.OutcomeSkippedStored,
			dedup.OutcomeFailed,
		},
	}}

	s := New(schedCfg(), session, lister, resolver, nil, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{item})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	if summary.ItemsProcessed != 1 {
		t.Errorf("ItemsProcessed = %d, want 1", summary.ItemsProcessed)
	}
	if summary.GamesCaptured != 2 {
		t.Errorf("GamesCaptured = %d, want 2 (fetched + transplanted)", summary.GamesCaptured)
	}
	if summary.GamesSkipped != 1 {
		t.Errorf("GamesSkipped = %d, want 1", summary.GamesSkipped)
	}
	if summary.GamesFailed != 1 {
		t.Errorf("GamesFailed = %d, want 1", summary.GamesFailed)
	}
	if session.opens != 1 || session.closes != 1 {
		t.Errorf("session opens/closes = %d/%d, want 1/1", session.opens, session.closes)
	}
}

func TestRunScrapeFailedItemDoesNotAbortRun(t *testing.T) {
	broken := dayItem(types.DivisionOne, types.GenderWomen)
	healthy := dayItem(types.DivisionTwo, types.GenderWomen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		broken.String():  {Status: types.LoadTransportError, Err: errors.New("down")},
		healthy.String(): {Status: types.LoadOK, Links: links("7")},
	}}
	resolver := &fakeResolver{}

	s := New(schedCfg(), session, lister, resolver, nil, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{broken, healthy})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	if summary.ItemsProcessed != 2 {
		t.Errorf("ItemsProcessed = %d, want 2 (broken item still walked)", summary.ItemsProcessed)
	}
	if summary.GamesCaptured != 1 {
		t.Errorf("GamesCaptured = %d, want 1 from the healthy item", summary.GamesCaptured)
	}
	if len(resolver.calls) != 1 {
		t.Errorf("resolver calls = %v, want only the healthy item's link", resolver.calls)
	}
}

func TestRunScrapeRecyclesAfterN(t *testing.T) {
	item := dayItem(types.DivisionOne, types.GenderMen)

	ids := make([]string, 7)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links(ids...)},
	}}
	resolver := &fakeResolver{} // every link resolves as a real fetch

	cfg := schedCfg()
	cfg.RecycleEvery = 3
	s := New(cfg, session, lister, resolver, nil, nil, nil, nil, testLogger())
	if _, err := s.RunScrape(context.Background(), []types.WorkItem{item}); err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	// 7 fetches with a recycle threshold of 3: after games 3 and 6.
	if session.recycles != 2 {
		t.Errorf("recycles = %d, want 2", session.recycles)
	}
}

func TestRunScrapeSkipsPublishedPartitions(t *testing.T) {
	published := dayItem(types.DivisionOne, types.GenderWomen)
	fresh := dayItem(types.DivisionTwo, types.GenderWomen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		published.String(): {Status: types.LoadOK, Links: links("1")},
		fresh.String():     {Status: types.LoadOK, Links: links("2")},
	}}
	resolver := &fakeResolver{}
	mirror := &fakeMirror{published: map[string]bool{published.String(): true}}

	s := New(schedCfg(), session, lister, resolver, nil, mirror, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{published, fresh})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	if summary.ItemsSkipped != 1 || summary.ItemsProcessed != 1 {
		t.Errorf("items skipped/processed = %d/%d, want 1/1",
			summary.ItemsSkipped, summary.ItemsProcessed)
	}
	if len(resolver.calls) != 1 {
		t.Errorf("resolver calls = %v, want only the fresh item", resolver.calls)
	}
}

func TestRunScrapeMirrorFailureScrapesAnyway(t *testing.T) {
	item := dayItem(types.DivisionOne, types.GenderWomen)
	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links("1")},
	}}
	resolver := &fakeResolver{}
	mirror := &fakeMirror{err: errors.New("mirror down")}

	s := New(schedCfg(), session, lister, resolver, nil, mirror, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{item})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}
	if summary.ItemsProcessed != 1 || summary.ItemsSkipped != 0 {
		t.Errorf("mirror failure must not skip the item: %+v", summary)
	}
}

func TestRunScrapeTeardownBetweenItems(t *testing.T) {
	a := dayItem(types.DivisionOne, types.GenderMen)
	b := dayItem(types.DivisionTwo, types.GenderMen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{}}
	resolver := &fakeResolver{}

	cfg := schedCfg()
	cfg.TeardownBetweenItems = true
	s := New(cfg, session, lister, resolver, nil, nil, nil, nil, testLogger())
	if _, err := s.RunScrape(context.Background(), []types.WorkItem{a, b}); err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	// One rebuild between two items, none after the last.
	if session.recycles != 1 {
		t.Errorf("recycles = %d, want 1", session.recycles)
	}
}

func TestRunScrapeRebuildFailureDoesNotAbortRun(t *testing.T) {
	a := dayItem(types.DivisionOne, types.GenderMen)
	b := dayItem(types.DivisionTwo, types.GenderMen)
	c := dayItem(types.DivisionThree, types.GenderMen)

	session := &fakeSession{recycleErr: errors.New("chromium launch failed")}
	lister := &fakeLister{results: map[string]types.ListingResult{
		a.String(): {Status: types.LoadOK, Links: links("1")},
		b.String(): {Status: types.LoadOK, Links: links("2")},
		c.String(): {Status: types.LoadOK, Links: links("3")},
	}}
	resolver := &fakeResolver{}

	cfg := schedCfg()
	cfg.TeardownBetweenItems = true
	s := New(cfg, session, lister, resolver, nil, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{a, b, c})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	// A failed rebuild between items costs nothing beyond the next
	// item's first remote call; the whole list is still walked.
	if summary.ItemsProcessed != 3 {
		t.Errorf("ItemsProcessed = %d, want 3", summary.ItemsProcessed)
	}
	if summary.GamesCaptured != 3 {
		t.Errorf("GamesCaptured = %d, want 3", summary.GamesCaptured)
	}
	if len(resolver.calls) != 3 {
		t.Errorf("resolver calls = %v, want all three items' links", resolver.calls)
	}
}

func TestRunScrapeRecycleCounterScopedToItem(t *testing.T) {
	a := dayItem(types.DivisionOne, types.GenderMen)
	b := dayItem(types.DivisionTwo, types.GenderMen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		a.String(): {Status: types.LoadOK, Links: links("1", "2")},
		b.String(): {Status: types.LoadOK, Links: links("3", "4")},
	}}
	resolver := &fakeResolver{}

	cfg := schedCfg() // no teardown between items
	cfg.RecycleEvery = 3
	s := New(cfg, session, lister, resolver, nil, nil, nil, nil, testLogger())
	if _, err := s.RunScrape(context.Background(), []types.WorkItem{a, b}); err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	// Two fetches per item never reach the threshold of three; the
	// counter must not carry over from one item to the next.
	if session.recycles != 0 {
		t.Errorf("recycles = %d, want 0", session.recycles)
	}
}

func TestRunScrapeSessionOpenFailure(t *testing.T) {
	session := &fakeSession{openErr: errors.New("no chromium")}
	s := New(schedCfg(), session, &fakeLister{}, &fakeResolver{}, nil, nil, nil, nil, testLogger())

	item := dayItem(types.DivisionOne, types.GenderMen)
	if _, err := s.RunScrape(context.Background(), []types.WorkItem{item}); err == nil {
		t.Fatal("expected error when the session cannot open")
	}
}

// fakeStore answers local partition presence per item key.
type fakeStore struct {
	stored map[string]bool
}

func (f *fakeStore) Exists(item types.WorkItem) (bool, error) {
	return f.stored[item.String()], nil
}

func TestRunScrapeStoredPartitionSkipsSessionEntirely(t *testing.T) {
	item := dayItem(types.DivisionTwo, types.GenderWomen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links("1")},
	}}
	store := &fakeStore{stored: map[string]bool{item.String(): true}}

	s := New(schedCfg(), session, lister, &fakeResolver{}, store, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{item})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	if summary.ItemsSkipped != 1 || summary.ItemsProcessed != 0 {
		t.Errorf("items skipped/processed = %d/%d, want 1/0",
			summary.ItemsSkipped, summary.ItemsProcessed)
	}
	// A fully stored run never touches the browser.
	if session.opens != 0 {
		t.Errorf("session opened %d times, want 0", session.opens)
	}
}

func TestRunScrapeForceBypassesPartitionSkips(t *testing.T) {
	item := dayItem(types.DivisionTwo, types.GenderWomen)

	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links("1")},
	}}
	store := &fakeStore{stored: map[string]bool{item.String(): true}}

	cfg := schedCfg()
	cfg.ForceRescrape = true
	s := New(cfg, session, lister, &fakeResolver{}, store, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(context.Background(), []types.WorkItem{item})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}
	if summary.ItemsProcessed != 1 || summary.GamesCaptured != 1 {
		t.Errorf("force rescrape did not process the stored item: %+v", summary)
	}
}

func TestRunDiscoveryMapsDivisionsAndGenders(t *testing.T) {
	d1 := dayItem(types.DivisionOne, types.GenderWomen)
	d2 := dayItem(types.DivisionTwo, types.GenderWomen)
	d3 := dayItem(types.DivisionThree, types.GenderWomen)
	m1 := dayItem(types.DivisionOne, types.GenderMen)

	shared := links("42")[0]
	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		d1.String(): {Status: types.LoadOK, Links: []types.GameLink{shared, links("1")[0]}},
		d2.String(): {Status: types.LoadOK, Links: []types.GameLink{shared}},
		d3.String(): {Status: types.LoadNoListings, Err: types.ErrNoGamesPublished},
		m1.String(): {Status: types.LoadOK, Links: []types.GameLink{shared}},
	}}

	s := New(schedCfg(), session, lister, &fakeResolver{}, nil, nil, nil, nil, testLogger())
	artifact, err := s.RunDiscovery(context.Background(), []types.WorkItem{d1, d2, d3, m1})
	if err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}

	if len(artifact.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(artifact.Entries))
	}
	dups := artifact.Duplicates()
	if len(dups) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(dups))
	}
	if dups[0].Link != shared || dups[0].GameID != "42" {
		t.Errorf("duplicate entry = %+v", dups[0])
	}
	if !dups[0].IsDuplicate {
		t.Error("cross-division entry not flagged as duplicate")
	}
	if len(dups[0].Divisions) != 2 ||
		dups[0].Divisions[0] != types.DivisionOne ||
		dups[0].Divisions[1] != types.DivisionTwo {
		t.Errorf("divisions = %v, want [d1 d2] in visit order", dups[0].Divisions)
	}
	if dups[0].PrimaryDivision != types.DivisionOne || dups[0].PrimaryGender != types.GenderWomen {
		t.Errorf("primary = (%s, %s), want (d1, women)",
			dups[0].PrimaryDivision, dups[0].PrimaryGender)
	}
	if len(dups[0].Genders) != 2 ||
		dups[0].Genders[0] != types.GenderWomen ||
		dups[0].Genders[1] != types.GenderMen {
		t.Errorf("genders = %v, want [women men] in visit order", dups[0].Genders)
	}
	if len(artifact.Dates) != 1 || artifact.Dates[0] != "2025-01-05" {
		t.Errorf("dates = %v", artifact.Dates)
	}
	if session.opens != 1 || session.closes != 1 {
		t.Errorf("session opens/closes = %d/%d", session.opens, session.closes)
	}
}

func TestRunScrapeRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	item := dayItem(types.DivisionOne, types.GenderMen)
	session := &fakeSession{}
	lister := &fakeLister{results: map[string]types.ListingResult{
		item.String(): {Status: types.LoadOK, Links: links("1")},
	}}
	resolver := &fakeResolver{}

	s := New(schedCfg(), session, lister, resolver, nil, nil, nil, nil, testLogger())
	summary, err := s.RunScrape(ctx, []types.WorkItem{item})
	if err != nil {
		t.Fatalf("RunScrape: %v", err)
	}
	if summary.ItemsProcessed != 0 || len(resolver.calls) != 0 {
		t.Error("cancelled run must not process items")
	}
}
