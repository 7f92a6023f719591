// Package bootstrap builds a cache.Site from the configured documents.
//
// The reference time and the three documents are obtained concurrently.
// Each task records its own failure; a failed source never blocks or
// corrupts the others. Events are classified once both the clock and the
// events document are available.
package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"eventsite/internal/cache"
	"eventsite/internal/clock"
	"eventsite/internal/config"
	"eventsite/internal/fetch"
	"eventsite/internal/ingest"
	appLog "eventsite/internal/log"
	"eventsite/internal/metrics"
	"eventsite/internal/model"
	"eventsite/internal/router"
	"eventsite/internal/series"
)

// TimeSource resolves the reference time. clock.Resolver implements it.
type TimeSource interface {
	Resolve(ctx context.Context) (time.Time, string)
}

// DocumentSource reads a document by location. fetch.Fetcher implements it.
type DocumentSource interface {
	Fetch(ctx context.Context, location string) (fetch.Document, error)
}

// Report summarizes one load.
type Report struct {
	Generation uint64
	Duration   time.Duration
	TimeSource string

	Events    int
	Upcoming  int
	Past      int
	Team      int
	Formats   int
	Malformed int

	Failures []*ingest.IngestionFailed
}

// OK reports whether every source loaded.
func (r Report) OK() bool { return len(r.Failures) == 0 }

// Err joins the per-source failures, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Loader builds successive Site generations. It is safe for concurrent use.
type Loader struct {
	clock   TimeSource
	docs    DocumentSource
	sources config.SourcesConfig
	loc     *time.Location

	gen atomic.Uint64
}

// NewLoader wires the clock resolver and document fetcher from cfg.
func NewLoader(cfg *config.Config) *Loader {
	return NewLoaderWith(
		clock.NewResolver(cfg.TimeService.URL, cfg.TimeService.Timeout),
		fetch.NewFetcher(cfg.FetchTimeout, cfg.Sources.CacheBust),
		cfg.Sources,
		cfg.Location(),
	)
}

// NewLoaderWith builds a Loader from explicit parts.
func NewLoaderWith(ts TimeSource, docs DocumentSource, sources config.SourcesConfig, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{clock: ts, docs: docs, sources: sources, loc: loc}
}

// Load runs one full load. It always returns a usable Site; failed sources
// are empty and recorded in Site.Failures and the Report.
func (l *Loader) Load(ctx context.Context) (*cache.Site, Report) {
	start := time.Now()

	var (
		now        time.Time
		timeSource string

		rawEvents []ingest.RawEvent
		team      []model.TeamMember
		formats   []model.EventFormat

		eventsErr, teamErr, formatsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		now, timeSource = l.clock.Resolve(ctx)
		return nil
	})
	g.Go(func() error {
		rawEvents, eventsErr = l.loadEvents(ctx)
		return nil
	})
	g.Go(func() error {
		team, teamErr = l.loadTeam(ctx)
		return nil
	})
	g.Go(func() error {
		formats, formatsErr = l.loadFormats(ctx)
		return nil
	})
	_ = g.Wait()

	site := &cache.Site{
		Generation: l.gen.Add(1),
		Now:        now,
		Location:   l.loc,
		TimeSource: timeSource,
		Failures:   map[string]*ingest.IngestionFailed{},
	}
	rep := Report{Generation: site.Generation, TimeSource: timeSource}

	fail := func(f *ingest.IngestionFailed) {
		site.Failures[f.Source] = f
		rep.Failures = append(rep.Failures, f)
		metrics.TrackSourceFailure(f.Source)
		appLog.Error("data source failed", f.Err, "source", f.Source)
	}

	var res ingest.Result
	if eventsErr != nil {
		fail(ingest.Failed(cache.SourceEvents, ingest.MsgEventsUnavailable, eventsErr))
		fail(ingest.Failed(cache.SourceSeries, ingest.MsgSeriesUnavailable, eventsErr))
	} else {
		res = ingest.Ingest(rawEvents, ingest.Options{Now: now, Location: l.loc, Series: series.All()})
	}
	site.Events = cache.NewEventStore(res)
	site.Series = cache.NewSeriesCache(res.Series)

	if teamErr != nil {
		fail(ingest.Failed(cache.SourceTeam, ingest.MsgTeamUnavailable, teamErr))
		team = nil
	}
	site.Team = cache.NewTeamStore(team)

	if formatsErr != nil {
		fail(ingest.Failed(cache.SourceFormats, ingest.MsgFormatsUnavailable, formatsErr))
		formats = nil
	}
	site.Formats = formats

	rep.Duration = time.Since(start)
	rep.Events = site.Events.Len()
	rep.Upcoming = len(site.Events.Upcoming())
	rep.Past = len(site.Events.Past())
	rep.Team = len(site.Team.Members())
	rep.Formats = len(site.Formats)
	rep.Malformed = res.Malformed

	metrics.TrackLoad(rep.Duration, site.Generation)
	metrics.TrackTimeSource(timeSource)
	metrics.TrackMalformed(res.Malformed)
	metrics.SetRecords("events", rep.Events)
	metrics.SetRecords("team", rep.Team)
	metrics.SetRecords("formats", rep.Formats)

	appLog.Info("site loaded",
		"generation", site.Generation,
		"time_source", timeSource,
		"events", rep.Events,
		"team", rep.Team,
		"formats", rep.Formats,
		"failures", len(rep.Failures),
		"duration", rep.Duration.String(),
	)
	return site, rep
}

func (l *Loader) loadEvents(ctx context.Context) ([]ingest.RawEvent, error) {
	doc, err := l.docs.Fetch(ctx, l.sources.Events)
	if err != nil {
		return nil, err
	}
	return ingest.DecodeEvents(doc.Body)
}

// An unset team or formats source loads as empty without failing.
func (l *Loader) loadTeam(ctx context.Context) ([]model.TeamMember, error) {
	if l.sources.Team == "" {
		return nil, nil
	}
	doc, err := l.docs.Fetch(ctx, l.sources.Team)
	if err != nil {
		return nil, err
	}
	return ingest.DecodeTeam(doc.Body)
}

func (l *Loader) loadFormats(ctx context.Context) ([]model.EventFormat, error) {
	if l.sources.Formats == "" {
		return nil, nil
	}
	doc, err := l.docs.Fetch(ctx, l.sources.Formats)
	if err != nil {
		return nil, err
	}
	return ingest.DecodeFormats(doc.Body)
}

// Resolve builds a router over site and applies the initial hash. The
// returned error is the non-fatal routing outcome; the router is always usable.
func Resolve(site *cache.Site, hash string, surface router.Surface, opts ...router.Option) (*router.Router, error) {
	r := router.New(site, surface, opts...)
	return r, r.HandleHash(hash)
}
