// Package cache holds the immutable, load-scoped entity stores the router
// and renderer read from.
//
// A Site is built once per data load and never mutated afterwards; a reload
// builds a new Site. Slices returned by accessors are shared and must not
// be modified by callers.
package cache

import (
	"time"

	"eventsite/internal/ingest"
	"eventsite/internal/model"
	"eventsite/internal/series"
)

// Data source names.
const (
	SourceEvents  = "events"
	SourceTeam    = "team"
	SourceFormats = "formats"
	// SourceSeries fails together with SourceEvents; it carries the
	// message for the series region.
	SourceSeries = "series"
)

// EventStore indexes normalized events by id and keeps the time-ordered listings.
type EventStore struct {
	byID     map[string]model.Event
	all      []model.Event
	upcoming []model.Event
	past     []model.Event
}

// NewEventStore builds a store from an ingestion result.
func NewEventStore(res ingest.Result) *EventStore {
	s := &EventStore{
		byID:     make(map[string]model.Event, len(res.Events)),
		all:      res.Events,
		upcoming: res.Upcoming,
		past:     res.Past,
	}
	for _, ev := range res.Events {
		s.byID[ev.ID] = ev
	}
	return s
}

// Get looks up an event by id. A nil store has no events.
func (s *EventStore) Get(id string) (model.Event, bool) {
	if s == nil {
		return model.Event{}, false
	}
	ev, ok := s.byID[id]
	return ev, ok
}

func (s *EventStore) All() []model.Event {
	if s == nil {
		return nil
	}
	return s.all
}

// Upcoming is sorted ascending by event time.
func (s *EventStore) Upcoming() []model.Event {
	if s == nil {
		return nil
	}
	return s.upcoming
}

// Past is sorted descending by event time.
func (s *EventStore) Past() []model.Event {
	if s == nil {
		return nil
	}
	return s.past
}

func (s *EventStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.all)
}

// TeamStore indexes team members by id, keeping name order.
type TeamStore struct {
	byID    map[string]model.TeamMember
	members []model.TeamMember
}

// NewTeamStore builds a store from members already sorted for display.
// Duplicate ids resolve to the later member.
func NewTeamStore(members []model.TeamMember) *TeamStore {
	s := &TeamStore{
		byID:    make(map[string]model.TeamMember, len(members)),
		members: members,
	}
	for _, m := range members {
		s.byID[m.ID] = m
	}
	return s
}

func (s *TeamStore) Get(id string) (model.TeamMember, bool) {
	if s == nil {
		return model.TeamMember{}, false
	}
	m, ok := s.byID[id]
	return m, ok
}

func (s *TeamStore) Members() []model.TeamMember {
	if s == nil {
		return nil
	}
	return s.members
}

// SeriesCache maps series titles to their events, sorted descending.
type SeriesCache struct {
	catalog []model.Series
	events  map[string][]model.Event
}

// NewSeriesCache wraps the per-series listings produced by ingestion.
// A nil map yields a cache where every series is empty.
func NewSeriesCache(bound map[string][]model.Event) *SeriesCache {
	if bound == nil {
		bound = map[string][]model.Event{}
	}
	return &SeriesCache{catalog: series.All(), events: bound}
}

// Series returns the fixed catalog in display order.
func (c *SeriesCache) Series() []model.Series {
	if c == nil {
		return series.All()
	}
	return c.catalog
}

// Find looks up a series by title.
func (c *SeriesCache) Find(title string) (model.Series, bool) {
	for _, s := range c.Series() {
		if s.Title == title {
			return s, true
		}
	}
	return model.Series{}, false
}

// Events returns the events of the titled series (possibly empty).
func (c *SeriesCache) Events(title string) []model.Event {
	if c == nil {
		return nil
	}
	return c.events[title]
}

// Site is the context object owning every store of one data load.
type Site struct {
	// Generation increases with every reload.
	Generation uint64
	// Now is the reference time events were classified against.
	Now      time.Time
	Location *time.Location
	// TimeSource is "remote" or "local".
	TimeSource string

	Events  *EventStore
	Team    *TeamStore
	Series  *SeriesCache
	Formats []model.EventFormat

	// Failures holds the per-source load failures of this generation.
	Failures map[string]*ingest.IngestionFailed
}

// Failure returns the load failure of source, or nil.
func (s *Site) Failure(source string) *ingest.IngestionFailed {
	if s == nil || s.Failures == nil {
		return nil
	}
	return s.Failures[source]
}

// Event implements router lookups.
func (s *Site) Event(id string) (model.Event, bool) {
	if s == nil {
		return model.Event{}, false
	}
	return s.Events.Get(id)
}

// Member implements router lookups.
func (s *Site) Member(id string) (model.TeamMember, bool) {
	if s == nil {
		return model.TeamMember{}, false
	}
	return s.Team.Get(id)
}

// HasSeries implements router lookups.
func (s *Site) HasSeries(title string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Series.Find(title)
	return ok
}
