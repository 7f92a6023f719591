package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsite/internal/cache"
	"eventsite/internal/clock"
	"eventsite/internal/config"
	"eventsite/internal/fetch"
	"eventsite/internal/ingest"
	"eventsite/internal/router"
)

type fixedClock time.Time

func (c fixedClock) Resolve(context.Context) (time.Time, string) {
	return time.Time(c), clock.SourceRemote
}

var reference = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const eventsDoc = `[
  {"id": "past", "title": "Old Talk", "tag": "Guest Talk", "event_time": 1735689600},
  {"id": "soon", "title": "Next Workshop", "tag": "Workshop", "event_time": 1780000000000}
]`

const teamDoc = `[
  {"id": "m2", "name": "Zed"},
  {"id": "m1", "name": "ada"}
]`

const formatsDoc = `[{"title": "Guest Talks", "description": "Invited speakers."}]`

func newServer(t *testing.T, fail map[string]bool) *httptest.Server {
	t.Helper()
	docs := map[string]string{
		"/events.json":  eventsDoc,
		"/team.json":    teamDoc,
		"/formats.json": formatsDoc,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail[r.URL.Path] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		body, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLoader(srv *httptest.Server) *Loader {
	return NewLoaderWith(
		fixedClock(reference),
		fetch.NewFetcher(5*time.Second, false),
		config.SourcesConfig{
			Events:  srv.URL + "/events.json",
			Team:    srv.URL + "/team.json",
			Formats: srv.URL + "/formats.json",
		},
		time.UTC,
	)
}

func TestLoadAllSources(t *testing.T) {
	site, rep := newLoader(newServer(t, nil)).Load(context.Background())

	require.True(t, rep.OK(), "failures: %v", rep.Err())
	assert.Equal(t, uint64(1), site.Generation)
	assert.Equal(t, clock.SourceRemote, site.TimeSource)
	assert.True(t, reference.Equal(site.Now))

	assert.Equal(t, 2, rep.Events)
	require.Len(t, site.Events.Upcoming(), 1)
	assert.Equal(t, "soon", site.Events.Upcoming()[0].ID)
	require.Len(t, site.Events.Past(), 1)
	assert.Equal(t, int64(1735689600000), site.Events.Past()[0].EventTime)

	assert.Len(t, site.Series.Events("Workshops"), 1)
	assert.Len(t, site.Series.Events("Guest Talks"), 1)

	members := site.Team.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "ada", members[0].Name)
	assert.Len(t, site.Formats, 1)
}

func TestFailingTeamLeavesEventsUsable(t *testing.T) {
	site, rep := newLoader(newServer(t, map[string]bool{"/team.json": true})).Load(context.Background())

	require.Len(t, rep.Failures, 1)
	assert.True(t, errors.Is(rep.Err(), ingest.ErrDataFetchFailed))

	f := site.Failure(cache.SourceTeam)
	require.NotNil(t, f)
	assert.Equal(t, ingest.MsgTeamUnavailable, f.UserMessage)
	var se *fetch.StatusError
	assert.True(t, errors.As(f, &se))

	assert.Empty(t, site.Team.Members())
	assert.Equal(t, 2, site.Events.Len())
	assert.Nil(t, site.Failure(cache.SourceEvents))
}

func TestFailingEventsLeavesTeamUsable(t *testing.T) {
	site, rep := newLoader(newServer(t, map[string]bool{"/events.json": true})).Load(context.Background())

	require.Len(t, rep.Failures, 2)
	assert.Equal(t, ingest.MsgEventsUnavailable, site.Failure(cache.SourceEvents).UserMessage)
	assert.Equal(t, ingest.MsgSeriesUnavailable, site.Failure(cache.SourceSeries).UserMessage)
	assert.Zero(t, site.Events.Len())
	assert.Len(t, site.Team.Members(), 2)
	assert.Len(t, site.Formats, 1)
}

func TestMalformedEventsDocumentFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	l := NewLoaderWith(fixedClock(reference), fetch.NewFetcher(time.Second, false),
		config.SourcesConfig{Events: srv.URL}, time.UTC)
	site, rep := l.Load(context.Background())

	assert.False(t, rep.OK())
	assert.NotNil(t, site.Failure(cache.SourceEvents))
	assert.Nil(t, site.Failure(cache.SourceTeam))
	assert.Empty(t, site.Team.Members())
}

func TestGenerationIncreases(t *testing.T) {
	l := newLoader(newServer(t, nil))
	first, _ := l.Load(context.Background())
	second, _ := l.Load(context.Background())
	assert.Greater(t, second.Generation, first.Generation)
}

func TestResolveInitialHash(t *testing.T) {
	site, _ := newLoader(newServer(t, nil)).Load(context.Background())

	r, err := Resolve(site, "#event=soon", nil)
	require.NoError(t, err)
	assert.True(t, r.State().Has(router.FrameEvent))

	r, err = Resolve(site, "#event=42", nil)
	assert.ErrorIs(t, err, router.ErrStaleReference)
	assert.False(t, r.State().HasModal())
	assert.Equal(t, router.PageHome, r.State().Page)
}
