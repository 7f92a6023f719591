package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsite/internal/model"
)

var now = time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)

func raw(id, tag string, eventTime string) RawEvent {
	return RawEvent{ID: id, Title: "Talk " + id, Tag: tag, EventTime: json.RawMessage(eventTime)}
}

func TestParseEventTime(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		bad  bool
	}{
		{in: "1760961600", want: 1760961600000},
		{in: "1760961600000", want: 1760961600000},
		{in: "1760961600.5", want: 1760961600500},
		{in: "0", want: 0},
		{in: `"1760961600"`, bad: true},
		{in: "null", bad: true},
		{in: "", bad: true},
		{in: "true", bad: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseEventTime(json.RawMessage(tc.in))
			if tc.bad {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeMillisIdempotent(t *testing.T) {
	for _, v := range []int64{0, 100000000, 999999999, 1760961600, 9999999999, 10000000000, 1760961600000} {
		once := NormalizeMillis(v)
		assert.Equal(t, once, NormalizeMillis(once), "value %d", v)
	}
}

func TestNormalizeMillisSmallValuesRescale(t *testing.T) {
	assert.Equal(t, int64(5000), NormalizeMillis(5))
	assert.Equal(t, int64(5_000_000), NormalizeMillis(NormalizeMillis(5)))

	// 10^7 is the smallest value that is stable after one scaling.
	assert.Equal(t, int64(10_000_000_000), NormalizeMillis(10_000_000))
	assert.Equal(t, int64(10_000_000_000), NormalizeMillis(NormalizeMillis(10_000_000)))
	assert.Equal(t, int64(-10_000_000_000), NormalizeMillis(NormalizeMillis(-10_000_000)))
}

func TestDecodeEventsKeepsWrongTypedRecord(t *testing.T) {
	body := []byte(`[
		{"id":"good","title":"Open Workshop","tag":"Workshop","event_time":1760961600},
		{"id":"bad","title":"Panel","tag":5,"event_time":1760961600}
	]`)
	raws, err := DecodeEvents(body)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.False(t, raws[0].malformed)
	assert.True(t, raws[1].malformed)
	assert.Equal(t, "bad", raws[1].ID)
	assert.Equal(t, "Panel", raws[1].Title)
	assert.Empty(t, raws[1].Tag)

	res := Ingest(raws, Options{Now: now})
	require.Len(t, res.Events, 2)
	assert.Equal(t, 1, res.Malformed)
	assert.Equal(t, int64(1760961600000), res.Events[1].EventTime)
}

func TestDecodeTeamKeepsWrongTypedRecord(t *testing.T) {
	team, err := DecodeTeam([]byte(`[{"id":"a","name":"Ada"},{"id":"b","name":"Bea","role":7}]`))
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, "Bea", team[1].Name)
	assert.Empty(t, team[1].Role)
}

func TestIsPastBoundary(t *testing.T) {
	nowMs := now.UnixMilli()
	assert.False(t, IsPast(nowMs-7_200_000, nowMs), "ending exactly now is not past")
	assert.True(t, IsPast(nowMs-7_200_001, nowMs))
	assert.False(t, IsPast(nowMs, nowMs))
	assert.False(t, IsPast(nowMs+1, nowMs))
}

func TestClassifyDisplayStrings(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ms := time.Date(2025, 10, 20, 10, 0, 0, 0, loc).UnixMilli()
	c := Classify(ms, "Zoom", now.UnixMilli(), loc)

	assert.Equal(t, "October 20, 2025", c.DateDisplay)
	assert.Equal(t, "10:00 AM EDT", c.TimeDisplay)
	assert.Equal(t, "October 20, 2025 at 10:00 AM EDT", c.DateTimeFull)
	assert.Equal(t, "Zoom", c.LocationDisplay)
}

func TestIngestPartitionsAndSorts(t *testing.T) {
	h := int64(time.Hour / time.Millisecond)
	nowMs := now.UnixMilli()
	ms := func(offset int64) string { return fmt.Sprint(nowMs + offset) }

	raws := []RawEvent{
		raw("u2", "Workshop", ms(48*h)),
		raw("p1", "Guest Talk", ms(-72*h)),
		raw("u1", "workshop", ms(24*h)),
		raw("p2", "Panel", ms(-3*h)),
		raw("running", "Guest Talk", ms(-1*h)),
		raw("bad", "Workshop", `"soon"`),
	}

	res := Ingest(raws, Options{Now: now})

	assert.Len(t, res.Events, 6)
	assert.Equal(t, 1, res.Malformed)
	assert.Equal(t, []string{"running", "u1", "u2"}, ids(res.Upcoming))
	assert.Equal(t, []string{"p2", "p1", "bad"}, ids(res.Past))

	for i := 1; i < len(res.Upcoming); i++ {
		assert.LessOrEqual(t, res.Upcoming[i-1].EventTime, res.Upcoming[i].EventTime)
	}
	for i := 1; i < len(res.Past); i++ {
		assert.GreaterOrEqual(t, res.Past[i-1].EventTime, res.Past[i].EventTime)
	}

	// The repaired record keeps its place with epoch 0.
	bad := res.Events[5]
	assert.Equal(t, "bad", bad.ID)
	assert.Equal(t, int64(0), bad.EventTime)
	assert.True(t, bad.Classification.IsPast)
}

func TestIngestBindsSeries(t *testing.T) {
	h := int64(time.Hour / time.Millisecond)
	nowMs := now.UnixMilli()
	ms := func(offset int64) string { return fmt.Sprint(nowMs + offset) }

	raws := []RawEvent{
		raw("w1", "Workshop", ms(-100*h)),
		raw("w2", "WORKSHOP", ms(100*h)),
		raw("g1", "Guest Talk", ms(-5*h)),
		raw("x1", "Panel", ms(5*h)),
	}
	res := Ingest(raws, Options{Now: now})

	require.Len(t, res.Series, 5)
	assert.Equal(t, []string{"w2", "w1"}, ids(res.Series["Workshops"]))
	assert.Equal(t, []string{"g1"}, ids(res.Series["Guest Talks"]))
	assert.Empty(t, res.Series["Nascent Research"])
	assert.NotNil(t, res.Series["Nascent Research"])

	for title, evs := range res.Series {
		for _, ev := range evs {
			assert.NotEqual(t, "x1", ev.ID, "unmatched event bound to %s", title)
		}
	}
}

func TestIngestDuplicateIDLastWriteWins(t *testing.T) {
	first := raw("dup", "Workshop", "1760961600")
	second := raw("dup", "Workshop", "1760961600")
	second.Title = "Newer"

	res := Ingest([]RawEvent{first, raw("other", "", "1760961600"), second}, Options{Now: now})

	require.Len(t, res.Events, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "Newer", res.Events[0].Title)
}

func TestIngestPrefersDescriptionHTML(t *testing.T) {
	r := raw("1", "", "1760961600")
	r.Description = "plain"
	r.DescriptionHTML = "<p>rich</p>"
	res := Ingest([]RawEvent{r}, Options{Now: now})
	assert.Equal(t, "<p>rich</p>", res.Events[0].Description)
	assert.NotNil(t, res.Events[0].Speakers)
}

func TestDecodeTeamSortsByName(t *testing.T) {
	body := []byte(`[{"id":"b","name":"bea"},{"id":"a","name":"Álvaro"},{"id":"z","name":"Zoe"},{"id":"c","name":"Carl"}]`)
	team, err := DecodeTeam(body)
	require.NoError(t, err)

	names := make([]string, 0, len(team))
	for _, m := range team {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Álvaro", "bea", "Carl", "Zoe"}, names)
}

func TestDecodeRejectsNonArrays(t *testing.T) {
	_, err := DecodeEvents([]byte(`{"events":[]}`))
	assert.Error(t, err)
	_, err = DecodeFormats([]byte(``))
	assert.Error(t, err)

	formats, err := DecodeFormats([]byte(`[{"title":"Talks","description":"d","cta":{"text":"Apply","badge":true}}]`))
	require.NoError(t, err)
	require.Len(t, formats, 1)
	assert.True(t, formats[0].CTA.Badge)
}

func TestIngestionFailedMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", Failed("events", MsgEventsUnavailable, errors.New("404")))

	assert.ErrorIs(t, err, ErrDataFetchFailed)
	var f *IngestionFailed
	require.ErrorAs(t, err, &f)
	assert.Equal(t, MsgEventsUnavailable, f.UserMessage)
}

func ids(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.ID)
	}
	return out
}
