package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsite/internal/model"
)

func fixedExporter() *Exporter {
	x := NewExporter("https://events.example.org/", "Events")
	x.stamp = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return x
}

func TestCalendarRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	events := []model.Event{
		{
			ID:          "E1",
			Title:       "Scaling Laws",
			Location:    "Collins Conference Room",
			Description: "<p>First &amp; foremost</p><p>Second</p>",
			EventTime:   start.UnixMilli(),
			Speakers:    []model.Speaker{{Name: "Ada Lovelace"}},
		},
		{ID: "broken", Title: "No time"},
	}

	out, err := fixedExporter().Calendar(events)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ve := cal.Events()[0]
	assert.Equal(t, "E1@events.example.org", ve.Id())
	assert.Equal(t, "Scaling Laws", ve.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "https://events.example.org/#event=E1", ve.GetProperty(ical.ComponentPropertyUrl).Value)

	gotStart, err := ve.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(gotStart))
	gotEnd, err := ve.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, gotEnd.Sub(gotStart))
}

func TestSingleEventRequiresStartTime(t *testing.T) {
	_, err := fixedExporter().Event(model.Event{ID: "x"})
	assert.True(t, errors.Is(err, ErrNoSchedulableEvents))

	_, err = fixedExporter().Calendar([]model.Event{{ID: "x"}})
	assert.ErrorIs(t, err, ErrNoSchedulableEvents)

	out, err := fixedExporter().Calendar(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello\nWorld & co", PlainText("<b>Hello</b><br/>World &amp; co"))
	assert.Equal(t, "a\n\nb", PlainText("a</p>\n\n\n<p>b"))
	assert.Empty(t, PlainText("  "))
}
