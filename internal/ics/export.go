// Package ics exports events as iCalendar documents.
package ics

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"eventsite/internal/ingest"
	"eventsite/internal/model"
	"eventsite/internal/router"
)

const productID = "-//eventsite//events//EN"

// ErrNoSchedulableEvents is returned when nothing has a usable start time.
var ErrNoSchedulableEvents = errors.New("ics: no schedulable events")

// Exporter builds calendars whose event URLs point back at the site.
type Exporter struct {
	publicURL string
	host      string
	name      string
	// stamp is the DTSTAMP source.
	stamp func() time.Time
}

// NewExporter returns an exporter for the site served at publicURL.
func NewExporter(publicURL, name string) *Exporter {
	host := "eventsite"
	if u, err := url.Parse(publicURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return &Exporter{publicURL: publicURL, host: host, name: name, stamp: time.Now}
}

// Calendar serializes every event with a usable start time. Events whose
// timestamp was repaired to 0 are left out.
func (x *Exporter) Calendar(events []model.Event) (string, error) {
	cal := x.newCalendar()
	n := 0
	for _, ev := range events {
		if ev.EventTime <= 0 {
			continue
		}
		x.addEvent(cal, ev)
		n++
	}
	if n == 0 && len(events) > 0 {
		return "", ErrNoSchedulableEvents
	}
	return cal.Serialize(), nil
}

// Event serializes a single event.
func (x *Exporter) Event(ev model.Event) (string, error) {
	if ev.EventTime <= 0 {
		return "", ErrNoSchedulableEvents
	}
	cal := x.newCalendar()
	x.addEvent(cal, ev)
	return cal.Serialize(), nil
}

func (x *Exporter) newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if x.name != "" {
		cal.SetName(x.name)
		cal.SetXWRCalName(x.name)
	}
	return cal
}

func (x *Exporter) addEvent(cal *ical.Calendar, ev model.Event) {
	start := time.UnixMilli(ev.EventTime).UTC()

	ve := cal.AddEvent(ev.ID + "@" + x.host)
	ve.SetDtStampTime(x.stamp().UTC())
	ve.SetStartAt(start)
	ve.SetEndAt(start.Add(ingest.AssumedDuration))
	ve.SetSummary(ev.Title)
	if loc := strings.TrimSpace(ev.Location); loc != "" {
		ve.SetLocation(loc)
	}

	desc := PlainText(ev.Description)
	if who := ingest.SpeakerSummary(ev); who != ingest.SpeakerTBA {
		desc = strings.TrimSpace(who + "\n\n" + desc)
	}
	if desc != "" {
		ve.SetDescription(desc)
	}
	if x.publicURL != "" {
		ve.SetURL(x.publicURL + router.EventHash(ev.ID))
	}
}

var (
	breakTags = regexp.MustCompile(`(?i)<\s*(br|/p|/li|/div)\s*/?>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// PlainText reduces a description fragment to text for DESCRIPTION.
func PlainText(fragment string) string {
	s := breakTags.ReplaceAllString(fragment, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
