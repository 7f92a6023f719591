package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	appLog "eventsite/internal/log"
	"eventsite/internal/model"
	"eventsite/internal/series"
)

// AssumedDuration is how long every event is considered to run.
const AssumedDuration = 2 * time.Hour

// assumedDurationMs is AssumedDuration in milliseconds (7,200,000).
const assumedDurationMs = int64(AssumedDuration / time.Millisecond)

// secondsDigitThreshold: raw values with fewer digits are seconds.
const secondsDigitThreshold = 11

// Options parameterizes a single ingestion run.
type Options struct {
	// Now is the resolved reference time for classification.
	Now time.Time
	// Location is the display timezone; nil means UTC.
	Location *time.Location
	// Series is the taxonomy to bind against; nil means series.All().
	Series []model.Series
}

// Result is the normalized event set produced by Ingest.
type Result struct {
	// Events holds every record in document order, one per id.
	Events []model.Event
	// Upcoming is sorted ascending by EventTime.
	Upcoming []model.Event
	// Past is sorted descending by EventTime.
	Past []model.Event
	// Series maps each series title to its events, sorted descending.
	Series map[string][]model.Event

	Malformed  int
	Duplicates int
}

// Ingest normalizes, classifies, partitions and binds raw records.
// Records are never dropped for bad data: a bad timestamp becomes 0.
func Ingest(raws []RawEvent, opts Options) Result {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	nowMs := opts.Now.UnixMilli()

	var res Result
	index := make(map[string]int, len(raws))
	events := make([]model.Event, 0, len(raws))

	for _, raw := range raws {
		ev := fromRaw(raw)

		malformed := raw.malformed
		ms, err := ParseEventTime(raw.EventTime)
		if err != nil {
			malformed = true
			appLog.Error("invalid event_time for event", fmt.Errorf("%w: %v", ErrMalformedRecord, err),
				"id", raw.ID,
				"event_time", string(raw.EventTime),
			)
			ms = 0
		}
		if malformed {
			res.Malformed++
		}
		ev.EventTime = ms
		ev.Classification = Classify(ev.EventTime, ev.Location, nowMs, loc)

		// Last write wins; the record keeps the slot of the first occurrence.
		if i, dup := index[ev.ID]; dup {
			res.Duplicates++
			appLog.Warn("duplicate event id; keeping the later record", "id", ev.ID)
			events[i] = ev
			continue
		}
		index[ev.ID] = len(events)
		events = append(events, ev)
	}

	res.Events = events
	res.Upcoming, res.Past = Partition(events)

	catalog := opts.Series
	if catalog == nil {
		catalog = series.All()
	}
	res.Series = BindSeries(events, catalog)

	appLog.Info("events ingested",
		"total", len(events),
		"upcoming", len(res.Upcoming),
		"past", len(res.Past),
		"malformed", res.Malformed,
		"duplicates", res.Duplicates,
	)
	return res
}

func fromRaw(raw RawEvent) model.Event {
	desc := raw.DescriptionHTML
	if desc == "" {
		desc = raw.Description
	}
	ev := model.Event{
		ID:            raw.ID,
		Title:         raw.Title,
		Tag:           raw.Tag,
		Location:      raw.Location,
		Description:   desc,
		ImagePath:     raw.ImagePath,
		Speakers:      raw.Speakers,
		CTA:           raw.CTA,
		GradientClass: raw.GradientClass,
		TagColorClass: raw.TagColorClass,
	}
	if raw.Links != nil {
		ev.Links = *raw.Links
	}
	if ev.Speakers == nil {
		ev.Speakers = []model.Speaker{}
	}
	return ev
}

// ParseEventTime converts a raw event_time token into Unix milliseconds.
// Only JSON numbers are accepted; anything else is an error.
func ParseEventTime(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing event_time")
	}
	if raw[0] == '"' || raw[0] == '{' || raw[0] == '[' || raw[0] == 't' || raw[0] == 'f' {
		return 0, fmt.Errorf("event_time is not a number")
	}

	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return NormalizeMillis(n), nil
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("event_time is not a number")
	}
	if digitCount(int64(f)) < secondsDigitThreshold {
		f *= 1000
	}
	return int64(f), nil
}

// NormalizeMillis applies the digit-count rule: values with fewer than 11
// decimal digits are seconds and are scaled to milliseconds.
//
// It is idempotent only for |v| >= 10^7 (any date after mid-1970 in
// seconds) and for 0. Smaller values still have fewer than 11 digits
// after one scaling, so 5 -> 5000 -> 5000000.
func NormalizeMillis(v int64) int64 {
	if digitCount(v) < secondsDigitThreshold {
		return v * 1000
	}
	return v
}

// digitCount returns the number of decimal digits of |v| (1 for 0).
func digitCount(v int64) int {
	if v < 0 {
		if v == math.MinInt64 {
			return 19
		}
		v = -v
	}
	n := 1
	for v >= 10 {
		v /= 10
		n++
	}
	return n
}

// IsPast reports whether an event starting at eventMs has ended by nowMs.
func IsPast(eventMs, nowMs int64) bool {
	return eventMs+assumedDurationMs < nowMs
}

// Classify computes the derived display fields of an event.
func Classify(eventMs int64, location string, nowMs int64, loc *time.Location) model.Classification {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(eventMs).In(loc)

	// "October 20, 2025" and "10:00 AM EST"
	date := t.Format("January 2, 2006")
	clock := t.Format("3:04 PM MST")

	return model.Classification{
		IsPast:          IsPast(eventMs, nowMs),
		DateDisplay:     date,
		TimeDisplay:     clock,
		DateTimeFull:    date + " at " + clock,
		LocationDisplay: location,
	}
}

// Partition splits events into upcoming (ascending) and past (descending).
func Partition(events []model.Event) (upcoming, past []model.Event) {
	upcoming = make([]model.Event, 0, len(events))
	past = make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Classification.IsPast {
			past = append(past, ev)
		} else {
			upcoming = append(upcoming, ev)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].EventTime < upcoming[j].EventTime })
	sortDescending(past)
	return upcoming, past
}

// BindSeries builds the per-series event lists. Every series gets an entry,
// possibly empty; events matching no series appear in none.
func BindSeries(events []model.Event, catalog []model.Series) map[string][]model.Event {
	out := make(map[string][]model.Event, len(catalog))
	for _, s := range catalog {
		matched := make([]model.Event, 0)
		for _, ev := range events {
			if series.Matches(s, ev.Tag) {
				matched = append(matched, ev)
			}
		}
		sortDescending(matched)
		out[s.Title] = matched
	}
	return out
}

func sortDescending(evs []model.Event) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].EventTime > evs[j].EventTime })
}
