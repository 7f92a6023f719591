package model

import "time"

// Event is a single talk or workshop occurrence after ingestion.
//
// EventTime is always in Unix milliseconds once an Event leaves the
// ingestion pipeline, and Classification is always populated.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Tag         string    `json:"tag"`
	Location    string    `json:"location"`
	Description string    `json:"description_html"`
	ImagePath   string    `json:"image_path,omitempty"`
	EventTime   int64     `json:"event_time"`
	Speakers    []Speaker `json:"speakers"`
	Links       Links     `json:"links"`
	CTA         *CTA      `json:"cta,omitempty"`

	// Optional per-event styling that wins over the series styling.
	GradientClass string `json:"gradient_class,omitempty"`
	TagColorClass string `json:"tag_color_class,omitempty"`

	Classification Classification `json:"classification"`
}

// Start returns EventTime as a time.Time in loc (UTC when loc is nil).
func (e Event) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(e.EventTime).In(loc)
}

// Speaker is one presenter of an Event.
type Speaker struct {
	Name      string `json:"name"`
	Tagline   string `json:"tagline"`
	ImagePath string `json:"image_path,omitempty"`
	Website   string `json:"website_url,omitempty"`
}

// Links holds the optional registration and recording URLs.
type Links struct {
	Register  string `json:"register,omitempty"`
	Recording string `json:"recording,omitempty"`
}

// CTA is a call-to-action descriptor shown in the event detail view.
type CTA struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Classification holds the derived, display-oriented fields of an Event,
// computed relative to a reference "now".
type Classification struct {
	IsPast          bool   `json:"is_past"`
	DateDisplay     string `json:"date_display"`
	TimeDisplay     string `json:"time_display"`
	DateTimeFull    string `json:"date_time_full"`
	LocationDisplay string `json:"location_display"`
}

// TeamMember is one person shown on the team page.
type TeamMember struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Bio       string `json:"bio_html,omitempty"`
	ImagePath string `json:"image_path"`
	Links     []Link `json:"links"`
}

// Link is a text+URL pair.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Series is a fixed, code-defined grouping of events by tag.
type Series struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	TagMatcher    string `json:"tag_matcher"`
	ImagePath     string `json:"image_path"`
	GradientClass string `json:"gradient_class"`
	TagColorClass string `json:"tag_color_class"`
}

// EventFormat is a passthrough entry of the event formats document.
type EventFormat struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CTA         *FormatCTA `json:"cta,omitempty"`
}

// FormatCTA renders either as a link or, when Badge is set, as a static badge.
type FormatCTA struct {
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Badge bool   `json:"badge,omitempty"`
}
