package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"eventsite/internal/cache"
	"eventsite/internal/ingest"
	"eventsite/internal/model"
	"eventsite/internal/router"
)

// Empty-region messages.
const (
	MsgNoPastEvents   = "No past event recordings are available yet."
	MsgNoTeam         = "Team information is not available at this time."
	MsgNoSeriesEvents = "No events found for this series."
)

// DefaultHomeLimit is how many upcoming events the home page lists.
const DefaultHomeLimit = 3

// View is everything a projection is computed from.
type View struct {
	Site  *cache.Site
	State router.State
	// Hash is the hash the state was resolved from.
	Hash string
	// HomeLimit caps upcoming events on the home page; <= 0 means DefaultHomeLimit.
	HomeLimit int
	// Live pages load the client script that reports hash changes.
	Live bool
	// Title is the document title.
	Title string
}

// EventCard is the display form of one event.
type EventCard struct {
	ID       string
	Title    string
	Tag      string
	Hash     string
	Date     string
	Time     string
	DateTime string
	Location string
	Speakers string
	Image    string
	Gradient string
	TagColor string
	IsPast   bool

	// CTA is set only when the call to action should be shown.
	CTA       *model.CTA
	Register  string
	Recording string
}

// EventDetail is an event as shown in its modal.
type EventDetail struct {
	EventCard
	Description template.HTML
	// Shown are the speakers listed inline; MoreSpeakers labels the opener
	// for the full list and is empty when everyone is shown.
	Shown        []model.Speaker
	MoreSpeakers string
	CalendarURL  string
}

type SeriesCard struct {
	model.Series
	Hash  string
	Count int
}

type SeriesDetail struct {
	model.Series
	Events  []EventCard
	Message string
}

type MemberCard struct {
	model.TeamMember
	Hash string
	Bio  template.HTML
}

// Region is a listing that shows either items or a replacement message.
type Region[T any] struct {
	Items   []T
	Message string
}

// Modal is one open dialog. Only the top of the stack is visible.
type Modal struct {
	Kind    string
	Visible bool

	Event    *EventDetail
	Member   *MemberCard
	Series   *SeriesDetail
	Speakers []model.Speaker
}

// Projection is the complete display state.
type Projection struct {
	Title        string
	Page         string
	Hash         string
	ScrollLocked bool
	Live         bool
	Generation   uint64

	// ShowUpcoming hides both the upcoming section and its nav entry.
	ShowUpcoming bool
	HomeUpcoming Region[EventCard]
	Upcoming     Region[EventCard]
	Past         Region[EventCard]
	Series       Region[SeriesCard]
	Team         Region[MemberCard]
	Formats      Region[model.EventFormat]

	Modals []Modal
}

// Project is a pure function of the view.
func Project(v View) Projection {
	site := v.Site
	if site == nil {
		site = &cache.Site{}
	}
	limit := v.HomeLimit
	if limit <= 0 {
		limit = DefaultHomeLimit
	}
	p := Projection{
		Title:        v.Title,
		Page:         v.State.Page.String(),
		Hash:         v.Hash,
		ScrollLocked: v.State.ScrollLocked,
		Live:         v.Live,
	}
	p.Generation = site.Generation

	if f := site.Failure(cache.SourceEvents); f != nil {
		p.HomeUpcoming.Message = f.UserMessage
		p.Upcoming.Message = f.UserMessage
		p.Past.Message = f.UserMessage
		p.ShowUpcoming = true
	} else {
		upcoming := cards(site.Events.Upcoming())
		p.ShowUpcoming = len(upcoming) > 0
		p.Upcoming.Items = upcoming
		p.HomeUpcoming.Items = upcoming[:min(limit, len(upcoming))]
		p.Past.Items = cards(site.Events.Past())
		if len(p.Past.Items) == 0 {
			p.Past.Message = MsgNoPastEvents
		}
	}

	if f := site.Failure(cache.SourceSeries); f != nil {
		p.Series.Message = f.UserMessage
	} else {
		for _, s := range site.Series.Series() {
			p.Series.Items = append(p.Series.Items, SeriesCard{
				Series: s,
				Hash:   router.SeriesHash(s.Title),
				Count:  len(site.Series.Events(s.Title)),
			})
		}
	}

	if f := site.Failure(cache.SourceTeam); f != nil {
		p.Team.Message = f.UserMessage
	} else {
		for _, m := range site.Team.Members() {
			p.Team.Items = append(p.Team.Items, memberCard(m))
		}
	}
	if len(p.Team.Items) == 0 && p.Team.Message == "" {
		p.Team.Message = MsgNoTeam
	}

	if f := site.Failure(cache.SourceFormats); f != nil {
		p.Formats.Message = f.UserMessage
	} else {
		p.Formats.Items = site.Formats
	}

	p.Modals = modals(site, v.State)
	return p
}

func modals(site *cache.Site, st router.State) []Modal {
	var frames []router.Frame
	if st.Parent != nil {
		frames = append(frames, *st.Parent)
	}
	frames = append(frames, st.Stack...)

	out := make([]Modal, 0, len(frames))
	for i, f := range frames {
		m := Modal{Kind: f.Kind.String(), Visible: i == len(frames)-1}
		switch f.Kind {
		case router.FrameEvent:
			ev, ok := site.Event(f.ID)
			if !ok {
				continue
			}
			d := Detail(ev)
			m.Event = &d
		case router.FrameSpeakerList:
			ev, ok := site.Event(f.ID)
			if !ok {
				continue
			}
			m.Speakers = ev.Speakers
		case router.FrameTeam:
			mem, ok := site.Member(f.ID)
			if !ok {
				continue
			}
			mc := memberCard(mem)
			m.Member = &mc
		case router.FrameSeries:
			s, ok := site.Series.Find(f.ID)
			if !ok {
				continue
			}
			d := SeriesDetail{Series: s, Events: cards(site.Series.Events(s.Title))}
			if len(d.Events) == 0 {
				d.Message = MsgNoSeriesEvents
			}
			m.Series = &d
		}
		out = append(out, m)
	}
	return out
}

// Card projects an event for listings.
func Card(ev model.Event) EventCard {
	gradient, tagColor := ingest.Styling(ev)
	c := EventCard{
		ID:       ev.ID,
		Title:    ev.Title,
		Tag:      ev.Tag,
		Hash:     router.EventHash(ev.ID),
		Date:     ev.Classification.DateDisplay,
		Time:     ev.Classification.TimeDisplay,
		DateTime: ev.Classification.DateTimeFull,
		Location: ev.Classification.LocationDisplay,
		Speakers: ingest.SpeakerSummary(ev),
		Image:    ev.ImagePath,
		Gradient: gradient,
		TagColor: tagColor,
		IsPast:   ev.Classification.IsPast,
	}
	if ingest.CTAVisible(ev) {
		cta := *ev.CTA
		c.CTA = &cta
	}
	if ingest.IsValidLink(ev.Links.Register) {
		c.Register = strings.TrimSpace(ev.Links.Register)
	}
	if ingest.IsValidLink(ev.Links.Recording) {
		c.Recording = strings.TrimSpace(ev.Links.Recording)
	}
	return c
}

// Detail projects an event for its modal.
func Detail(ev model.Event) EventDetail {
	shown, more := ingest.VisibleSpeakers(ev)
	return EventDetail{
		EventCard:    Card(ev),
		Description:  template.HTML(ev.Description),
		Shown:        shown,
		MoreSpeakers: more,
		CalendarURL:  fmt.Sprintf("/events/%s/calendar.ics", url.PathEscape(ev.ID)),
	}
}

func cards(evs []model.Event) []EventCard {
	out := make([]EventCard, 0, len(evs))
	for _, ev := range evs {
		out = append(out, Card(ev))
	}
	return out
}

func memberCard(m model.TeamMember) MemberCard {
	return MemberCard{TeamMember: m, Hash: router.TeamHash(m.ID), Bio: template.HTML(m.Bio)}
}
