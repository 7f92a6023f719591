package ingest

import (
	"fmt"
	"strings"

	"eventsite/internal/model"
	"eventsite/internal/series"
)

// Speaker summary labels.
const (
	SpeakerTBA      = "Speaker TBA"
	VariousSpeakers = "Various Speakers"
)

// MaxSpeakersShown is how many speakers the event detail shows before
// offering the full speaker list.
const MaxSpeakersShown = 2

// Fallback card styling when neither the event nor a series provides one.
const (
	DefaultGradientClass = "sfi-gradient-sea"
	DefaultTagColorClass = "text-white"
)

// CTAVisible reports whether the event's call-to-action should be shown.
// A "join" action on a past event is suppressed.
func CTAVisible(ev model.Event) bool {
	if ev.CTA == nil {
		return false
	}
	if ev.Classification.IsPast && strings.Contains(strings.ToLower(ev.CTA.Text), "join") {
		return false
	}
	return strings.TrimSpace(ev.CTA.Text) != "" && IsValidLink(ev.CTA.URL)
}

// IsValidLink rejects empty and placeholder URLs.
func IsValidLink(u string) bool {
	t := strings.TrimSpace(u)
	return t != "" && t != "#" && t != "null"
}

// SpeakerSummary returns the one-line speaker label used on cards.
func SpeakerSummary(ev model.Event) string {
	switch {
	case len(ev.Speakers) == 0:
		return SpeakerTBA
	case strings.EqualFold(strings.TrimSpace(ev.Speakers[0].Name), "to be announced"):
		return SpeakerTBA
	case len(ev.Speakers) == 1:
		return ev.Speakers[0].Name
	default:
		return VariousSpeakers
	}
}

// VisibleSpeakers returns the speakers shown inline in the event detail and,
// when more exist, the label of the "see all" opener.
func VisibleSpeakers(ev model.Event) ([]model.Speaker, string) {
	if len(ev.Speakers) <= MaxSpeakersShown {
		return ev.Speakers, ""
	}
	return ev.Speakers[:MaxSpeakersShown], fmt.Sprintf("See all %d speakers", len(ev.Speakers))
}

// Styling resolves gradient and tag colour classes for an event card.
func Styling(ev model.Event) (gradient, tagColor string) {
	if ev.GradientClass != "" && ev.TagColorClass != "" {
		return ev.GradientClass, ev.TagColorClass
	}
	if s, ok := series.ForTag(ev.Tag); ok {
		return s.GradientClass, s.TagColorClass
	}
	return DefaultGradientClass, DefaultTagColorClass
}
