package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventsite/internal/model"
)

func TestCTAVisible(t *testing.T) {
	join := &model.CTA{Text: "Join now", URL: "https://zoom.example/j/1"}

	past := model.Event{CTA: join, Classification: model.Classification{IsPast: true}}
	upcoming := model.Event{CTA: join}
	assert.False(t, CTAVisible(past))
	assert.True(t, CTAVisible(upcoming))

	recording := model.Event{
		CTA:            &model.CTA{Text: "Watch recording", URL: "https://video.example/1"},
		Classification: model.Classification{IsPast: true},
	}
	assert.True(t, CTAVisible(recording))

	for _, u := range []string{"", "#", "null", "   "} {
		assert.False(t, CTAVisible(model.Event{CTA: &model.CTA{Text: "Register", URL: u}}), "url %q", u)
	}
	assert.False(t, CTAVisible(model.Event{CTA: &model.CTA{Text: " ", URL: "https://x.example"}}))
	assert.False(t, CTAVisible(model.Event{}))
}

func TestSpeakerSummary(t *testing.T) {
	speakers := func(names ...string) []model.Speaker {
		out := make([]model.Speaker, 0, len(names))
		for _, n := range names {
			out = append(out, model.Speaker{Name: n})
		}
		return out
	}

	assert.Equal(t, SpeakerTBA, SpeakerSummary(model.Event{}))
	assert.Equal(t, SpeakerTBA, SpeakerSummary(model.Event{Speakers: speakers("To Be Announced")}))
	assert.Equal(t, "Ada Lovelace", SpeakerSummary(model.Event{Speakers: speakers("Ada Lovelace")}))
	assert.Equal(t, VariousSpeakers, SpeakerSummary(model.Event{Speakers: speakers("A", "B", "C")}))
}

func TestVisibleSpeakers(t *testing.T) {
	ev := model.Event{Speakers: []model.Speaker{{Name: "A"}, {Name: "B"}, {Name: "C"}}}
	shown, more := VisibleSpeakers(ev)
	assert.Len(t, shown, 2)
	assert.Equal(t, "See all 3 speakers", more)
	assert.Len(t, ev.Speakers, 3)

	shown, more = VisibleSpeakers(model.Event{Speakers: ev.Speakers[:2]})
	assert.Len(t, shown, 2)
	assert.Empty(t, more)
}

func TestStyling(t *testing.T) {
	g, c := Styling(model.Event{Tag: "workshop"})
	assert.Equal(t, "sfi-gradient-eggplant", g)
	assert.Equal(t, "text-white", c)

	g, c = Styling(model.Event{Tag: "Workshop", GradientClass: "custom", TagColorClass: "text-black"})
	assert.Equal(t, "custom", g)
	assert.Equal(t, "text-black", c)

	g, c = Styling(model.Event{Tag: "Panel"})
	assert.Equal(t, DefaultGradientClass, g)
	assert.Equal(t, DefaultTagColorClass, c)
}
