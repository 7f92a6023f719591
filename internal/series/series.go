// Package series holds the fixed event series taxonomy.
package series

import (
	"golang.org/x/text/cases"

	"eventsite/internal/model"
)

var catalog = [...]model.Series{
	{
		Title:         "Guest Talks",
		Description:   "In-depth lectures from leading researchers and guest lecturers on foundational and cutting-edge topics in complexity science.",
		TagMatcher:    "Guest Talk",
		ImagePath:     "img/general/tiling1.jpeg",
		GradientClass: "sfi-gradient-turmeric",
		TagColorClass: "text-white",
	},
	{
		Title:         "Community Talks",
		Description:   "Seminar-style talks by CGS participants and EPE network members, designed to showcase ongoing research and projects.",
		TagMatcher:    "Community Talks",
		ImagePath:     "img/general/tiling2.jpeg",
		GradientClass: "sfi-gradient-sea",
		TagColorClass: "text-white",
	},
	{
		Title:         "Nascent Research",
		Description:   "A rapid-fire series. Presenters share emerging research in 10-minute talks, followed by 10 minutes of Q&A.",
		TagMatcher:    "Nascent Research",
		ImagePath:     "img/general/feltpen1.jpeg",
		GradientClass: "sfi-gradient-sea",
		TagColorClass: "text-white",
	},
	{
		Title:         "Complexity Narratives",
		Description:   "An epistemologically-forward attempt at historically recontextualizing the ways in which our world systems have developed.",
		TagMatcher:    "Complexity Narrative",
		ImagePath:     "img/general/tiling3.jpeg",
		GradientClass: "sfi-gradient-turmeric",
		TagColorClass: "text-white",
	},
	{
		Title:         "Workshops",
		Description:   "Hands-on sessions to learn new methods, tools, and skills related to complexity science.",
		TagMatcher:    "Workshop",
		ImagePath:     "img/general/paint1.jpeg",
		GradientClass: "sfi-gradient-eggplant",
		TagColorClass: "text-white",
	},
}

// All returns a copy of the series catalog in display order.
func All() []model.Series {
	out := make([]model.Series, len(catalog))
	copy(out, catalog[:])
	return out
}

// Find looks up a series by its exact title.
func Find(title string) (model.Series, bool) {
	for _, s := range catalog {
		if s.Title == title {
			return s, true
		}
	}
	return model.Series{}, false
}

// Matches reports whether tag matches the series' tag matcher, ignoring case.
func Matches(s model.Series, tag string) bool {
	return Fold(s.TagMatcher) == Fold(tag)
}

// ForTag returns the first series whose matcher matches tag.
func ForTag(tag string) (model.Series, bool) {
	ft := Fold(tag)
	for _, s := range catalog {
		if Fold(s.TagMatcher) == ft {
			return s, true
		}
	}
	return model.Series{}, false
}

// Fold returns the case-folded form of s used for case-insensitive matching.
func Fold(s string) string {
	return cases.Fold().String(s)
}
