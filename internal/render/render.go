// Package render turns the explicit view state into HTML.
//
// Project computes a Projection from a Site and a router.State; the
// Renderer only executes templates over it, so every display rule lives in
// the projection and is testable without parsing markup.
//
// Card, CompactCard, SeriesCard and TeamCard are the fragment API for
// callers outside the page: they execute the same sub-templates the page
// uses for its grids, so a fragment and its place in the page never drift.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"eventsite/internal/model"
	"eventsite/internal/router"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// Renderer executes the page and card templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t, err := template.New("eventsite").ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// MustNew is New for package initialization and tests.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Page writes the full document for v.
func (r *Renderer) Page(w io.Writer, v View) error {
	return r.tmpl.ExecuteTemplate(w, "page", Project(v))
}

// Main returns the inner markup of the document, as swapped in by live clients.
func (r *Renderer) Main(v View) (string, error) {
	return r.exec("main", Project(v))
}

// Card renders the full event card of the upcoming and past grids.
func (r *Renderer) Card(ev model.Event) (template.HTML, error) {
	return r.html("card", Card(ev))
}

// CompactCard renders the list entry used inside the series dialog.
func (r *Renderer) CompactCard(ev model.Event) (template.HTML, error) {
	return r.html("compact-card", Card(ev))
}

// SeriesCard renders s with the number of events bound to it.
func (r *Renderer) SeriesCard(s model.Series, count int) (template.HTML, error) {
	return r.html("series-card", SeriesCard{Series: s, Hash: router.SeriesHash(s.Title), Count: count})
}

func (r *Renderer) TeamCard(m model.TeamMember) (template.HTML, error) {
	return r.html("team-card", memberCard(m))
}

func (r *Renderer) html(name string, data any) (template.HTML, error) {
	s, err := r.exec(name, data)
	// Output of html/template is already escaped.
	return template.HTML(s), err
}

func (r *Renderer) exec(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
