package router

import (
	"net/url"
	"strings"
)

// RouteKind tags the variant held by a Route.
type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteEvent
	RouteTeamMember
	RouteSeries
	RoutePage
)

func (k RouteKind) String() string {
	switch k {
	case RouteEvent:
		return "event"
	case RouteTeamMember:
		return "team_member"
	case RouteSeries:
		return "series"
	case RoutePage:
		return "page"
	default:
		return "unknown"
	}
}

// Route is a parsed hash. Exactly the fields of its Kind are meaningful:
//   - RouteEvent, RouteTeamMember: ID
//   - RouteSeries: ID holds the decoded series title
//   - RoutePage: Page and Anchor ("" means scroll to top)
type Route struct {
	Kind   RouteKind
	ID     string
	Page   Page
	Anchor string
	// Hash is the normalized input ("#..." or "").
	Hash string
}

const (
	eventPrefix  = "#event="
	teamPrefix   = "#team="
	seriesPrefix = "#series="
)

// homeAnchors are in-page sections of the home page.
var homeAnchors = map[string]bool{
	"#about":        true,
	"#upcoming":     true,
	"#events":       true,
	"#get-involved": true,
}

// NormalizeHash returns hash with a leading '#', or "" for an empty hash.
func NormalizeHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if hash == "" || hash == "#" {
		return ""
	}
	if !strings.HasPrefix(hash, "#") {
		hash = "#" + hash
	}
	return hash
}

// Parse interprets a location hash. Unrecognized input yields RouteUnknown.
func Parse(hash string) Route {
	h := NormalizeHash(hash)
	r := Route{Hash: h}

	switch {
	case strings.HasPrefix(h, eventPrefix):
		r.Kind = RouteEvent
		r.ID = h[len(eventPrefix):]

	case strings.HasPrefix(h, teamPrefix) && len(h) > len(teamPrefix):
		r.Kind = RouteTeamMember
		r.ID = h[len(teamPrefix):]

	case strings.HasPrefix(h, seriesPrefix):
		title, err := url.PathUnescape(h[len(seriesPrefix):])
		if err != nil {
			return Route{Hash: h}
		}
		r.Kind = RouteSeries
		r.ID = title

	case homeAnchors[h]:
		r.Kind = RoutePage
		r.Page = PageHome
		r.Anchor = h

	case h == "#archive":
		r.Kind = RoutePage
		r.Page = PageArchive

	case h == "#team":
		r.Kind = RoutePage
		r.Page = PageTeam

	case h == "#home" || h == "":
		r.Kind = RoutePage
		r.Page = PageHome
	}
	return r
}

// EventHash is the hash that opens the event detail for id.
func EventHash(id string) string { return eventPrefix + id }

// TeamHash is the hash that opens the team member detail for id.
func TeamHash(id string) string { return teamPrefix + id }

// SeriesHash is the hash that opens the series view for title.
func SeriesHash(title string) string { return seriesPrefix + url.PathEscape(title) }
