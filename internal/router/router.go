// Package router maps location hashes onto page and modal transitions.
//
// A Router owns one visitor's view state. Every hash change goes through
// HandleHash, which parses it once into a Route and applies a single
// transition. Visual effects are delegated to a Surface; the router itself
// performs no rendering.
package router

import (
	"errors"
	"time"

	"eventsite/internal/ingest"
	appLog "eventsite/internal/log"
	"eventsite/internal/model"
)

var (
	// ErrUnknownRoute means the hash matched no route. State is unchanged.
	ErrUnknownRoute = errors.New("router: unknown route")
	// ErrStaleReference means the hash named an entity that is not loaded.
	ErrStaleReference = errors.New("router: stale reference")
	// ErrInvalidTransition means the request does not apply to the current state.
	ErrInvalidTransition = errors.New("router: invalid transition")
)

// DefaultSettleDelay is how long a page switch is given before scrolling to
// a home page anchor.
const DefaultSettleDelay = 50 * time.Millisecond

// Directory resolves the ids carried by hashes.
type Directory interface {
	Event(id string) (model.Event, bool)
	Member(id string) (model.TeamMember, bool)
	HasSeries(title string) bool
}

// Router is not safe for concurrent use; callers serialize access per visitor.
type Router struct {
	dir     Directory
	surface Surface
	settle  time.Duration

	state State

	// last is the most recently applied hash. It is only meaningful when
	// seen is set; a close clears the hash without it being observed.
	last string
	seen bool
}

type Option func(*Router)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Router) { r.settle = d }
}

// New returns a router on the home page with no modal open. A nil surface
// discards effects.
func New(dir Directory, surface Surface, opts ...Option) *Router {
	if surface == nil {
		surface = Discard{}
	}
	r := &Router{
		dir:     dir,
		surface: surface,
		settle:  DefaultSettleDelay,
		state:   State{Page: PageHome},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns a copy of the current view state.
func (r *Router) State() State { return r.state.clone() }

// Hash returns the last applied hash.
func (r *Router) Hash() string {
	if !r.seen {
		return ""
	}
	return r.last
}

// HandleHash applies the transition for hash. A hash equal to the previous
// one is a no-op. Unknown routes and stale references leave state untouched
// and are reported as ErrUnknownRoute and ErrStaleReference.
func (r *Router) HandleHash(hash string) error {
	route := Parse(hash)
	if r.seen && route.Hash == r.last {
		return nil
	}
	r.last, r.seen = route.Hash, true

	var err error
	switch route.Kind {
	case RouteEvent:
		err = r.openEvent(route.ID)
	case RouteTeamMember:
		err = r.openTeamMember(route.ID)
	case RouteSeries:
		err = r.openSeries(route.ID)
	case RoutePage:
		r.navigate(route)
	default:
		err = ErrUnknownRoute
	}
	if err != nil {
		appLog.Debug("route not applied", "hash", route.Hash, "kind", route.Kind.String(), "reason", err.Error())
	}
	return err
}

func (r *Router) openEvent(id string) error {
	if r.state.Has(FrameEvent) {
		return nil
	}
	if _, ok := r.dir.Event(id); !ok {
		return ErrStaleReference
	}

	frame := Frame{Kind: FrameEvent, ID: id}
	if top, ok := r.state.Top(); ok && top.Kind == FrameSeries {
		r.surface.HideModal(top)
		r.state.Parent = &top
		r.state.Stack = nil
	} else {
		r.hideAll()
	}
	r.push(frame)
	return nil
}

func (r *Router) openTeamMember(id string) error {
	if r.state.Has(FrameTeam) {
		return nil
	}
	if _, ok := r.dir.Member(id); !ok {
		return ErrStaleReference
	}
	r.hideAll()
	r.push(Frame{Kind: FrameTeam, ID: id})
	return nil
}

func (r *Router) openSeries(title string) error {
	if r.state.Has(FrameSeries) {
		return nil
	}
	if !r.dir.HasSeries(title) {
		return ErrStaleReference
	}

	// Returning to the series an open event was launched from.
	if p := r.state.Parent; p != nil && p.ID == title {
		for r.state.HasModal() {
			r.pop()
		}
		r.restoreParent()
		return nil
	}
	r.hideAll()
	r.push(Frame{Kind: FrameSeries, ID: title})
	return nil
}

func (r *Router) navigate(route Route) {
	r.hideAll()
	r.lock(false)
	r.state.Page = route.Page
	r.surface.ShowPage(route.Page)

	switch {
	case route.Anchor != "":
		r.surface.ScrollTo(route.Anchor, r.settle)
	case route.Page == PageHome:
		r.surface.ScrollTo("", 0)
	}
}

// OpenSpeakerList stacks the full speaker list over the open event. It is
// only available when the event has more speakers than the detail shows.
func (r *Router) OpenSpeakerList() error {
	top, ok := r.state.Top()
	if !ok || top.Kind != FrameEvent {
		return ErrInvalidTransition
	}
	ev, ok := r.dir.Event(top.ID)
	if !ok {
		return ErrStaleReference
	}
	if len(ev.Speakers) <= ingest.MaxSpeakersShown {
		return ErrInvalidTransition
	}
	r.surface.HideModal(top)
	r.push(Frame{Kind: FrameSpeakerList, ID: top.ID})
	return nil
}

// Close closes the visible frame if it is of kind, as its close control
// would. It reports whether anything changed.
func (r *Router) Close(kind FrameKind) bool {
	top, ok := r.state.Top()
	if !ok || top.Kind != kind {
		return false
	}
	r.closeTop()
	return true
}

// Dismiss handles the global dismiss signal, closing at most one frame in
// the order speaker list, team member, event, series. It returns false when
// nothing is open.
func (r *Router) Dismiss() bool {
	for _, kind := range dismissOrder {
		if r.state.Has(kind) {
			return r.Close(kind)
		}
	}
	return false
}

// Rebind points the router at a newly loaded directory, keeping the
// current page, frames and retained series. Frames whose entity is gone
// are closed from the top down; when the frame the hash named is among
// them the hash is cleared. It reports whether anything was closed.
func (r *Router) Rebind(dir Directory) bool {
	r.dir = dir

	keep := 0
	for keep < len(r.state.Stack) && r.resolves(r.state.Stack[keep]) {
		keep++
	}
	dropped := len(r.state.Stack) - keep
	for len(r.state.Stack) > keep {
		r.pop()
	}

	parentGone := r.state.Parent != nil && !r.dir.HasSeries(r.state.Parent.ID)
	if parentGone {
		r.state.Parent = nil
	}
	if dropped == 0 {
		return parentGone
	}

	switch top, ok := r.state.Top(); {
	case ok:
		// Only the speaker list went away; the event is visible again.
		r.surface.ShowModal(top)
	case r.state.Parent != nil:
		r.restoreParent()
		r.clearHash()
	default:
		r.lock(false)
		r.clearHash()
	}
	return true
}

// resolves reports whether f still names a loaded entity.
func (r *Router) resolves(f Frame) bool {
	switch f.Kind {
	case FrameEvent:
		_, ok := r.dir.Event(f.ID)
		return ok
	case FrameTeam:
		_, ok := r.dir.Member(f.ID)
		return ok
	case FrameSeries:
		return r.dir.HasSeries(f.ID)
	case FrameSpeakerList:
		ev, ok := r.dir.Event(f.ID)
		return ok && len(ev.Speakers) > ingest.MaxSpeakersShown
	}
	return false
}

func (r *Router) closeTop() {
	top := r.pop()
	switch top.Kind {
	case FrameSpeakerList:
		// Back to the event underneath; the hash still names it.
		if ev, ok := r.state.Top(); ok {
			r.surface.ShowModal(ev)
		}
		return
	case FrameEvent:
		if r.state.Parent != nil {
			r.restoreParent()
			r.clearHash()
			return
		}
	}
	r.lock(false)
	r.clearHash()
}

func (r *Router) restoreParent() {
	p := *r.state.Parent
	r.state.Parent = nil
	r.push(p)
}

func (r *Router) clearHash() {
	r.surface.ReplaceHash("")
	r.last, r.seen = "", false
}

func (r *Router) push(f Frame) {
	r.state.Stack = append(r.state.Stack, f)
	r.surface.ShowModal(f)
	r.lock(true)
}

func (r *Router) pop() Frame {
	n := len(r.state.Stack)
	top := r.state.Stack[n-1]
	r.state.Stack = r.state.Stack[:n-1]
	r.surface.HideModal(top)
	return top
}

// hideAll closes every frame and drops the retained parent.
func (r *Router) hideAll() {
	for r.state.HasModal() {
		r.pop()
	}
	r.state.Parent = nil
}

func (r *Router) lock(on bool) {
	if r.state.ScrollLocked == on {
		return
	}
	r.state.ScrollLocked = on
	r.surface.LockScroll(on)
}
