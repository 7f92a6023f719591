package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventsite/internal/cache"
	appLog "eventsite/internal/log"
	"eventsite/internal/metrics"
	"eventsite/internal/router"
)

const (
	sessionCookie      = "eventsite_session"
	sessionIdleTimeout = 30 * time.Minute
)

// connView is the router of one websocket connection. Each browser tab owns
// its own, seeded by the first hash the tab reports. Only the connection's
// read loop touches it.
type connView struct {
	rt  *router.Router
	rec *router.Recorder
	gen uint64
}

// bind makes sure the router runs against site. On a newer generation the
// existing frames are carried over and re-checked against the new site.
func (c *connView) bind(site *cache.Site) {
	if c.rt == nil {
		c.rec = &router.Recorder{}
		c.rt = router.New(site, c.rec)
		c.gen = site.Generation
		return
	}
	if c.gen == site.Generation {
		return
	}
	appLog.Debug("view rebinding to new site", "from", c.gen, "to", site.Generation)
	if c.rt.Rebind(site) {
		metrics.TrackTransition("rebind", "closed")
	}
	c.gen = site.Generation
}

// visitor is a cookie-identified browser. It carries no view state.
type visitor struct {
	id       string
	lastSeen time.Time
}

// visitorStore tracks visitors for cookie reuse and the sessions gauge.
// lastSeen is only read or written under mu.
type visitorStore struct {
	mu   sync.Mutex
	byID map[string]*visitor
	idle time.Duration
	now  func() time.Time
}

func newVisitorStore(idle time.Duration) *visitorStore {
	return &visitorStore{byID: make(map[string]*visitor), idle: idle, now: time.Now}
}

// get returns the visitor named by id, creating a fresh one when id is
// empty or unknown.
func (st *visitorStore) get(id string) *visitor {
	st.mu.Lock()
	defer st.mu.Unlock()

	if v, ok := st.byID[id]; ok && id != "" {
		v.lastSeen = st.now()
		return v
	}
	v := &visitor{id: uuid.NewString(), lastSeen: st.now()}
	st.byID[v.id] = v
	metrics.SessionOpened()
	return v
}

// touch marks v active, re-registering it if it was swept while connected.
func (st *visitorStore) touch(v *visitor) {
	st.mu.Lock()
	defer st.mu.Unlock()

	v.lastSeen = st.now()
	if _, ok := st.byID[v.id]; !ok {
		st.byID[v.id] = v
		metrics.SessionOpened()
	}
}

func (st *visitorStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byID)
}

// sweep drops visitors idle for longer than the store's timeout.
func (st *visitorStore) sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	n := 0
	for id, v := range st.byID {
		if now.Sub(v.lastSeen) > st.idle {
			delete(st.byID, id)
			metrics.SessionClosed()
			n++
		}
	}
	return n
}

func (st *visitorStore) sweepEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := st.sweep(); n > 0 {
				appLog.Debug("idle visitors dropped", "count", n)
			}
		}
	}
}

// visitorID returns the id carried by the request's cookie, or "".
func visitorID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// visitorFor resolves the request's visitor and sets its cookie when new.
func (s *Server) visitorFor(w http.ResponseWriter, r *http.Request) *visitor {
	id := visitorID(r)
	v := s.visitors.get(id)
	if v.id != id {
		http.SetCookie(w, newSessionCookie(v.id))
	}
	return v
}

func newSessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionIdleTimeout / time.Second),
	}
}

// track counts a routing outcome.
func track(route router.Route, err error) {
	outcome := "applied"
	switch {
	case errors.Is(err, router.ErrUnknownRoute):
		outcome = "unknown"
	case errors.Is(err, router.ErrStaleReference):
		outcome = "stale"
	case err != nil:
		outcome = "invalid"
	}
	metrics.TrackTransition(route.Kind.String(), outcome)
}
