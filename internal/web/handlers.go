package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"eventsite/internal/cache"
	"eventsite/internal/ics"
	appLog "eventsite/internal/log"
	"eventsite/internal/model"
	"eventsite/internal/render"
	"eventsite/internal/router"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// loadedSite returns the active site, answering 503 while none is loaded.
func (s *Server) loadedSite(w http.ResponseWriter) (*cache.Site, bool) {
	site := s.Site()
	if site == nil {
		writeError(w, http.StatusServiceUnavailable, "site is loading")
		return nil, false
	}
	return site, true
}

// handleIndex serves the live shell on the home page. The fragment never
// reaches the server, so the client reports its hash over /ws once loaded.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	s.visitorFor(w, r)

	rt := router.New(site, nil)
	s.writePage(w, s.view(site, rt.State(), rt.Hash(), true))
}

// handleView renders the projection of ?hash= without a session. It backs
// share previews and headless capture.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	hash := r.URL.Query().Get("hash")
	rt := router.New(site, nil)
	err := rt.HandleHash(hash)
	track(router.Parse(hash), err)
	if err != nil {
		w.Header().Set("X-Route-Outcome", err.Error())
	}
	s.writePage(w, s.view(site, rt.State(), rt.Hash(), false))
}

func (s *Server) writePage(w http.ResponseWriter, v render.View) {
	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, v); err != nil {
		appLog.Error("page render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type stateResponse struct {
	Hash       string       `json:"hash"`
	State      router.State `json:"state"`
	Outcome    string       `json:"outcome,omitempty"`
	Generation uint64       `json:"generation"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	hash := r.URL.Query().Get("hash")
	rt := router.New(site, nil)
	err := rt.HandleHash(hash)
	track(router.Parse(hash), err)
	writeJSON(w, http.StatusOK, stateResponse{
		Hash:       rt.Hash(),
		State:      rt.State(),
		Outcome:    outcome(err),
		Generation: site.Generation,
	})
}

type eventsResponse struct {
	Generation uint64        `json:"generation"`
	Now        time.Time     `json:"now"`
	TimeSource string        `json:"time_source"`
	Timezone   string        `json:"timezone"`
	Upcoming   []model.Event `json:"upcoming"`
	Past       []model.Event `json:"past"`
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	if f := site.Failure(cache.SourceEvents); f != nil {
		writeError(w, http.StatusServiceUnavailable, f.UserMessage)
		return
	}
	tz := "UTC"
	if site.Location != nil {
		tz = site.Location.String()
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Generation: site.Generation,
		Now:        site.Now,
		TimeSource: site.TimeSource,
		Timezone:   tz,
		Upcoming:   nonNil(site.Events.Upcoming()),
		Past:       nonNil(site.Events.Past()),
	})
}

func (s *Server) handleTeam(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	if f := site.Failure(cache.SourceTeam); f != nil {
		writeError(w, http.StatusServiceUnavailable, f.UserMessage)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(site.Team.Members()))
}

type seriesResponse struct {
	model.Series
	Hash   string        `json:"hash"`
	Events []model.Event `json:"events"`
}

func (s *Server) handleSeries(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	if f := site.Failure(cache.SourceSeries); f != nil {
		writeError(w, http.StatusServiceUnavailable, f.UserMessage)
		return
	}
	catalog := site.Series.Series()
	out := make([]seriesResponse, 0, len(catalog))
	for _, sr := range catalog {
		out = append(out, seriesResponse{
			Series: sr,
			Hash:   router.SeriesHash(sr.Title),
			Events: nonNil(site.Series.Events(sr.Title)),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	if f := site.Failure(cache.SourceFormats); f != nil {
		writeError(w, http.StatusServiceUnavailable, f.UserMessage)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(site.Formats))
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	if f := site.Failure(cache.SourceEvents); f != nil {
		writeError(w, http.StatusServiceUnavailable, f.UserMessage)
		return
	}
	body, err := s.exporter.Calendar(site.Events.All())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeCalendar(w, "events.ics", body)
}

func (s *Server) handleEventCalendar(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	site, ok := s.loadedSite(w)
	if !ok {
		return
	}
	id := ps.ByName("id")
	ev, found := site.Event(id)
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	body, err := s.exporter.Event(ev)
	if errors.Is(err, ics.ErrNoSchedulableEvents) {
		writeError(w, http.StatusUnprocessableEntity, "event has no start time")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeCalendar(w, "event-"+id+".ics", body)
}

func writeCalendar(w http.ResponseWriter, filename, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(body))
}

// handleQR encodes the public link of ?hash= as a PNG QR code.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	route := router.Parse(q.Get("hash"))
	if route.Kind == router.RouteUnknown {
		writeError(w, http.StatusBadRequest, "unknown hash")
		return
	}
	size := parseIntDefault(q.Get("size"), defaultQRSize)
	size = max(minQRSize, min(size, maxQRSize))

	png, err := qrcode.Encode(s.cfg.PublicURL+route.Hash, qrcode.Medium, size)
	if err != nil {
		appLog.Error("qr encode failed", err, "hash", route.Hash)
		writeError(w, http.StatusInternalServerError, "qr encode failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// nonNil keeps empty listings encoding as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
