package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"eventsite/internal/cache"
	appLog "eventsite/internal/log"
	"eventsite/internal/render"
	"eventsite/internal/router"
)

const (
	wsReadLimit    = 4096
	wsWriteTimeout = 10 * time.Second
)

// Client message types.
const (
	msgHash     = "hash"
	msgDismiss  = "dismiss"
	msgClose    = "close"
	msgSpeakers = "speakers"
)

type clientMessage struct {
	Type string `json:"type"`
	Hash string `json:"hash,omitempty"`
}

// frame is the reply to every client message.
type frame struct {
	Hash    string          `json:"hash"`
	State   router.State    `json:"state"`
	HTML    string          `json:"html"`
	Effects []router.Effect `json:"effects"`
	// Outcome is set when the input was not applied.
	Outcome string `json:"outcome,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range s.cfg.CORSOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return "http://"+r.Host == origin || "https://"+r.Host == origin
		},
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := visitorID(r)
	v := s.visitors.get(id)

	var header http.Header
	if v.id != id {
		header = http.Header{"Set-Cookie": []string{newSessionCookie(v.id).String()}}
	}

	conn, err := s.upgrader().Upgrade(w, r, header)
	if err != nil {
		// Upgrade has already written the HTTP error.
		appLog.Warn("websocket upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	view := &connView{}
	appLog.Debug("websocket connected", "visitor", v.id, "remote", r.RemoteAddr)
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				appLog.Debug("websocket read ended", "visitor", v.id, "err", err)
			}
			return
		}
		s.visitors.touch(v)

		site := s.Site()
		if site == nil {
			continue
		}
		out, err := s.apply(view, site, msg)
		if err != nil {
			appLog.Error("render failed", err, "visitor", v.id)
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			appLog.Debug("websocket write failed", "visitor", v.id, "err", err)
			return
		}
	}
}

// apply runs one client message through the connection's router and
// renders the resulting state.
func (s *Server) apply(view *connView, site *cache.Site, msg clientMessage) (frame, error) {
	view.bind(site)
	rt := view.rt

	var err error
	switch msg.Type {
	case msgHash:
		err = rt.HandleHash(msg.Hash)
		track(router.Parse(msg.Hash), err)
	case msgDismiss:
		rt.Dismiss()
	case msgClose:
		if top, ok := rt.State().Top(); ok {
			rt.Close(top.Kind)
		}
	case msgSpeakers:
		err = rt.OpenSpeakerList()
	default:
		err = errUnknownMessage
	}

	st := rt.State()
	html, rerr := s.renderer.Main(s.view(site, st, rt.Hash(), true))
	if rerr != nil {
		return frame{}, rerr
	}
	return frame{
		Hash:    rt.Hash(),
		State:   st,
		HTML:    html,
		Effects: view.rec.Drain(),
		Outcome: outcome(err),
	}, nil
}

var errUnknownMessage = errors.New("web: unknown message type")

func outcome(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Server) view(site *cache.Site, st router.State, hash string, live bool) render.View {
	return render.View{
		Site:      site,
		State:     st,
		Hash:      hash,
		HomeLimit: s.cfg.HomeUpcomingLimit,
		Live:      live,
		Title:     siteTitle,
	}
}
