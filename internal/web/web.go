package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"eventsite/internal/cache"
	"eventsite/internal/config"
	"eventsite/internal/ics"
	appLog "eventsite/internal/log"
	"eventsite/internal/render"
)

//go:embed client.js
var clientJS []byte

const siteTitle = "Events"

// Server serves the site, the live hash channel and the JSON/iCalendar APIs.
// The active Site is swapped atomically on reload; each websocket
// connection notices the new generation on its next message.
type Server struct {
	cfg      *config.Config
	renderer *render.Renderer
	exporter *ics.Exporter
	router   *httprouter.Router
	visitors *visitorStore
	limiter  *RateLimiter

	site atomic.Pointer[cache.Site]
}

// NewServer constructs a Server. SetSite must be called before serving.
func NewServer(cfg *config.Config, renderer *render.Renderer) *Server {
	s := &Server{
		cfg:      cfg,
		renderer: renderer,
		exporter: ics.NewExporter(cfg.PublicURL, siteTitle),
		router:   httprouter.New(),
		visitors: newVisitorStore(sessionIdleTimeout),
		limiter:  NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	}
	s.registerRoutes()
	return s
}

// SetSite publishes site as the active generation.
func (s *Server) SetSite(site *cache.Site) { s.site.Store(site) }

// Site returns the active generation.
func (s *Server) Site() *cache.Site { return s.site.Load() }

// Handler returns the root handler: CORS, security headers, request logging.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return loggingMiddleware(securityHeaders(c.Handler(s.router)))
}

func (s *Server) registerRoutes() {
	lim := s.limiter.Limit

	s.router.GET("/", s.handleIndex)
	s.router.GET("/client.js", s.handleClientJS)
	s.router.GET("/ws", s.handleWS)
	s.router.GET("/health", s.handleHealth)
	s.router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.GET("/view", lim(s.handleView))
	s.router.GET("/api/state", lim(s.handleState))
	s.router.GET("/api/events", lim(s.handleEvents))
	s.router.GET("/api/team", lim(s.handleTeam))
	s.router.GET("/api/series", lim(s.handleSeries))
	s.router.GET("/api/formats", lim(s.handleFormats))
	s.router.GET("/calendar.ics", lim(s.handleCalendar))
	s.router.GET("/events/:id/calendar.ics", lim(s.handleEventCalendar))
	s.router.GET("/share/qr", lim(s.handleQR))
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.visitors.sweepEvery(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.Site() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleClientJS(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(clientJS)
}

// securityHeaders sets the response headers every page gets.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start).String(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
