package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"eventsite/internal/bootstrap"
	"eventsite/internal/cache"
	"eventsite/internal/capture"
	"eventsite/internal/config"
	appLog "eventsite/internal/log"
	"eventsite/internal/render"
	"eventsite/internal/router"
	"eventsite/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	hash       string
	snapshot   string
}

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("failed to load .env", "err", err)
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()

	// CLI --listen overrides config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	conf.Normalize()
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("eventsite starting",
		"listen", conf.Listen,
		"public_url", conf.PublicURL,
		"timezone", conf.Timezone,
		"events_source", conf.Sources.Events,
		"reload", conf.Reload,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loader := bootstrap.NewLoader(conf)
	site, report := loader.Load(ctx)

	if flags.once {
		if err := printState(site, flags.hash, report); err != nil {
			appLog.Error("failed to write state", err)
			os.Exit(1)
		}
		if !report.OK() {
			os.Exit(2)
		}
		return
	}

	renderer, err := render.New()
	if err != nil {
		appLog.Error("failed to parse templates", err)
		os.Exit(1)
	}
	server := web.NewServer(conf, renderer)
	server.SetSite(site)

	if flags.snapshot != "" {
		if err := snapshot(ctx, server, conf, flags.hash, flags.snapshot); err != nil {
			appLog.Error("snapshot failed", err, "hash", flags.hash)
			os.Exit(1)
		}
		appLog.Info("snapshot written", "path", flags.snapshot, "hash", flags.hash)
		return
	}

	sched := cron.New()
	if conf.Reload != "" {
		_, err := sched.AddFunc(conf.Reload, func() {
			next, rep := loader.Load(ctx)
			server.SetSite(next)
			appLog.Info("site reloaded", "generation", rep.Generation, "ok", rep.OK())
		})
		if err != nil {
			appLog.Error("failed to schedule reload", err, "reload", conf.Reload)
			os.Exit(1)
		}
		sched.Start()
	}

	if err := server.ListenAndServe(ctx); err != nil {
		appLog.Error("http server failed", err)
		os.Exit(1)
	}

	<-sched.Stop().Done()
	appLog.Info("eventsite exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load once, print the state resolved for -hash as JSON and exit")
	flag.StringVar(&cfg.hash, "hash", "", "Initial location hash for -once and -snapshot, e.g. #event=42")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture the view of -hash to this PNG path and exit")

	flag.Parse()

	return cfg
}

type onceOutput struct {
	Hash       string       `json:"hash"`
	State      router.State `json:"state"`
	Outcome    string       `json:"outcome,omitempty"`
	Generation uint64       `json:"generation"`
	TimeSource string       `json:"time_source"`
	Events     int          `json:"events"`
	Upcoming   int          `json:"upcoming"`
	Past       int          `json:"past"`
	Team       int          `json:"team"`
	Formats    int          `json:"formats"`
	Malformed  int          `json:"malformed"`
	Failures   []string     `json:"failures,omitempty"`
}

func printState(site *cache.Site, hash string, report bootstrap.Report) error {
	rt, routeErr := bootstrap.Resolve(site, hash, nil)
	out := onceOutput{
		Hash:       rt.Hash(),
		State:      rt.State(),
		Generation: report.Generation,
		TimeSource: report.TimeSource,
		Events:     report.Events,
		Upcoming:   report.Upcoming,
		Past:       report.Past,
		Team:       report.Team,
		Formats:    report.Formats,
		Malformed:  report.Malformed,
	}
	if routeErr != nil {
		out.Outcome = routeErr.Error()
	}
	for _, f := range report.Failures {
		out.Failures = append(out.Failures, f.Error())
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// snapshot serves the site on an ephemeral loopback port for the duration
// of one headless capture.
func snapshot(ctx context.Context, server *web.Server, conf *config.Config, hash, path string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	base := "http://" + ln.Addr().String() + "/"
	return capture.WritePNG(ctx, capture.Options{
		URL:     capture.ViewURL(base, hash),
		Width:   conf.Capture.Width,
		Height:  conf.Capture.Height,
		Timeout: conf.Capture.Timeout,
	}, path)
}
