package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docopt/docopt-go"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenibako/autosave-form/autosave"
	"github.com/zenibako/autosave-form/store"
	"github.com/zenibako/autosave-form/templates"
)

const version = "0.1.0"

const usage = `Auto-saving form server.

Serves one form template backed by a sqlite table. Every record is edited at
/forms/<form>/<id>; the record is created on first visit.

Usage:
    autosave-server [--addr=<addr>] [--db=<path>] [--template=<path>]
        [--config=<path>] [--osc=<host:port>] [--debug]
    autosave-server -h | --help
    autosave-server --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --addr=<addr>        Address to listen on [default: localhost:8080].
    --db=<path>          sqlite database [default: autosave.sqlite3].
    --template=<path>    JSON form template. The demo form is used without one.
    --config=<path>      JSON timing and animation config.
    --osc=<host:port>    Publish changed fields as OSC messages to this peer.
    --debug              Log at debug level.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(opts); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(opts docopt.Opts) error {
	if debug, _ := opts.Bool("--debug"); debug {
		log.SetLevel(log.DebugLevel)
	}

	srv, err := newServer(opts)
	if err != nil {
		return err
	}
	defer srv.store.Close()

	addr, _ := opts.String("--addr")
	httpServer := &http.Server{Addr: addr, Handler: srv.router()}

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Serving %s forms on http://%s/forms/%s/<id>", srv.tmpl.Name, addr, srv.tmpl.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server listen failed", "error", err)
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	log.Info("Signal caught", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warnf("Failed to shut down cleanly: %v", err)
	}
	wg.Wait()
	return nil
}

type server struct {
	store    *store.Store
	tmpl     *templates.FormTemplate
	config   autosave.Config
	notifier autosave.Notifier
	metrics  *autosave.Metrics
	registry *prometheus.Registry
	mu       sync.Mutex
}

func newServer(opts docopt.Opts) (*server, error) {
	s := &server{
		tmpl:     templates.DemoTemplate(),
		config:   autosave.DefaultConfig(),
		registry: prometheus.NewRegistry(),
	}

	if path, _ := opts.String("--template"); path != "" {
		tmpl, err := templates.LoadFormTemplate(path)
		if err != nil {
			return nil, err
		}
		s.tmpl = tmpl
	}
	if path, _ := opts.String("--config"); path != "" {
		cfg, err := autosave.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		s.config = cfg
	}
	if peer, _ := opts.String("--osc"); peer != "" {
		host, port, err := splitHostPort(peer)
		if err != nil {
			return nil, err
		}
		s.notifier = autosave.NewOSCNotifier(host, port)
		log.Infof("Publishing changed fields to %s:%d", host, port)
	}

	dbPath, _ := opts.String("--db")
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureTable(context.Background(), s.tmpl.Table, s.tmpl.Columns()); err != nil {
		_ = st.Close()
		return nil, err
	}
	s.store = st

	s.registry.MustRegister(collectors.NewGoCollector())
	s.metrics = autosave.NewMetrics(s.registry)
	return s, nil
}

func (s *server) router() http.Handler {
	handler := autosave.NewHandler(s.tmpl.Name, s.provideForm)
	handler.SetMetrics(s.metrics)

	r := mux.NewRouter()
	r.Use(accessLog)

	r.Methods(http.MethodGet).Path("/forms/{form}/{id}").HandlerFunc(s.renderForm)
	r.Methods(http.MethodPost).Path("/forms/{form}/{id}/submit").HandlerFunc(s.serialize(handler.Submit))
	r.Methods(http.MethodGet).Path("/forms/{form}/{id}/config").HandlerFunc(handler.Config)
	r.Methods(http.MethodGet).Path("/autosave.js").HandlerFunc(serveRuntime)
	r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Info("Handled request", "method", r.Method, "url", r.URL, "status", m.Code, "bytes", m.Written, "duration", m.Duration)
	})
}

// serialize runs one submit at a time so two saves of a record never
// interleave their snapshots
func (s *server) serialize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next(w, r)
	}
}

// provideForm loads the addressed record and binds the template's controls
// to it
func (s *server) provideForm(r *http.Request) (*autosave.Form, error) {
	vars := mux.Vars(r)
	if vars["form"] != s.tmpl.Name {
		return nil, fmt.Errorf("form %s: %w", vars["form"], autosave.ErrFormNotFound)
	}

	rec, err := s.store.FirstOrCreate(r.Context(), s.tmpl.Table, vars["id"], s.tmpl.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", vars["id"], err)
	}

	form, err := s.tmpl.Build(s.tmpl.Name, rec)
	if err != nil {
		return nil, err
	}
	form.SetConfig(s.config)
	if s.notifier != nil {
		form.SetNotifier(s.notifier)
	}
	form.OnSubmit(saveRecord(rec))
	return form, nil
}

func splitHostPort(peer string) (string, int, error) {
	i := strings.LastIndex(peer, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("OSC peer %q must be host:port", peer)
	}
	port, err := strconv.Atoi(peer[i+1:])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid OSC port in %q", peer)
	}
	host := peer[:i]
	if host == "" {
		host = "127.0.0.1"
	}
	return host, port, nil
}
