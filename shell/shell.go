// Package shell is the composition root: it owns the route table, the page
// chrome and the loading of remote pods, and it hands every mounted pod the
// same event bus, translation engine and shared scope.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/eventbus"
	"github.com/GoCodeAlone/micropods/i18n"
	"github.com/GoCodeAlone/micropods/internal/httpserver"
)

// EngineFactory creates the translation engine. i18n.Initialize satisfies it.
type EngineFactory func(table i18n.ResourceTable, defaultLanguage string, opts ...i18n.Option) (*i18n.Engine, error)

// Options configure a Shell.
type Options struct {
	Config *micropods.Config
	Logger micropods.Logger

	// Client fetches remote manifests and bundles.
	Client *http.Client

	// Bus and Shared replace the bus and scope the shell would create.
	Bus    *eventbus.Bus
	Shared *micropods.SharedScope

	// NewEngine defaults to a private engine per shell.
	NewEngine EngineFactory

	// Views replaces the view of a route, keyed by route path.
	Views map[string]View
}

// Route maps a URL path to a mounted view.
type Route struct {
	Path  string
	Title string
	Pod   string
	Color string
	View  View

	mu      sync.Mutex
	mounted bool
}

func (r *Route) mount(ctx context.Context, host *Host) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted {
		return nil
	}
	if err := r.View.Mount(WithHost(ctx, host), host); err != nil {
		return err
	}
	r.mounted = true
	return nil
}

func (r *Route) unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mounted {
		r.View.Unmount()
		r.mounted = false
	}
}

// Shell serves the composed application.
type Shell struct {
	config      *micropods.Config
	composition *micropods.Composition
	loader      *Loader
	base        Host
	host        atomic.Pointer[Host]
	newEngine   EngineFactory
	routes      []*Route
	notFound    *Route
	toaster     *Toaster
	boundary    *Boundary
	router      chi.Router
	server      *httpserver.Server
	logger      micropods.Logger

	mu          sync.Mutex
	initialized bool
}

// New composes the configured pods and builds the route table. Composition
// errors are returned here, before anything is served.
func New(opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = micropods.DefaultConfig()
	}
	logger := micropods.LoggerOrNop(opts.Logger)

	composition, err := cfg.Compose(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compose application: %w", err)
	}
	shellPod, err := composition.Pod(cfg.Shell.Pod)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoShellPod, cfg.Shell.Pod)
	}

	buildOpts, err := cfg.BuildOptions(logger)
	if err != nil {
		return nil, err
	}
	loader, err := NewLoader(LoaderOptions{
		Environment: buildOpts.Environment,
		Remotes:     buildOpts.Remotes,
		Shared:      buildOpts.Shared,
		Client:      opts.Client,
		Timeout:     cfg.Shell.LoadTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	bus := opts.Bus
	if bus == nil {
		bus = eventbus.New(eventbus.WithLogger(logger))
	}
	scope := opts.Shared
	if scope == nil {
		scope = micropods.NewSharedScope(buildOpts.Shared, logger)
	}
	toaster, err := NewToaster(bus, ToasterOptions{TTL: cfg.Shell.ToastTTL, Logger: logger})
	if err != nil {
		return nil, err
	}
	newEngine := opts.NewEngine
	if newEngine == nil {
		newEngine = func(table i18n.ResourceTable, lang string, o ...i18n.Option) (*i18n.Engine, error) {
			return i18n.New(table, lang, o...), nil
		}
	}

	s := &Shell{
		config:      cfg,
		composition: composition,
		loader:      loader,
		base:        Host{Bus: bus, Shared: scope, Logger: logger},
		newEngine:   newEngine,
		toaster:     toaster,
		boundary:    &Boundary{Logger: logger},
		logger:      logger,
	}

	for _, pod := range composition.Pods() {
		if pod.Route == "" {
			continue
		}
		route := &Route{Path: pod.Route, Title: pod.Title, Pod: pod.Name, Color: pod.Color}
		switch {
		case opts.Views[pod.Route] != nil:
			route.View = opts.Views[pod.Route]
		case pod.Name == shellPod.Name:
			route.View = &StaticView{Heading: "This is the shell module"}
		default:
			route.View = NewRemoteView(loader, pod.Name, "./App")
		}
		if route.Title == "" {
			route.Title = micropods.ShortPodName(pod.Name)
		}
		s.routes = append(s.routes, route)
	}
	s.notFound = &Route{Path: "*", Title: "Not found", View: &StaticView{Heading: "Not found"}}

	s.router = s.newRouter()
	s.server = httpserver.New(httpserver.Config{
		Host:            cfg.Shell.Host,
		Port:            cfg.Shell.Port,
		ShutdownTimeout: cfg.Shell.ShutdownTimeout,
	}, s.router, logger)
	return s, nil
}

// Init loads the translation bundles of every pod that exposes one and creates
// the translation engine. A pod whose bundle cannot be loaded is skipped; its
// keys render raw. Calling Init again has no effect.
func (s *Shell) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	var bundles []i18n.Bundle
	for _, pod := range s.composition.Pods() {
		if pod.Name == s.config.Shell.Pod || !pod.ExposesTranslations() {
			continue
		}
		rp, err := s.loader.Load(ctx, pod.Name)
		if err != nil {
			s.logger.Warn("Translations unavailable", "pod", pod.Name, "error", err)
			continue
		}
		if rp.Bundle != nil {
			bundles = append(bundles, *rp.Bundle)
		}
	}

	table := i18n.BuildResourceTable(bundles, s.config.Languages)
	engine, err := s.newEngine(table, s.config.DefaultLanguage, i18n.WithLogger(s.logger))
	if err != nil && !errors.Is(err, i18n.ErrAlreadyInitialized) {
		return fmt.Errorf("failed to initialize translations: %w", err)
	}
	if err != nil {
		s.logger.Warn("Reusing existing translation engine")
	}

	if err := s.toaster.Start(); err != nil {
		return err
	}
	host := s.base
	host.Translations = engine
	s.host.Store(&host)
	s.initialized = true
	s.logger.Info("Shell initialized", "bundles", len(bundles), "languages", table.Languages(), "routes", len(s.routes))
	return nil
}

// Start initializes the shell and serves it.
func (s *Shell) Start(ctx context.Context) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	return s.server.Start(ctx)
}

// Addr returns the address the shell listens on once started.
func (s *Shell) Addr() string {
	return s.server.Addr()
}

// Close stops serving and tears down every mounted view and subscription.
func (s *Shell) Close(ctx context.Context) error {
	var errs []error
	if err := s.server.Stop(ctx); err != nil && !errors.Is(err, httpserver.ErrServerNotStarted) {
		errs = append(errs, err)
	}
	for _, route := range s.routes {
		route.unmount()
	}
	s.notFound.unmount()
	s.toaster.Close()
	return errors.Join(errs...)
}

// Handler returns the shell's HTTP handler. Pages answer 503 until Init has
// returned.
func (s *Shell) Handler() http.Handler {
	return s.router
}

// Host returns the context handed to mounted pods. Before Init has returned
// it has no translation engine.
func (s *Shell) Host() *Host {
	if host := s.host.Load(); host != nil {
		return host
	}
	host := s.base
	return &host
}

// Routes returns the route table in navigation order.
func (s *Shell) Routes() []*Route {
	return s.routes
}

// Toaster returns the notification toaster.
func (s *Shell) Toaster() *Toaster {
	return s.toaster
}

func (s *Shell) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	for _, route := range s.routes {
		r.Get(route.Path, s.page(route, http.StatusOK))
	}
	r.NotFound(s.page(s.notFound, http.StatusNotFound))

	r.Post("/language/{code}", s.changeLanguage)
	r.Post("/events", s.ingestEvent)
	r.Get("/toasts", s.listToasts)
	r.Get("/status", s.status)
	return r
}

func (s *Shell) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "requestId", middleware.GetReqID(r.Context()))
	})
}

func (s *Shell) page(route *Route, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := s.host.Load()
		if host == nil {
			http.Error(w, "shell not initialized", http.StatusServiceUnavailable)
			return
		}
		content, err := s.boundary.Render(route.Path, func(buf io.Writer) error {
			if err := route.mount(r.Context(), host); err != nil {
				return err
			}
			return route.View.Render(buf, r)
		})
		code := status
		if err != nil {
			code = http.StatusBadGateway
		}
		s.renderLayout(w, host.Translations, route, code, content)
	}
}

func (s *Shell) renderLayout(w http.ResponseWriter, engine *i18n.Engine, active *Route, status int, content template.HTML) {
	data := layoutData{
		Title:    active.Title,
		Language: engine.Language(),
		Position: ToastPosition,
		Toasts:   s.toaster.Toasts(),
		Content:  content,
	}
	for _, route := range s.routes {
		data.Nav = append(data.Nav, navItem{Path: route.Path, Title: route.Title, Active: route == active})
	}
	for _, lang := range s.config.Languages {
		code := strings.TrimSpace(lang)
		data.Languages = append(data.Languages, languageItem{Code: code, Label: languageLabel(code), Active: code == data.Language})
	}
	for _, pod := range s.composition.Pods() {
		data.Legend = append(data.Legend, legendItem{Pod: pod.Name, Color: pod.Color})
	}

	var buf bytes.Buffer
	if err := layoutTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render layout", "error", err)
		http.Error(w, DefaultFallback, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Shell) changeLanguage(w http.ResponseWriter, r *http.Request) {
	host := s.host.Load()
	if host == nil {
		http.Error(w, "shell not initialized", http.StatusServiceUnavailable)
		return
	}
	engine := host.Translations
	engine.ChangeLanguage(chi.URLParam(r, "code"))

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, map[string]string{"language": engine.Language()})
		return
	}
	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Shell) ingestEvent(w http.ResponseWriter, r *http.Request) {
	ce, err := cloudevents.NewEventFromHTTPRequest(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid cloud event: %v", err), http.StatusBadRequest)
		return
	}
	event, err := eventbus.FromCloudEvent(*ce)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.base.Bus.PublishEvent(r.Context(), event); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Shell) listToasts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.toaster.Toasts())
}

// Status is the diagnostic snapshot served at /status.
type Status struct {
	Environment string            `json:"environment"`
	Language    string            `json:"language"`
	Routes      []string          `json:"routes"`
	Loaded      []string          `json:"loaded"`
	Shared      map[string]string `json:"shared"`
	Bus         eventbus.Stats    `json:"bus"`
}

// Status reports what the shell has loaded so far.
func (s *Shell) Status() Status {
	st := Status{
		Environment: s.composition.Environment.String(),
		Loaded:      s.loader.Loaded(),
		Shared:      map[string]string{},
		Bus:         s.base.Bus.Stats(),
	}
	if host := s.host.Load(); host != nil {
		st.Language = host.Translations.Language()
	}
	for _, route := range s.routes {
		st.Routes = append(st.Routes, route.Path)
	}
	for _, pkg := range s.base.Shared.Packages() {
		st.Shared[pkg], _ = s.base.Shared.Version(pkg)
	}
	return st
}

func (s *Shell) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
