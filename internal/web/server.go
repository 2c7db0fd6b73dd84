package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/stormwater-tools/stormstats/api"
	"github.com/stormwater-tools/stormstats/internal/config"
	"github.com/stormwater-tools/stormstats/internal/db"
	"github.com/stormwater-tools/stormstats/internal/hydro"
	"github.com/stormwater-tools/stormstats/internal/swaggerui"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed content/index.md
var indexMarkdown []byte

// Paths of the documentation page.
const (
	DocsPath        = "/api/docs/"
	AssetsPath      = DocsPath + "assets/"
	InitializerPath = DocsPath + "swagger-initializer.js"
)

// Server is the HTTP server for the stormstats API and its documentation.
type Server struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	db       *db.DB
	doc      *api.Document
	analyzer *hydro.Analyzer
	widget   *swaggerui.Context
	mux      *http.ServeMux
	tmpl     *template.Template
	intro    template.HTML
	server   *http.Server
}

// New creates a new web server. The docs widget is not initialized until
// LoadDocs is called.
func New(cfg *config.Config, log *zap.SugaredLogger, database *db.DB, doc *api.Document) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		db:       database,
		doc:      doc,
		analyzer: hydro.NewAnalyzer(cfg.DrainInterval()),
		widget:   &swaggerui.Context{},
		mux:      http.NewServeMux(),
	}

	s.parseTemplates()
	s.intro = renderMarkdown(indexMarkdown)
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.logRequests(s.mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.log.Infow("listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Widget returns the context the docs widget handle is published in.
func (s *Server) Widget() *swaggerui.Context {
	return s.widget
}

func (s *Server) parseTemplates() {
	funcMap := template.FuncMap{
		"methodClass": func(method string) string {
			switch method {
			case http.MethodGet:
				return "method-get"
			case http.MethodPost:
				return "method-post"
			default:
				return "method-other"
			}
		},
	}

	s.tmpl = template.Must(
		template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"),
	)
}

func (s *Server) registerRoutes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("POST /api/rain", s.handleAnalysis(hydro.KindRain))
	s.mux.HandleFunc("POST /api/flow", s.handleAnalysis(hydro.KindFlow))
	s.mux.HandleFunc("POST /api/rainflow", s.handleAnalysis(hydro.KindRainFlow))
	s.mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	s.mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/openapi.yaml", s.handleOpenAPISpec)
	s.mux.HandleFunc("GET /api/openapi.json", s.handleOpenAPIJSON)

	s.mux.HandleFunc("GET /api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, DocsPath, http.StatusMovedPermanently)
	})
	s.mux.HandleFunc("GET "+DocsPath+"{$}", s.handleDocsPage)
	s.mux.HandleFunc("GET "+InitializerPath, s.handleInitializer)
	s.mux.HandleFunc("GET "+AssetsPath+"{file}", s.handleDocsAsset)
}

// render executes a page template inside the layout.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Errorw("render template", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	layoutData := struct {
		Content template.HTML
		Version string
	}{
		Content: template.HTML(buf.String()),
		Version: config.Version,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "layout.html", layoutData); err != nil {
		s.log.Errorw("render layout", "template", name, "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPISpec)
}

func (s *Server) handleOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	raw, err := s.doc.JSON()
	if err != nil {
		s.log.Errorw("render openapi json", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, docs := s.widget.UI()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": config.Version,
		"docs":    docs,
	})
}
