package web

import (
	"bytes"
	"fmt"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/stormwater-tools/stormstats/internal/metrics"
	"github.com/stormwater-tools/stormstats/internal/swaggerui"
)

// docsAssets are the bundle files served under AssetsPath.
var docsAssets = map[string]bool{
	"swagger-ui.css":           true,
	"swagger-ui.css.map":       true,
	"swagger-ui-bundle.js":     true,
	"swagger-ui-bundle.js.map": true,
	"favicon-16x16.png":        true,
	"favicon-32x32.png":        true,
}

var assetHandler = httpSwagger.Handler()

type docsPage struct {
	Title           string
	SpecURL         string
	AssetsPath      string
	InitializerPath string
}

// hostPage renders the documentation page markup.
func (s *Server) hostPage() ([]byte, error) {
	var buf bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&buf, "docs.html", docsPage{
		Title:           s.doc.Title(),
		SpecURL:         s.cfg.SpecURL,
		AssetsPath:      AssetsPath,
		InitializerPath: InitializerPath,
	})
	if err != nil {
		return nil, fmt.Errorf("render docs page: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadDocs initializes the docs widget from the page markup and publishes
// its handle. It is called once at startup; the server serves the
// initializer script only after it succeeds.
func (s *Server) LoadDocs() (*swaggerui.UI, error) {
	return s.loadDocs(swaggerui.NewBundle(DocsPath))
}

func (s *Server) loadDocs(lib swaggerui.Library) (*swaggerui.UI, error) {
	page, err := s.hostPage()
	if err != nil {
		return nil, err
	}
	doc, err := swaggerui.ParseDocument(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	ui, err := swaggerui.NewBootstrapper(lib, s.widget).Load(doc)
	if err != nil {
		metrics.WidgetInits.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	metrics.WidgetInits.WithLabelValues(metrics.OutcomeOK).Inc()
	cfg := ui.Config()
	s.log.Infow("docs widget initialized",
		"spec_url", cfg.SpecURL,
		"mount", cfg.MountSelector,
		"plugins", cfg.PluginNames(),
	)
	return ui, nil
}

func (s *Server) handleDocsPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.hostPage()
	if err != nil {
		s.log.Errorw("docs page", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleInitializer(w http.ResponseWriter, r *http.Request) {
	ui, ok := s.widget.UI()
	if !ok {
		http.Error(w, "docs not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(ui.Script())
}

func (s *Server) handleDocsAsset(w http.ResponseWriter, r *http.Request) {
	if !docsAssets[r.PathValue("file")] {
		http.NotFound(w, r)
		return
	}
	assetHandler.ServeHTTP(w, r)
}
