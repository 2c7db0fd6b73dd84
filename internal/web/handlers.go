package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/stormwater-tools/stormstats/internal/db"
	"github.com/stormwater-tools/stormstats/internal/hydro"
	"github.com/stormwater-tools/stormstats/internal/metrics"
)

// maxBodyBytes bounds a posted series payload.
const maxBodyBytes = 32 << 20

const errInvalidData = "Invalid data format"

var sanitizer = bluemonday.UGCPolicy()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("writeJSON: encode error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// renderMarkdown converts markdown to sanitized HTML.
func renderMarkdown(md []byte) template.HTML {
	gm := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := gm.Convert(md, &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(string(md)))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}

type operationLink struct {
	Method  string
	Path    string
	Summary string
	Link    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ui, ready := s.widget.UI()
	var ops []operationLink
	for _, op := range s.doc.Operations() {
		l := operationLink{Method: op.Method, Path: op.Path, Summary: op.Summary}
		if ready {
			l.Link = ui.DeepLink(op.Tag, op.OperationID)
		}
		ops = append(ops, l)
	}
	s.render(w, "index.html", struct {
		Intro      template.HTML
		Operations []operationLink
		DocsReady  bool
	}{
		Intro:      s.intro,
		Operations: ops,
		DocsReady:  ready,
	})
}

type analysisResponse struct {
	Statistics hydro.Statistics `json:"statistics"`
	AnalysisID string           `json:"analysis_id,omitempty"`
}

func (s *Server) handleAnalysis(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			metrics.AnalysesTotal.WithLabelValues(kind, metrics.OutcomeInvalid).Inc()
			writeError(w, http.StatusBadRequest, errInvalidData)
			return
		}

		p, err := hydro.DecodePayload(body)
		var stats hydro.Statistics
		if err == nil {
			stats, err = s.analyzer.Analyze(kind, p)
		}
		metrics.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, hydro.ErrInvalidData) {
				s.log.Debugw("rejected payload", "kind", kind, "error", err)
				metrics.AnalysesTotal.WithLabelValues(kind, metrics.OutcomeInvalid).Inc()
				writeError(w, http.StatusBadRequest, errInvalidData)
				return
			}
			s.log.Errorw("analysis failed", "kind", kind, "error", err)
			metrics.AnalysesTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		metrics.RainEvents.Add(float64(rainEventCount(kind, stats)))

		resp := analysisResponse{Statistics: stats}
		if s.cfg.Persist && s.db != nil {
			id, err := s.store(kind, body, stats)
			if err != nil {
				s.log.Errorw("store analysis", "kind", kind, "error", err)
				metrics.AnalysesTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			resp.AnalysisID = id
		}
		metrics.AnalysesTotal.WithLabelValues(kind, metrics.OutcomeOK).Inc()
		writeJSON(w, http.StatusOK, resp)
	}
}

func rainEventCount(kind string, stats hydro.Statistics) int {
	switch kind {
	case hydro.KindRain:
		if col, ok := stats["first_rain"].([]any); ok {
			return len(col)
		}
	case hydro.KindRainFlow:
		if t, ok := stats[hydro.Rain].(hydro.Table); ok {
			return t.Len()
		}
	}
	return 0
}

func (s *Server) store(kind string, body []byte, stats hydro.Statistics) (string, error) {
	result, err := json.Marshal(stats)
	if err != nil {
		return "", err
	}
	return s.db.InsertAnalysis(&db.Analysis{
		Kind:    kind,
		Request: string(body),
		Result:  string(result),
	})
}

type analysisView struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	CreatedAt  string          `json:"created_at"`
	Statistics json.RawMessage `json:"statistics"`
}

func toAnalysisView(a db.Analysis) analysisView {
	return analysisView{
		ID:         a.ID,
		Kind:       a.Kind,
		CreatedAt:  a.CreatedAt,
		Statistics: json.RawMessage(a.Result),
	}
}

func queryInt(r *http.Request, name string, fallback int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 50)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	analyses, err := s.db.ListAnalyses(limit, offset)
	if err != nil {
		s.log.Errorw("list analyses", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	views := make([]analysisView, 0, len(analyses))
	for _, a := range analyses {
		views = append(views, toAnalysisView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": views})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.db.GetAnalysis(r.PathValue("id"))
	if err != nil {
		s.log.Errorw("get analysis", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisView(*a))
}
