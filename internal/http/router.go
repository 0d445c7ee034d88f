// Package http exposes transcript analysis over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/transcript"
)

const maxBodyBytes = 10 << 20

// ReportPublisher receives finished reports.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *models.Report) error
}

// Handlers holds the dependencies of the API routes.
type Handlers struct {
	Analyzer *analysis.Analyzer
	// Publisher is optional.
	Publisher ReportPublisher
	// DefaultKinds apply when a request names no analyses. Empty means all.
	DefaultKinds []analysis.Kind
	// Ready reports readiness. Nil means always ready.
	Ready func() bool
}

type batchRequest struct {
	Analyses []string                     `json:"analyses,omitempty"`
	Approach string                       `json:"approach,omitempty"`
	Calls    map[string]models.Transcript `json:"calls"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if h.Ready != nil && !h.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1/analyze", func(r chi.Router) {
		r.Post("/", h.analyze)
		r.Post("/batch", h.analyzeBatch)
	})

	return r
}

func (h *Handlers) kinds(names []string) ([]analysis.Kind, error) {
	if len(names) == 0 && len(h.DefaultKinds) > 0 {
		return h.DefaultKinds, nil
	}
	return analysis.ParseKinds(names)
}

func (h *Handlers) approach(name string) (analysis.Approach, error) {
	approach, err := analysis.ParseApproach(name)
	if err != nil {
		return "", err
	}
	return h.Analyzer.ResolveApproach(approach)
}

// analyzeError writes a failed analysis. Anything other than a context error
// came from the classifier.
func analyzeError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusBadGateway, err)
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var env models.TranscriptEnvelope
	if err := decodeBody(w, r, &env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if env.Transcript == nil {
		writeError(w, http.StatusBadRequest, errors.New("transcript is required"))
		return
	}
	kinds, err := h.kinds(env.Analyses)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	approach, err := h.approach(env.Approach)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	callId := env.CallID
	if callId == "" {
		if callId, err = transcript.CallID(env.Transcript); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	report, err := h.Analyzer.Analyze(r.Context(), callId, env.Transcript, approach, kinds...)
	if err != nil {
		analyzeError(w, err)
		return
	}
	h.publish(r.Context(), report)
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Calls == nil {
		writeError(w, http.StatusBadRequest, errors.New("calls is required"))
		return
	}
	kinds, err := h.kinds(req.Analyses)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	approach, err := h.approach(req.Approach)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := h.Analyzer.AnalyzeBatch(r.Context(), req.Calls, approach, kinds...)
	if err != nil {
		analyzeError(w, err)
		return
	}
	for _, report := range summary.Reports {
		h.publish(r.Context(), report)
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) publish(ctx context.Context, report *models.Report) {
	if h.Publisher == nil {
		return
	}
	if err := h.Publisher.PublishReport(ctx, report); err != nil {
		log.Error().Err(err).Str("callId", report.CallID).Msg("Failed to publish report")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("requestId", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
