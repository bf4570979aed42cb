package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/artpar/neris-schemas/adapters/metrics"
	"github.com/artpar/neris-schemas/app"
	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/artpar/neris-schemas/pkg/schemas"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ContentTypeSchema is the media type of served schema documents.
const ContentTypeSchema = "application/schema+json"

// Combiner builds the combined document on demand.
type Combiner interface {
	Combine(ctx context.Context) (schema.Document, app.CombineStats, error)
}

// SchemaHandler serves persisted schema documents.
type SchemaHandler struct {
	library  *schemas.Library
	combiner Combiner
	logger   zerolog.Logger
}

// NewSchemaHandler creates a new schema handler. combiner may be nil, in
// which case the combined document is not served.
func NewSchemaHandler(library *schemas.Library, combiner Combiner, logger zerolog.Logger) *SchemaHandler {
	return &SchemaHandler{library: library, combiner: combiner, logger: logger}
}

// List returns the sorted names of all available documents.
func (h *SchemaHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.library.Names()
	if err != nil {
		h.logger.Error().Err(err).Msg("list schemas")
		writeError(w, http.StatusInternalServerError, "schema directory unavailable")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// Get returns one document exactly as persisted.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := schema.NameFromFile(chi.URLParam(r, "file"))
	if !ok {
		writeError(w, http.StatusNotFound, "schema not found")
		return
	}

	data, err := h.library.Raw(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "schema not found")
			return
		}
		h.logger.Error().Err(err).Str("schema", name).Msg("read schema")
		writeError(w, http.StatusInternalServerError, "schema unavailable")
		return
	}

	w.Header().Set("Content-Type", ContentTypeSchema)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Combined returns the combined document built from the current directory.
func (h *SchemaHandler) Combined(w http.ResponseWriter, r *http.Request) {
	if h.combiner == nil {
		writeError(w, http.StatusNotFound, "combined schema not available")
		return
	}

	doc, stats, err := h.combiner.Combine(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("combine schemas")
		writeError(w, http.StatusInternalServerError, "combined schema unavailable")
		return
	}
	if len(stats.Skipped) > 0 {
		w.Header().Set("X-Skipped-Schemas", strconv.Itoa(len(stats.Skipped)))
	}

	data, err := schema.Encode(doc)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode combined schema")
		writeError(w, http.StatusInternalServerError, "combined schema unavailable")
		return
	}

	w.Header().Set("Content-Type", ContentTypeSchema)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics *metrics.Collector // also mounts /metrics when set
}

// NewRouter creates the schema distribution router.
func NewRouter(h *SchemaHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Get("/healthz", Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/all.json", h.Combined)
		r.Get("/{file}", h.Get)
	})

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			m.RequestsTotal.WithLabelValues(r.Method, route, statusLabel(ww.Status())).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
