// Package handler exposes the search service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/catalog-search/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog-search/pkg/proto"
)

const maxBodyBytes = 1 << 20

type Config struct {
	DefaultLimit        int
	SuggestDefaultLimit int
	// ReindexPerMinute throttles the admin reindex endpoint. Zero disables
	// the throttle.
	ReindexPerMinute float64
}

type Handler struct {
	svc          *service.Service
	cfg          Config
	reindexLimit *rate.Limiter
	logger       *slog.Logger
}

func New(svc *service.Service, cfg Config) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.SuggestDefaultLimit <= 0 {
		cfg.SuggestDefaultLimit = 10
	}
	h := &Handler{
		svc:    svc,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-handler"),
	}
	if cfg.ReindexPerMinute > 0 {
		h.reindexLimit = rate.NewLimiter(rate.Limit(cfg.ReindexPerMinute/60), 1)
	}
	return h
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/search/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/search/reindex", h.Reindex)
	mux.HandleFunc("GET /api/v1/search/jobs", h.Jobs)
	mux.HandleFunc("GET /api/v1/search/jobs/{id}", h.Job)
	mux.HandleFunc("POST /api/v1/changes", h.Notify)
	mux.HandleFunc("GET /api/v1/search/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/search/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&collections=&limit=&offset=.
// collections may repeat or hold a comma-separated list; collection and
// types are accepted as aliases.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit", h.cfg.DefaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	collections := q["collections"]
	collections = append(collections, q["collection"]...)
	collections = append(collections, q["types"]...)
	resp, err := h.svc.Search(r.Context(), proto.SearchRequest{
		Query:       q.Get("q"),
		Collections: collections,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Suggest serves GET /api/v1/search/suggest?prefix=&limit=.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit", h.cfg.SuggestDefaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	prefix := q.Get("prefix")
	if prefix == "" {
		prefix = q.Get("q")
	}
	resp, err := h.svc.Suggest(r.Context(), proto.SuggestRequest{Prefix: prefix, Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// Reindex serves POST /api/v1/search/reindex. The body, if any, names the
// collections; ?collection= works too. Nothing named means everything.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindexLimit != nil && !h.reindexLimit.Allow() {
		h.writeError(w, r, apperrors.New(apperrors.ErrRateLimited, http.StatusTooManyRequests, "reindex requested too often"))
		return
	}
	var req proto.ReindexRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Collections = append(req.Collections, r.URL.Query()["collection"]...)
	ack, err := h.svc.Reindex(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/search/jobs/"+ack.JobID)
	h.writeJSON(w, http.StatusAccepted, ack)
}

func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Job(r.Context(), proto.JobRequest{ID: r.PathValue("id")})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit", 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.svc.Jobs(r.Context(), proto.JobsRequest{Limit: limit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Notify serves POST /api/v1/changes, the HTTP twin of the Kafka feed.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	var req proto.NotifyRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	ack, err := h.svc.Notify(r.Context(), req, "http")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, ack)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, ok := h.svc.CacheStats()
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.InvalidateCache(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func intParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.InvalidQuery("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		if errors.Is(err, apperrors.ErrInternal) || apperrors.Code(err) == "internal" {
			msg = "internal error"
		}
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(int(time.Minute.Seconds())))
	}
	h.writeJSON(w, status, proto.ErrorResponse{Error: msg, Code: apperrors.Code(err)})
}
