// Package handler exposes the post catalog and the admin write path over
// HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/render"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/matcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
)

const (
	defaultRelated = 3
	maxBodyBytes   = 1 << 20
)

// Service is the slice of *content.Service the handlers use.
type Service interface {
	ListAll(ctx context.Context) ([]content.Post, error)
	Get(ctx context.Context, id string) (content.Post, error)
	ByCategory(ctx context.Context, category string) ([]content.Post, error)
	Categories(ctx context.Context) ([]string, error)
	Featured(ctx context.Context) ([]content.Post, error)
	Related(ctx context.Context, id string, n int) ([]content.Post, error)
	Create(ctx context.Context, p content.Post) (content.Post, error)
	Update(ctx context.Context, id string, p content.Post) (content.Post, error)
	Invalidate()
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "content-handler"),
	}
}

// Register mounts every content route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/posts", h.List)
	mux.HandleFunc("GET /api/v1/posts/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/posts/{id}/related", h.Related)
	mux.HandleFunc("GET /api/v1/categories", h.Categories)
	mux.HandleFunc("POST /api/v1/admin/posts", h.Create)
	mux.HandleFunc("PUT /api/v1/admin/posts/{id}", h.Update)
	mux.HandleFunc("POST /api/v1/admin/cache/invalidate", h.Invalidate)
}

// List serves GET /api/v1/posts?q=&limit=&featured=true&category=. featured
// wins over q; q is a plain substring match with no translation.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	limit := -1
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var (
		posts []content.Post
		err   error
	)
	category := strings.TrimSpace(params.Get("category"))
	switch {
	case params.Get("featured") == "true":
		posts, err = h.svc.Featured(ctx)
	case category != "":
		posts, err = h.svc.ByCategory(ctx, category)
	default:
		posts, err = h.svc.ListAll(ctx)
	}
	if err != nil {
		h.fail(w, r, err, "Failed to fetch blogs")
		return
	}

	if q := strings.TrimSpace(params.Get("q")); q != "" && params.Get("featured") != "true" {
		scope := matcher.ScopeGlobal
		if category != "" {
			scope = matcher.ScopeCategory
		}
		posts = matcher.Match(posts, q, q, scope)
	}
	if limit >= 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	h.writeJSON(w, http.StatusOK, posts)
}

// renderedPost adds the sanitized HTML body for ?render=html.
type renderedPost struct {
	content.Post
	HTML template.HTML `json:"html"`
}

// Get serves GET /api/v1/posts/{id}[?render=html].
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "Error fetching blog")
		return
	}
	if r.URL.Query().Get("render") != "html" {
		h.writeJSON(w, http.StatusOK, p)
		return
	}
	body, err := render.Markdown(p.Content)
	if err != nil {
		h.fail(w, r, err, "Error rendering blog")
		return
	}
	h.writeJSON(w, http.StatusOK, renderedPost{Post: p, HTML: body})
}

// Related serves GET /api/v1/posts/{id}/related?limit=3.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	n := defaultRelated
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		n = parsed
	}
	posts, err := h.svc.Related(r.Context(), r.PathValue("id"), n)
	if err != nil {
		h.fail(w, r, err, "Error fetching related blogs")
		return
	}
	h.writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to fetch categories")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

// Create serves POST /api/v1/admin/posts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decodePost(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		h.writeError(w, http.StatusBadRequest, "Missing required fields: id, title, content")
		return
	}
	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		h.fail(w, r, err, "Error creating blog")
		return
	}
	logger.FromContext(r.Context()).Info("post created", "id", created.ID)
	h.writeJSON(w, http.StatusCreated, created)
}

// Update serves PUT /api/v1/admin/posts/{id}. A body id that disagrees with
// the path is rejected.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.decodePost(w, r)
	if !ok {
		return
	}
	if p.ID != "" && p.ID != id {
		h.writeError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		h.writeError(w, http.StatusBadRequest, "Missing required fields: id, title, content")
		return
	}
	updated, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, err, "Error updating blog")
		return
	}
	logger.FromContext(r.Context()).Info("post updated", "id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

// Invalidate serves POST /api/v1/admin/cache/invalidate.
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	h.svc.Invalidate()
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) decodePost(w http.ResponseWriter, r *http.Request) (content.Post, bool) {
	var p content.Post
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return content.Post{}, false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return content.Post{}, false
	}
	return p, true
}

// fail maps service errors to responses: validation errors carry their
// fields, AppErrors their status, anything else is a logged 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *content.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(fallback, "error", err)
	}
	h.writeError(w, status, apperrors.Message(err, fallback))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
