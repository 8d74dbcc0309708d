package httpapi

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/logger"
	"github.com/atlasgrowth23/atlashvac/internal/service"
	"github.com/atlasgrowth23/atlashvac/internal/tenant"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// PageHandler renders tenant pages.
type PageHandler struct {
	pages *service.PageService
	tmpl  *template.Template
	log   *zap.Logger
	now   func() time.Time
}

func NewPageHandler(pages *service.PageService, log *zap.Logger) *PageHandler {
	return &PageHandler{
		pages: pages,
		tmpl:  templates,
		log:   log,
		now:   time.Now,
	}
}

// Landing GET / when the host did not resolve to a tenant.
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "landing.html", map[string]any{"Year": h.now().Year()})
}

// BySlug GET /{slug}, also the target of the host rewrite.
func (h *PageHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if s, ok := tenant.SlugFromContext(r.Context()); ok {
		slug = s
	}
	h.serve(w, r, domain.BySlug(slug))
}

// ByBizID GET /b/{bizID}
func (h *PageHandler) ByBizID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bizID")
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		h.NotFound(w, r)
		return
	}
	h.serve(w, r, domain.ByBizID(id))
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "notfound.html", map[string]any{"Year": h.now().Year()})
}

func (h *PageHandler) serve(w http.ResponseWriter, r *http.Request, key domain.CompanyKey) {
	page, err := h.pages.Load(r.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			h.NotFound(w, r)
			return
		}
		logger.FromContext(r.Context(), h.log).Error("Failed to load tenant page",
			zap.String("key_column", string(key.Column)),
			zap.String("key_value", key.Value),
			zap.Error(err),
		)
		h.render(w, http.StatusServiceUnavailable, "unavailable.html", map[string]any{"Year": h.now().Year()})
		return
	}
	h.render(w, http.StatusOK, "tenant.html", newPageView(page, canonicalURL(r), h.now()))
}

// render executes into a buffer first so a template error still produces a clean 500.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// canonicalURL is the URL the visitor sees: the bare host for a rewritten request.
func canonicalURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") == "http" {
		scheme = "http"
	}
	path := r.URL.Path
	if orig, ok := tenant.OriginalPathFromContext(r.Context()); ok {
		path = orig
	}
	return scheme + "://" + r.Host + path
}
