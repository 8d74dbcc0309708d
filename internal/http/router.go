package httpapi

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/atlasgrowth23/atlashvac/internal/service"
	"github.com/atlasgrowth23/atlashvac/internal/tenant"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

//go:embed static
var staticFS embed.FS

// NewRouter wires the site routes. The tenant middleware is mounted on the mux so the
// host rewrite happens before route matching.
func NewRouter(resolver *tenant.Resolver, pages *service.PageService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if resolver != nil {
		r.Use(resolver.Middleware)
	}

	ph := NewPageHandler(pages, logger)
	th := NewTenantsHandler(pages, resolver, logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeResult(w, req, http.StatusOK, Ok("ok"))
	})

	r.Route("/api/v1/tenants", func(r chi.Router) {
		r.Get("/slugs", th.ListSlugs)
		r.Get("/resolve", th.Resolve)
	})

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static-assets/*", http.StripPrefix("/static-assets/", http.FileServer(http.FS(static))))

	r.Get("/", ph.Landing)
	r.Get("/b/{bizID}", ph.ByBizID)
	r.Get("/{slug}", ph.BySlug)
	r.NotFound(ph.NotFound)

	return r
}
