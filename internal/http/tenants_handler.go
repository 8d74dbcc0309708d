package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/logger"
	"github.com/atlasgrowth23/atlashvac/internal/service"
	"github.com/atlasgrowth23/atlashvac/internal/tenant"

	"go.uber.org/zap"
)

// TenantsHandler operator endpoints under /api/v1/tenants.
type TenantsHandler struct {
	pages    *service.PageService
	resolver *tenant.Resolver
	log      *zap.Logger
}

func NewTenantsHandler(pages *service.PageService, resolver *tenant.Resolver, log *zap.Logger) *TenantsHandler {
	return &TenantsHandler{pages: pages, resolver: resolver, log: log}
}

// ListSlugs GET /api/v1/tenants/slugs
func (h *TenantsHandler) ListSlugs(w http.ResponseWriter, r *http.Request) {
	slugs, err := h.pages.Slugs(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("Failed to list slugs", zap.Error(err))
		writeResult(w, r, http.StatusServiceUnavailable, Fail("tenant store unavailable"))
		return
	}
	if slugs == nil {
		slugs = []string{}
	}
	writeResult(w, r, http.StatusOK, Ok(slugs))
}

// resolveResult a resolver decision plus the store's current record for the slug.
// Confirmed is false when the decision came from a cache entry the store no longer backs.
type resolveResult struct {
	tenant.Decision
	Confirmed bool                 `json:"confirmed"`
	Tenant    *domain.TenantRecord `json:"tenant,omitempty"`
}

// Resolve GET /api/v1/tenants/resolve?host=
// Reports what the middleware would do for a root request on host.
func (h *TenantsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		writeResult(w, r, http.StatusBadRequest, Fail("host is required"))
		return
	}
	if h.resolver == nil {
		writeResult(w, r, http.StatusServiceUnavailable, Fail("resolver not configured"))
		return
	}

	res := resolveResult{Decision: h.resolver.Decide(r.Context(), host, "/")}
	if res.Rewritten() {
		rec, err := h.pages.Tenant(r.Context(), res.Slug)
		switch {
		case err == nil:
			res.Confirmed = true
			res.Tenant = rec
		case !errors.Is(err, service.ErrPageNotFound):
			logger.FromContext(r.Context(), h.log).Warn("Failed to confirm resolved slug",
				zap.String("slug", res.Slug), zap.Error(err))
		}
	}
	writeResult(w, r, http.StatusOK, Ok(res))
}
