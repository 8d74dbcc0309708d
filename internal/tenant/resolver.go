// Package tenant maps an inbound Host header to a tenant slug and rewrites root-page
// requests to the tenant's page path.
//
// Only requests for "/" are resolved; bypass prefixes (API, build assets, favicon) and
// every other path pass through untouched. The rewrite is internal: the Host header and the
// URL the client sees do not change. Store failures never fail the request, they degrade
// to passthrough.
package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atlasgrowth23/atlashvac/internal/repository"

	"go.uber.org/zap"
)

// State of a request in the resolution state machine; Unresolved is also the passthrough outcome.
type State int

const (
	Unresolved State = iota
	Resolved
)

func (s State) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// Passthrough reasons.
const (
	ReasonBypass      = "bypass"
	ReasonNotRoot     = "not_root"
	ReasonNoHost      = "no_host"
	ReasonNoMatch     = "no_match"
	ReasonLookupError = "lookup_error"
	ReasonResolved    = "resolved"
)

// Decision outcome for one (host, path) pair.
type Decision struct {
	State  State  `json:"-"`
	Host   string `json:"host"`
	Slug   string `json:"slug,omitempty"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Rewritten reports whether the request is served from /{slug}.
func (d Decision) Rewritten() bool { return d.State == Resolved }

// Options BaseDomain enables subdomain matching; requests whose path starts with a bypass prefix are never resolved.
type Options struct {
	BaseDomain     string
	BypassPrefixes []string
}

// Resolver maps a request's Host to a tenant slug. Safe for concurrent use.
type Resolver struct {
	lookup     Lookup
	baseDomain string
	bypass     []string
	logger     *zap.Logger
}

// NewResolver normalizes the base domain once; empty bypass prefixes are dropped.
func NewResolver(lookup Lookup, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	bypass := make([]string, 0, len(opts.BypassPrefixes))
	for _, p := range opts.BypassPrefixes {
		if p != "" {
			bypass = append(bypass, p)
		}
	}
	return &Resolver{
		lookup:     lookup,
		baseDomain: Normalize(opts.BaseDomain),
		bypass:     bypass,
		logger:     logger,
	}
}

func (r *Resolver) bypassed(path string) bool {
	for _, p := range r.bypass {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Decide runs the resolution algorithm. It performs at most one store lookup and never
// returns an error: every failure is a passthrough decision.
func (r *Resolver) Decide(ctx context.Context, host, path string) Decision {
	d := Decision{State: Unresolved, Host: host, Path: path}

	if r.bypassed(path) {
		d.Reason = ReasonBypass
		return d
	}
	if path != "/" {
		d.Reason = ReasonNotRoot
		return d
	}

	h := Normalize(host)
	if h == "" {
		d.Reason = ReasonNoHost
		return d
	}
	d.Host = h

	sub, _ := SubdomainPart(h, r.baseDomain)

	if r.lookup == nil {
		d.Reason = ReasonLookupError
		return d
	}
	rec, err := r.lookup.LookupByHostOrSubdomain(ctx, h, sub)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d.Reason = ReasonNoMatch
			r.logger.Debug("No tenant for host, passing through", zap.String("host", h))
			return d
		}
		d.Reason = ReasonLookupError
		r.logger.Warn("Tenant lookup failed, passing through",
			zap.String("host", h),
			zap.String("subdomain", sub),
			zap.Error(err),
		)
		return d
	}
	if rec == nil || rec.Slug == "" {
		d.Reason = ReasonNoMatch
		return d
	}

	d.State = Resolved
	d.Slug = rec.Slug
	d.Path = "/" + rec.Slug
	d.Reason = ReasonResolved
	r.logger.Debug("Resolved tenant for host",
		zap.String("host", h),
		zap.String("slug", rec.Slug),
	)
	return d
}

// Middleware applies Decide to every request. A resolved request continues with its
// internal path rewritten to /{slug} and the slug in its context; nothing is written
// to the response here.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		d := r.Decide(req.Context(), req.Host, req.URL.Path)
		if !d.Rewritten() {
			next.ServeHTTP(w, req)
			return
		}

		ctx := WithSlug(req.Context(), d.Slug)
		ctx = withOriginalPath(ctx, req.URL.Path)
		rewritten := req.WithContext(ctx)
		u := *req.URL
		u.Path = d.Path
		u.RawPath = ""
		rewritten.URL = &u
		rewritten.RequestURI = u.RequestURI()
		next.ServeHTTP(w, rewritten)
	})
}

type slugKey struct{}
type originalPathKey struct{}

// WithSlug marks ctx as belonging to a host-resolved tenant.
func WithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugKey{}, slug)
}

// SlugFromContext the slug set by Middleware, if the request was rewritten.
func SlugFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(slugKey{}).(string)
	return s, ok && s != ""
}

func withOriginalPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, originalPathKey{}, path)
}

// OriginalPathFromContext the path the client requested before the rewrite.
func OriginalPathFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(originalPathKey{}).(string)
	return p, ok
}
