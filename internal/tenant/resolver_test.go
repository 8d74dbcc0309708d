package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baseDomain = "hvacinvoicepro.com"

var testBypass = []string{"/api/", "/_internal/", "/static-assets/", "/favicon.ico"}

// fakeStore implements Lookup over a fixed set of records and counts calls.
type fakeStore struct {
	mu      sync.Mutex
	records []domain.TenantRecord
	err     error
	calls   int
	args    [][2]string
}

func (f *fakeStore) LookupByHostOrSubdomain(_ context.Context, host, subdomain string) (*domain.TenantRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.args = append(f.args, [2]string{host, subdomain})
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.Slug == "" {
			continue
		}
		if (host != "" && r.CustomDomain == host) || (subdomain != "" && r.SubdomainSegment == subdomain) {
			rec := r
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestResolver(store Lookup) *Resolver {
	return NewResolver(store, Options{BaseDomain: baseDomain, BypassPrefixes: testBypass}, zap.NewNop())
}

func seededStore() *fakeStore {
	return &fakeStore{records: []domain.TenantRecord{
		{Slug: "acme-hvac", SubdomainSegment: "acme"},
		{Slug: "cool-air", CustomDomain: "coolairdenver.com"},
		{Slug: "", CustomDomain: "noslug.com"},
	}}
}

func TestDecide_SubdomainRewrite(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")

	assert.Equal(t, Resolved, d.State)
	assert.Equal(t, "acme-hvac", d.Slug)
	assert.Equal(t, "/acme-hvac", d.Path)
	require.Len(t, store.args, 1)
	assert.Equal(t, [2]string{"acme.hvacinvoicepro.com", "acme"}, store.args[0])
}

func TestDecide_CustomDomainRewrite(t *testing.T) {
	r := newTestResolver(seededStore())

	d := r.Decide(context.Background(), "CoolAirDenver.com:443", "/")

	assert.True(t, d.Rewritten())
	assert.Equal(t, "/cool-air", d.Path)
}

func TestDecide_NoMatchPassesThrough(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	d := r.Decide(context.Background(), "randomsite.com", "/")

	assert.Equal(t, Unresolved, d.State)
	assert.Equal(t, "/", d.Path)
	assert.Equal(t, ReasonNoMatch, d.Reason)
	assert.Equal(t, [2]string{"randomsite.com", ""}, store.args[0])
}

func TestDecide_BaseDomainHasNoSubdomain(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	d := r.Decide(context.Background(), baseDomain, "/")

	assert.False(t, d.Rewritten())
	assert.Equal(t, [2]string{baseDomain, ""}, store.args[0])
}

func TestDecide_NullSlugNeverResolves(t *testing.T) {
	r := newTestResolver(seededStore())

	d := r.Decide(context.Background(), "noslug.com", "/")

	assert.False(t, d.Rewritten())
}

func TestDecide_BypassPathsSkipLookup(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	for _, p := range []string{"/api/anything", "/_internal/chunk.js", "/static-assets/logo.png", "/favicon.ico"} {
		d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", p)
		assert.False(t, d.Rewritten(), p)
		assert.Equal(t, p, d.Path, p)
		assert.Equal(t, ReasonBypass, d.Reason, p)
	}
	assert.Equal(t, 0, store.callCount())
}

func TestDecide_NonRootPathsSkipLookup(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	for _, p := range []string{"/about", "/acme-hvac", "/b/42", ""} {
		d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", p)
		assert.False(t, d.Rewritten(), p)
		assert.Equal(t, ReasonNotRoot, d.Reason, p)
	}
	assert.Equal(t, 0, store.callCount())
}

func TestDecide_EmptyHost(t *testing.T) {
	store := seededStore()
	r := newTestResolver(store)

	d := r.Decide(context.Background(), "", "/")

	assert.Equal(t, ReasonNoHost, d.Reason)
	assert.Equal(t, 0, store.callCount())
}

func TestDecide_LookupErrorPassesThrough(t *testing.T) {
	store := &fakeStore{err: errors.New("dial tcp: connection refused")}
	r := newTestResolver(store)

	d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")

	assert.Equal(t, Unresolved, d.State)
	assert.Equal(t, "/", d.Path)
	assert.Equal(t, ReasonLookupError, d.Reason)
	assert.Equal(t, 1, store.callCount())
}

func TestDecide_NilLookup(t *testing.T) {
	r := NewResolver(nil, Options{BaseDomain: baseDomain}, nil)

	d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")

	assert.False(t, d.Rewritten())
}

func TestDecide_Idempotent(t *testing.T) {
	r := newTestResolver(seededStore())

	first := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")
	second := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")

	assert.Equal(t, first, second)
}

func TestDecide_EmptyBypassEntriesIgnored(t *testing.T) {
	r := NewResolver(seededStore(), Options{BaseDomain: baseDomain, BypassPrefixes: []string{""}}, nil)

	d := r.Decide(context.Background(), "acme.hvacinvoicepro.com", "/")

	assert.True(t, d.Rewritten())
}

// captured what the downstream handler saw.
type captured struct {
	path     string
	host     string
	uri      string
	slug     string
	hasSlug  bool
	original string
}

func serveThrough(t *testing.T, r *Resolver, host, target string) (captured, *httptest.ResponseRecorder) {
	t.Helper()
	var got captured
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got.path = req.URL.Path
		got.host = req.Host
		got.uri = req.RequestURI
		got.slug, got.hasSlug = SlugFromContext(req.Context())
		got.original, _ = OriginalPathFromContext(req.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Host = host
	rec := httptest.NewRecorder()
	r.Middleware(next).ServeHTTP(rec, req)
	return got, rec
}

func TestMiddleware_RewritesInternally(t *testing.T) {
	r := newTestResolver(seededStore())

	got, rec := serveThrough(t, r, "acme.hvacinvoicepro.com", "/?utm_source=ad")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/acme-hvac", got.path)
	assert.Equal(t, "/acme-hvac?utm_source=ad", got.uri)
	assert.Equal(t, "acme.hvacinvoicepro.com", got.host)
	assert.True(t, got.hasSlug)
	assert.Equal(t, "acme-hvac", got.slug)
	assert.Equal(t, "/", got.original)
}

func TestMiddleware_PassthroughUnchanged(t *testing.T) {
	r := newTestResolver(seededStore())

	got, rec := serveThrough(t, r, "randomsite.com", "/")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/", got.path)
	assert.False(t, got.hasSlug)

	got, _ = serveThrough(t, r, "acme.hvacinvoicepro.com", "/api/v1/tenants/slugs")
	assert.Equal(t, "/api/v1/tenants/slugs", got.path)
	assert.False(t, got.hasSlug)
}

func TestMiddleware_StoreFailureNeverFailsRequest(t *testing.T) {
	r := newTestResolver(&fakeStore{err: errors.New("boom")})

	got, rec := serveThrough(t, r, "acme.hvacinvoicepro.com", "/")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "/", got.path)
}

func TestMiddleware_ConcurrentRequestsIndependent(t *testing.T) {
	r := newTestResolver(seededStore())
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(req.URL.Path))
	})
	h := r.Middleware(next)

	hosts := map[string]string{
		"acme.hvacinvoicepro.com": "/acme-hvac",
		"coolairdenver.com":       "/cool-air",
		"randomsite.com":          "/",
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		for host, want := range hosts {
			wg.Add(1)
			go func(host, want string) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Host = host
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				assert.Equal(t, want, rec.Body.String(), host)
			}(host, want)
		}
	}
	wg.Wait()
}
