package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type restCall struct {
	path  string
	query url.Values
	key   string
	auth  string
}

// fakePostgREST records every call and answers with the handler's payload.
func fakePostgREST(t *testing.T, respond func(path string, q url.Values) (int, any)) (*RestCompaniesRepository, *[]restCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []restCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, restCall{
			path:  r.URL.Path,
			query: r.URL.Query(),
			key:   r.Header.Get("apikey"),
			auth:  r.Header.Get("Authorization"),
		})
		mu.Unlock()

		status, body := respond(r.URL.Path, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	repo := NewRestCompaniesRepository(srv.URL, "anon-key", 2*time.Second, zap.NewNop())
	return repo, &calls
}

func TestRestLookupByHostOrSubdomain_OrFilter(t *testing.T) {
	repo, calls := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusOK, []map[string]any{{"slug": "acme-hvac", "custom_domain": nil, "subdomain_segment": "acme"}}
	})

	rec, err := repo.LookupByHostOrSubdomain(context.Background(), "acme.hvacinvoicepro.com", "acme")

	require.NoError(t, err)
	assert.Equal(t, "acme-hvac", rec.Slug)
	assert.Equal(t, "", rec.CustomDomain)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "/rest/v1/companies", c.path)
	assert.Equal(t, `(custom_domain.eq."acme.hvacinvoicepro.com",subdomain_segment.eq."acme")`, c.query.Get("or"))
	assert.Equal(t, "not.is.null", c.query.Get("slug"))
	assert.Equal(t, "2", c.query.Get("limit"))
	assert.Equal(t, "anon-key", c.key)
	assert.Equal(t, "Bearer anon-key", c.auth)
}

func TestRestLookupByHostOrSubdomain_CustomDomainOnly(t *testing.T) {
	repo, calls := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusOK, []map[string]any{}
	})

	_, err := repo.LookupByHostOrSubdomain(context.Background(), "randomsite.com", "")

	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, *calls, 1)
	assert.Equal(t, "eq.randomsite.com", (*calls)[0].query.Get("custom_domain"))
	assert.Empty(t, (*calls)[0].query.Get("or"))
}

func TestRestLookupByHostOrSubdomain_ServerError(t *testing.T) {
	repo, _ := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusServiceUnavailable, map[string]any{"message": "upstream down"}
	})

	_, err := repo.LookupByHostOrSubdomain(context.Background(), "acme.com", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestRestLookupByHostOrSubdomain_Ambiguous(t *testing.T) {
	repo, _ := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusOK, []map[string]any{
			{"slug": "first", "custom_domain": "x.com"},
			{"slug": "second", "subdomain_segment": "x"},
		}
	})

	rec, err := repo.LookupByHostOrSubdomain(context.Background(), "x.com", "x")

	require.NoError(t, err)
	assert.Equal(t, "first", rec.Slug)
}

func TestRestGetCompany(t *testing.T) {
	repo, calls := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusOK, []map[string]any{{
			"name":          "Acme HVAC",
			"slug":          "acme-hvac",
			"city":          nil,
			"rating":        4.9,
			"reviews":       88,
			"logo":          "https://logo",
			"logo_override": "Yes",
			"biz_id":        12345,
			"place_id":      "ChIJ",
		}}
	})

	c, err := repo.GetCompany(context.Background(), domain.ByBizID("12345"))

	require.NoError(t, err)
	assert.Equal(t, "Acme HVAC", c.Name)
	assert.Equal(t, "12345", c.BizID)
	assert.Equal(t, "", c.City)
	require.NotNil(t, c.ReviewCount)
	assert.Equal(t, 88, *c.ReviewCount)
	assert.Equal(t, "https://logo", c.LogoURL())
	assert.Equal(t, "eq.12345", (*calls)[0].query.Get("biz_id"))
}

func TestRestListTopReviews(t *testing.T) {
	repo, calls := fakePostgREST(t, func(string, url.Values) (int, any) {
		return http.StatusOK, []map[string]any{
			{"review_id": "r1", "reviewer_name": "Sam", "text": "Fast", "stars": 5, "published_at_date": "2024-03-01T10:00:00+00:00"},
			{"review_id": 2, "reviewer_name": nil, "stars": 5, "published_at_date": "2024-02-01"},
		}
	})

	reviews, err := repo.ListTopReviews(context.Background(), domain.ReviewLink{Column: "biz_id", Value: "7"}, 5)

	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "2", reviews[1].ReviewID)
	require.NotNil(t, reviews[1].PublishedAt)
	assert.Equal(t, 2024, reviews[1].PublishedAt.Year())

	q := (*calls)[0].query
	assert.Equal(t, "/rest/v1/company_reviews", (*calls)[0].path)
	assert.Equal(t, "eq.7", q.Get("biz_id"))
	assert.Equal(t, "eq.5", q.Get("stars"))
	assert.Equal(t, "published_at_date.desc.nullslast", q.Get("order"))
}

func TestRestListSlugs_Paginates(t *testing.T) {
	repo, calls := fakePostgREST(t, func(_ string, q url.Values) (int, any) {
		if q.Get("offset") == "0" {
			return http.StatusOK, []map[string]any{{"slug": "a"}, {"slug": "b"}}
		}
		return http.StatusOK, []map[string]any{{"slug": "c"}}
	})
	repo.pageSize = 2

	slugs, err := repo.ListSlugs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, slugs)
	assert.Len(t, *calls, 2)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"a.b"`, quote("a.b"))
	assert.Equal(t, `"a\"b\\c"`, quote(`a"b\c`))
}
