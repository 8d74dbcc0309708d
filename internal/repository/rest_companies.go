package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RestCompaniesRepository reads companies through the hosted store's PostgREST endpoint
// ({endpoint}/rest/v1/...), authenticated with the project API key.
type RestCompaniesRepository struct {
	httpClient *resty.Client
	logger     *zap.Logger
	pageSize   int
}

// NewRestCompaniesRepository endpoint is the project URL (e.g. https://xyz.supabase.co), credential the API key.
func NewRestCompaniesRepository(endpoint, credential string, timeout time.Duration, logger *zap.Logger) *RestCompaniesRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")+"/rest/v1").
		SetTimeout(timeout).
		SetHeader("apikey", credential).
		SetAuthToken(credential).
		SetHeader("Accept", "application/json")

	return &RestCompaniesRepository{httpClient: client, logger: logger, pageSize: 1000}
}

var _ CompaniesRepository = (*RestCompaniesRepository)(nil)

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// flexString accepts JSON strings, numbers and null (biz_id is a bigint column).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexTime accepts timestamptz, timestamp and date renderings.
type flexTime struct{ t *time.Time }

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			f.t = &t
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

type restTenant struct {
	Slug             string `json:"slug"`
	CustomDomain     string `json:"custom_domain"`
	SubdomainSegment string `json:"subdomain_segment"`
}

type restCompany struct {
	domain.Company
	BizID flexString `json:"biz_id"`
}

type restReview struct {
	ReviewID     flexString `json:"review_id"`
	ReviewerName string     `json:"reviewer_name"`
	Text         string     `json:"text"`
	Stars        int        `json:"stars"`
	PublishedAt  flexTime   `json:"published_at_date"`
}

// quote renders a value for use inside a PostgREST or=(...) filter.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func (r *RestCompaniesRepository) get(ctx context.Context, path string, params map[string]string, out any) error {
	var apiErr restError
	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if resp.IsError() {
		r.logger.Error("Tenant store REST call failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode())
		}
		return fmt.Errorf("tenant store error %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}

func (r *RestCompaniesRepository) LookupBySlug(ctx context.Context, slug string) (*domain.TenantRecord, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	var rows []restTenant
	err := r.get(ctx, "/companies", map[string]string{
		"select": "slug,custom_domain,subdomain_segment",
		"slug":   "eq." + slug,
		"limit":  "1",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup tenant by slug: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	rec := domain.TenantRecord(rows[0])
	return &rec, nil
}

// LookupByHostOrSubdomain matches with PostgREST eq, which is case-sensitive: routing columns must be stored lowercase.
func (r *RestCompaniesRepository) LookupByHostOrSubdomain(ctx context.Context, host, subdomain string) (*domain.TenantRecord, error) {
	if host == "" && subdomain == "" {
		return nil, ErrNotFound
	}

	params := map[string]string{
		"select": "slug,custom_domain,subdomain_segment",
		"slug":   "not.is.null",
		"order":  "biz_id.asc.nullslast,slug.asc",
		"limit":  "2",
	}
	if subdomain == "" {
		params["custom_domain"] = "eq." + host
	} else {
		params["or"] = fmt.Sprintf("(custom_domain.eq.%s,subdomain_segment.eq.%s)", quote(host), quote(subdomain))
	}

	var rows []restTenant
	if err := r.get(ctx, "/companies", params, &rows); err != nil {
		return nil, fmt.Errorf("failed to lookup tenant by host: %w", err)
	}

	matches := make([]domain.TenantRecord, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, domain.TenantRecord(row))
	}
	rec := firstOfAmbiguous(r.logger, host, subdomain, matches)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *RestCompaniesRepository) GetCompany(ctx context.Context, key domain.CompanyKey) (*domain.Company, error) {
	if !key.Column.Valid() {
		return nil, fmt.Errorf("%w: column %q", ErrInvalidKey, key.Column)
	}
	if key.Value == "" {
		return nil, ErrNotFound
	}

	var rows []restCompany
	err := r.get(ctx, "/companies", map[string]string{
		"select":           "*",
		string(key.Column): "eq." + key.Value,
		"limit":            "1",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get company by %s: %w", key.Column, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	c := rows[0].Company
	c.BizID = string(rows[0].BizID)
	return &c, nil
}

func (r *RestCompaniesRepository) ListSlugs(ctx context.Context) ([]string, error) {
	slugs := []string{}
	for offset := 0; ; offset += r.pageSize {
		var rows []restTenant
		err := r.get(ctx, "/companies", map[string]string{
			"select": "slug",
			"slug":   "not.is.null",
			"order":  "slug.asc",
			"limit":  strconv.Itoa(r.pageSize),
			"offset": strconv.Itoa(offset),
		}, &rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list slugs: %w", err)
		}
		for _, row := range rows {
			slugs = append(slugs, row.Slug)
		}
		if len(rows) < r.pageSize {
			return slugs, nil
		}
	}
}

func (r *RestCompaniesRepository) ListTopReviews(ctx context.Context, link domain.ReviewLink, limit int) ([]domain.Review, error) {
	if !validReviewColumn(link.Column) {
		return nil, fmt.Errorf("%w: review column %q", ErrInvalidKey, link.Column)
	}

	var rows []restReview
	err := r.get(ctx, "/company_reviews", map[string]string{
		"select":    "review_id,reviewer_name,text,stars,published_at_date",
		link.Column: "eq." + link.Value,
		"stars":     "eq.5",
		"order":     "published_at_date.desc.nullslast",
		"limit":     strconv.Itoa(clampLimit(limit)),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, domain.Review{
			ReviewID:     string(row.ReviewID),
			ReviewerName: row.ReviewerName,
			Text:         row.Text,
			Stars:        row.Stars,
			PublishedAt:  row.PublishedAt.t,
		})
	}
	return reviews, nil
}
