package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/atlasgrowth23/atlashvac/internal/domain"

	"go.uber.org/zap"
)

// MemoryCompaniesRepository supports local runs and tests when no hosted store is configured.
// Rows keep insertion order, which stands in for the biz_id ordering of the SQL stores.
type MemoryCompaniesRepository struct {
	mu        sync.RWMutex
	companies []memoryCompany
	reviews   []memoryReview
	logger    *zap.Logger
}

type memoryCompany struct {
	company domain.Company
	tenant  domain.TenantRecord
}

type memoryReview struct {
	link   domain.ReviewLink
	review domain.Review
}

func NewMemoryCompaniesRepository(logger *zap.Logger) *MemoryCompaniesRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryCompaniesRepository{logger: logger}
}

var _ CompaniesRepository = (*MemoryCompaniesRepository)(nil)

// AddCompany stores a company together with its routing bindings.
func (r *MemoryCompaniesRepository) AddCompany(c domain.Company, customDomain, subdomainSegment string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies = append(r.companies, memoryCompany{
		company: c,
		tenant: domain.TenantRecord{
			Slug:             c.Slug,
			CustomDomain:     customDomain,
			SubdomainSegment: subdomainSegment,
		},
	})
}

// AddReview links a review to a company by biz_id or place_id.
func (r *MemoryCompaniesRepository) AddReview(link domain.ReviewLink, rv domain.Review) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, memoryReview{link: link, review: rv})
}

func (r *MemoryCompaniesRepository) LookupBySlug(_ context.Context, slug string) (*domain.TenantRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.companies {
		if slug != "" && c.tenant.Slug == slug {
			rec := c.tenant
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCompaniesRepository) LookupByHostOrSubdomain(_ context.Context, host, subdomain string) (*domain.TenantRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []domain.TenantRecord
	for _, c := range r.companies {
		t := c.tenant
		if t.Slug == "" {
			continue
		}
		byHost := host != "" && strings.EqualFold(t.CustomDomain, host)
		bySub := subdomain != "" && strings.EqualFold(t.SubdomainSegment, subdomain)
		if byHost || bySub {
			matches = append(matches, t)
		}
	}
	rec := firstOfAmbiguous(r.logger, host, subdomain, matches)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryCompaniesRepository) GetCompany(_ context.Context, key domain.CompanyKey) (*domain.Company, error) {
	if !key.Column.Valid() {
		return nil, fmt.Errorf("%w: column %q", ErrInvalidKey, key.Column)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.companies {
		var v string
		switch key.Column {
		case domain.KeySlug:
			v = c.company.Slug
		case domain.KeyBizID:
			v = c.company.BizID
		}
		if key.Value != "" && v == key.Value {
			company := c.company
			return &company, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCompaniesRepository) ListSlugs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := []string{}
	for _, c := range r.companies {
		if c.tenant.Slug != "" {
			slugs = append(slugs, c.tenant.Slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (r *MemoryCompaniesRepository) ListTopReviews(_ context.Context, link domain.ReviewLink, limit int) ([]domain.Review, error) {
	if !validReviewColumn(link.Column) {
		return nil, fmt.Errorf("%w: review column %q", ErrInvalidKey, link.Column)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Review{}
	for _, rv := range r.reviews {
		if rv.link == link && rv.review.Stars == 5 {
			out = append(out, rv.review)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
