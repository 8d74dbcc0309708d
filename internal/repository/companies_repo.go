package repository

import (
	"context"
	"errors"

	"github.com/atlasgrowth23/atlashvac/internal/domain"

	"go.uber.org/zap"
)

var (
	// ErrNotFound no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable the tenant store is not configured or cannot be reached.
	ErrStoreUnavailable = errors.New("tenant store unavailable")
	// ErrInvalidKey the company key column is not one of the whitelisted lookup columns.
	ErrInvalidKey = errors.New("invalid company key")
)

// MaxReviews upper bound for ListTopReviews.
const MaxReviews = 50

// TenantLookup the two read operations the host resolver depends on.
type TenantLookup interface {
	// LookupBySlug returns the tenant whose slug equals slug.
	LookupBySlug(ctx context.Context, slug string) (*domain.TenantRecord, error)

	// LookupByHostOrSubdomain matches custom_domain == host OR subdomain_segment == subdomain,
	// restricted to rows with a non-null slug. An empty subdomain never matches.
	// Multiple matches resolve deterministically to the first row ordered by (biz_id, slug).
	LookupByHostOrSubdomain(ctx context.Context, host, subdomain string) (*domain.TenantRecord, error)
}

// CompaniesRepository company/review reads for the site pages.
type CompaniesRepository interface {
	TenantLookup

	// GetCompany fetches one company by a whitelisted key column.
	GetCompany(ctx context.Context, key domain.CompanyKey) (*domain.Company, error)

	// ListSlugs every routable slug, sorted.
	ListSlugs(ctx context.Context) ([]string, error)

	// ListTopReviews five-star reviews for a company, newest first.
	ListTopReviews(ctx context.Context, link domain.ReviewLink, limit int) ([]domain.Review, error)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 5
	}
	if limit > MaxReviews {
		return MaxReviews
	}
	return limit
}

func validReviewColumn(col string) bool {
	return col == "biz_id" || col == "place_id"
}

// firstOfAmbiguous applies the read-time policy for a host matching more than one tenant:
// keep the first row of the deterministic ordering and warn, since otherwise one tenant's
// traffic silently serves another's site.
func firstOfAmbiguous(logger *zap.Logger, host, subdomain string, matches []domain.TenantRecord) *domain.TenantRecord {
	if len(matches) == 0 {
		return nil
	}
	if len(matches) > 1 && logger != nil {
		slugs := make([]string, 0, len(matches))
		for _, m := range matches {
			slugs = append(slugs, m.Slug)
		}
		logger.Warn("Ambiguous tenant match for host, using first",
			zap.String("host", host),
			zap.String("subdomain", subdomain),
			zap.Strings("slugs", slugs),
			zap.String("chosen", matches[0].Slug),
		)
	}
	rec := matches[0]
	return &rec
}
