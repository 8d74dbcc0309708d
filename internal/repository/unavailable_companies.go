package repository

import (
	"context"
	"fmt"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
)

// UnavailableCompaniesRepository stands in when the store is misconfigured or unreachable at startup.
// Every call fails with ErrStoreUnavailable so routing degrades to passthrough instead of failing closed.
type UnavailableCompaniesRepository struct {
	reason error
}

func NewUnavailableCompaniesRepository(reason error) *UnavailableCompaniesRepository {
	return &UnavailableCompaniesRepository{reason: reason}
}

var _ CompaniesRepository = (*UnavailableCompaniesRepository)(nil)

func (r *UnavailableCompaniesRepository) err() error {
	if r.reason == nil {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, r.reason)
}

func (r *UnavailableCompaniesRepository) LookupBySlug(context.Context, string) (*domain.TenantRecord, error) {
	return nil, r.err()
}

func (r *UnavailableCompaniesRepository) LookupByHostOrSubdomain(context.Context, string, string) (*domain.TenantRecord, error) {
	return nil, r.err()
}

func (r *UnavailableCompaniesRepository) GetCompany(context.Context, domain.CompanyKey) (*domain.Company, error) {
	return nil, r.err()
}

func (r *UnavailableCompaniesRepository) ListSlugs(context.Context) ([]string, error) {
	return nil, r.err()
}

func (r *UnavailableCompaniesRepository) ListTopReviews(context.Context, domain.ReviewLink, int) ([]domain.Review, error) {
	return nil, r.err()
}
