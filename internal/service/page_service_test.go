package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededRepo() *repository.MemoryCompaniesRepository {
	repo := repository.NewMemoryCompaniesRepository(zap.NewNop())
	repo.AddCompany(domain.Company{
		Name:         "Acme HVAC",
		Slug:         "acme-hvac",
		BizID:        "42",
		PlaceID:      "place-42",
		Logo:         "https://cdn/logo.png",
		LogoOverride: "Yes",
		Description:  "<p>Family owned &amp; <b>operated</b> since 1998.</p><script>alert(1)</script>",
	}, "", "acme")
	repo.AddCompany(domain.Company{Name: "Place Only", Slug: "place-only", PlaceID: "p-1", Logo: "https://cdn/x.png"}, "", "")
	repo.AddCompany(domain.Company{Name: "No Ids", Slug: "no-ids"}, "", "")

	when := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.AddReview(domain.ReviewLink{Column: "biz_id", Value: "42"}, domain.Review{ReviewID: "r1", ReviewerName: "Pat", Text: "<i>Great</i> work", Stars: 5, PublishedAt: &when})
	repo.AddReview(domain.ReviewLink{Column: "place_id", Value: "place-42"}, domain.Review{ReviewID: "by-place", Stars: 5})
	repo.AddReview(domain.ReviewLink{Column: "place_id", Value: "p-1"}, domain.Review{ReviewID: "p1", Stars: 5})
	return repo
}

func TestPageService_LoadBySlug(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	page, err := svc.Load(context.Background(), domain.BySlug("acme-hvac"))

	require.NoError(t, err)
	assert.Equal(t, "Acme HVAC", page.Company.Name)
	assert.Equal(t, "https://cdn/logo.png", page.LogoURL)
	assert.Equal(t, "Family owned & operated since 1998.", page.Company.Description)
	require.Len(t, page.Reviews, 1)
	assert.Equal(t, "r1", page.Reviews[0].ReviewID)
	assert.Equal(t, "Great work", page.Reviews[0].Text)
}

func TestPageService_LoadByBizIDSharesFetch(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	bySlug, err := svc.Load(context.Background(), domain.BySlug("acme-hvac"))
	require.NoError(t, err)
	byID, err := svc.Load(context.Background(), domain.ByBizID("42"))
	require.NoError(t, err)

	assert.Equal(t, bySlug, byID)
}

func TestPageService_ReviewsFallBackToPlaceID(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	page, err := svc.Load(context.Background(), domain.BySlug("place-only"))

	require.NoError(t, err)
	require.Len(t, page.Reviews, 1)
	assert.Equal(t, "p1", page.Reviews[0].ReviewID)
	assert.Empty(t, page.LogoURL, "logo requires logo_override = Yes")
}

func TestPageService_NoIdsSkipsReviews(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	page, err := svc.Load(context.Background(), domain.BySlug("no-ids"))

	require.NoError(t, err)
	assert.NotNil(t, page.Reviews)
	assert.Empty(t, page.Reviews)
}

func TestPageService_NotFound(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	for _, key := range []domain.CompanyKey{
		domain.BySlug("missing"),
		domain.BySlug(" "),
		domain.ByBizID(""),
		{Column: "name", Value: "Acme HVAC"},
	} {
		_, err := svc.Load(context.Background(), key)
		assert.ErrorIs(t, err, ErrPageNotFound, key)
	}
}

// reviewFailRepo fails review reads only.
type reviewFailRepo struct {
	*repository.MemoryCompaniesRepository
}

func (reviewFailRepo) ListTopReviews(context.Context, domain.ReviewLink, int) ([]domain.Review, error) {
	return nil, errors.New("reviews table missing")
}

func TestPageService_ReviewErrorStillRenders(t *testing.T) {
	svc := NewPageService(reviewFailRepo{seededRepo()}, zap.NewNop())

	page, err := svc.Load(context.Background(), domain.BySlug("acme-hvac"))

	require.NoError(t, err)
	assert.Empty(t, page.Reviews)
}

func TestPageService_StoreErrorIsNotNotFound(t *testing.T) {
	svc := NewPageService(repository.NewUnavailableCompaniesRepository(nil), zap.NewNop())

	_, err := svc.Load(context.Background(), domain.BySlug("acme-hvac"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPageNotFound)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)

	_, err = svc.Slugs(context.Background())
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}

func TestPageService_Slugs(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	slugs, err := svc.Slugs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"acme-hvac", "no-ids", "place-only"}, slugs)
}

func TestPageService_Tenant(t *testing.T) {
	svc := NewPageService(seededRepo(), zap.NewNop())

	rec, err := svc.Tenant(context.Background(), "acme-hvac")
	require.NoError(t, err)
	assert.Equal(t, "acme", rec.SubdomainSegment)

	_, err = svc.Tenant(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPageNotFound)
	_, err = svc.Tenant(context.Background(), "")
	assert.ErrorIs(t, err, ErrPageNotFound)

	down := NewPageService(repository.NewUnavailableCompaniesRepository(nil), zap.NewNop())
	_, err = down.Tenant(context.Background(), "acme-hvac")
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
