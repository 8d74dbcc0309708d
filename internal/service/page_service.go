package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/repository"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var ErrPageNotFound = errors.New("page not found")

// TopReviewCount number of five-star reviews shown on a page.
const TopReviewCount = 5

// Page everything a tenant page renders.
type Page struct {
	Company *domain.Company
	Reviews []domain.Review
	LogoURL string
}

// PageService loads page data for any company key (slug or biz_id).
type PageService struct {
	companies repository.CompaniesRepository
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

func NewPageService(companies repository.CompaniesRepository, logger *zap.Logger) *PageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageService{
		companies: companies,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Load fetches the company by key, then its newest five-star reviews. A review failure is
// logged and renders as an empty list; only a missing company fails the page.
func (s *PageService) Load(ctx context.Context, key domain.CompanyKey) (*Page, error) {
	if !key.Column.Valid() || strings.TrimSpace(key.Value) == "" {
		return nil, ErrPageNotFound
	}

	company, err := s.companies.GetCompany(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) {
			s.logger.Info("Company not found",
				zap.String("key_column", string(key.Column)),
				zap.String("key_value", key.Value),
			)
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to load company by %s: %w", key.Column, err)
	}

	company.Description = s.plainText(company.Description)
	company.WorkingHours = s.plainText(company.WorkingHours)

	page := &Page{
		Company: company,
		Reviews: []domain.Review{},
		LogoURL: company.LogoURL(),
	}

	link, ok := company.ReviewLink()
	if !ok {
		s.logger.Debug("No biz_id or place_id, skipping review fetch", zap.String("company", company.Name))
		return page, nil
	}

	reviews, err := s.companies.ListTopReviews(ctx, link, TopReviewCount)
	if err != nil {
		s.logger.Warn("Failed to load reviews",
			zap.String("company", company.Name),
			zap.String("link_column", link.Column),
			zap.Error(err),
		)
		return page, nil
	}
	for i := range reviews {
		reviews[i].Text = s.plainText(reviews[i].Text)
		reviews[i].ReviewerName = s.plainText(reviews[i].ReviewerName)
	}
	page.Reviews = reviews
	return page, nil
}

// Tenant the routing record behind slug, read straight from the store (never cached).
func (s *PageService) Tenant(ctx context.Context, slug string) (*domain.TenantRecord, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, ErrPageNotFound
	}
	rec, err := s.companies.LookupBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to lookup tenant %q: %w", slug, err)
	}
	return rec, nil
}

// Slugs every routable tenant slug.
func (s *PageService) Slugs(ctx context.Context) ([]string, error) {
	slugs, err := s.companies.ListSlugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	return slugs, nil
}

// plainText strips markup from scraped text; html/template escapes again on output.
func (s *PageService) plainText(v string) string {
	if v == "" {
		return v
	}
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
}
