package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atlasgrowth23/atlashvac/internal/domain"

	"go.uber.org/zap"
)

// PostgresCompaniesRepository companies / company_reviews over database/sql (lib/pq).
type PostgresCompaniesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresCompaniesRepository(db *sql.DB, logger *zap.Logger) *PostgresCompaniesRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresCompaniesRepository{db: db, logger: logger}
}

var _ CompaniesRepository = (*PostgresCompaniesRepository)(nil)

const tenantColumns = `
	slug,
	COALESCE(custom_domain, '') AS custom_domain,
	COALESCE(subdomain_segment, '') AS subdomain_segment
`

func (r *PostgresCompaniesRepository) LookupBySlug(ctx context.Context, slug string) (*domain.TenantRecord, error) {
	if slug == "" {
		return nil, ErrNotFound
	}

	var rec domain.TenantRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM companies WHERE slug = $1`,
		slug,
	).Scan(&rec.Slug, &rec.CustomDomain, &rec.SubdomainSegment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lookup tenant by slug: %w", err)
	}
	return &rec, nil
}

func (r *PostgresCompaniesRepository) LookupByHostOrSubdomain(ctx context.Context, host, subdomain string) (*domain.TenantRecord, error) {
	if host == "" && subdomain == "" {
		return nil, ErrNotFound
	}

	// LIMIT 2 is enough to detect ambiguity without reading every duplicate.
	query := `
		SELECT ` + tenantColumns + `
		FROM companies
		WHERE slug IS NOT NULL
		  AND (lower(custom_domain) = $1 OR ($2 <> '' AND lower(subdomain_segment) = $2))
		ORDER BY biz_id NULLS LAST, slug
		LIMIT 2
	`
	rows, err := r.db.QueryContext(ctx, query, host, subdomain)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup tenant by host: %w", err)
	}
	defer rows.Close()

	var matches []domain.TenantRecord
	for rows.Next() {
		var rec domain.TenantRecord
		if err := rows.Scan(&rec.Slug, &rec.CustomDomain, &rec.SubdomainSegment); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	rec := firstOfAmbiguous(r.logger, host, subdomain, matches)
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

const companyColumns = `
	COALESCE(name, '') AS name,
	COALESCE(slug, '') AS slug,
	COALESCE(phone, '') AS phone,
	COALESCE(city, '') AS city,
	COALESCE(state, '') AS state,
	COALESCE(full_address, '') AS full_address,
	COALESCE(working_hours, '') AS working_hours,
	latitude,
	longitude,
	rating,
	reviews,
	COALESCE(logo, '') AS logo,
	COALESCE(logo_override, '') AS logo_override,
	COALESCE(facebook, '') AS facebook,
	COALESCE(instagram, '') AS instagram,
	COALESCE(reviews_link, '') AS reviews_link,
	site_company_insights_founded_year,
	COALESCE(site_company_insights_description, '') AS site_company_insights_description,
	COALESCE(primary_color, '') AS primary_color,
	COALESCE(secondary_color, '') AS secondary_color,
	COALESCE(place_id, '') AS place_id,
	COALESCE(biz_id::text, '') AS biz_id
`

// keyExpr maps a whitelisted key column to its SQL comparison expression.
func keyExpr(col domain.KeyColumn) (string, bool) {
	switch col {
	case domain.KeySlug:
		return "slug", true
	case domain.KeyBizID:
		return "biz_id::text", true
	default:
		return "", false
	}
}

func (r *PostgresCompaniesRepository) GetCompany(ctx context.Context, key domain.CompanyKey) (*domain.Company, error) {
	expr, ok := keyExpr(key.Column)
	if !ok {
		return nil, fmt.Errorf("%w: column %q", ErrInvalidKey, key.Column)
	}
	if key.Value == "" {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM companies WHERE %s = $1 LIMIT 1`, companyColumns, expr)

	var (
		c                    domain.Company
		lat, lng, rating     sql.NullFloat64
		reviewCount, founded sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, key.Value).Scan(
		&c.Name,
		&c.Slug,
		&c.Phone,
		&c.City,
		&c.State,
		&c.FullAddress,
		&c.WorkingHours,
		&lat,
		&lng,
		&rating,
		&reviewCount,
		&c.Logo,
		&c.LogoOverride,
		&c.Facebook,
		&c.Instagram,
		&c.ReviewsLink,
		&founded,
		&c.Description,
		&c.PrimaryColorHex,
		&c.SecondaryColorHex,
		&c.PlaceID,
		&c.BizID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company by %s: %w", key.Column, err)
	}

	c.Latitude = nullFloat(lat)
	c.Longitude = nullFloat(lng)
	c.Rating = nullFloat(rating)
	c.ReviewCount = nullInt(reviewCount)
	c.FoundedYear = nullInt(founded)
	return &c, nil
}

func (r *PostgresCompaniesRepository) ListSlugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slug FROM companies WHERE slug IS NOT NULL ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list slugs: %w", err)
	}
	defer rows.Close()

	slugs := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate slugs: %w", err)
	}
	return slugs, nil
}

func (r *PostgresCompaniesRepository) ListTopReviews(ctx context.Context, link domain.ReviewLink, limit int) ([]domain.Review, error) {
	if !validReviewColumn(link.Column) {
		return nil, fmt.Errorf("%w: review column %q", ErrInvalidKey, link.Column)
	}

	query := fmt.Sprintf(`
		SELECT
			review_id,
			COALESCE(reviewer_name, '') AS reviewer_name,
			COALESCE(text, '') AS text,
			stars,
			published_at_date
		FROM company_reviews
		WHERE %s::text = $1
		  AND stars = 5
		ORDER BY published_at_date DESC NULLS LAST
		LIMIT $2
	`, link.Column)

	rows, err := r.db.QueryContext(ctx, query, link.Value, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var (
			rv        domain.Review
			published sql.NullTime
		)
		if err := rows.Scan(&rv.ReviewID, &rv.ReviewerName, &rv.Text, &rv.Stars, &published); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if published.Valid {
			t := published.Time
			rv.PublishedAt = &t
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
