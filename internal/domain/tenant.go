package domain

// TenantRecord routing view of a company row (companies table)
// Only the columns the host resolver needs.
type TenantRecord struct {
	Slug             string `db:"slug" json:"slug"`                                     // NOT NULL for routable tenants, UNIQUE
	CustomDomain     string `db:"custom_domain" json:"custom_domain,omitempty"`         // nullable, UNIQUE when set
	SubdomainSegment string `db:"subdomain_segment" json:"subdomain_segment,omitempty"` // nullable, UNIQUE when set
}

// KeyColumn whitelisted lookup columns for a single company fetch.
type KeyColumn string

const (
	KeySlug  KeyColumn = "slug"
	KeyBizID KeyColumn = "biz_id"
)

// Valid reports whether the column is one of the known lookup keys.
func (k KeyColumn) Valid() bool {
	return k == KeySlug || k == KeyBizID
}

// CompanyKey {keyColumn, keyValue} pair used by every page data fetch.
type CompanyKey struct {
	Column KeyColumn
	Value  string
}

func BySlug(slug string) CompanyKey   { return CompanyKey{Column: KeySlug, Value: slug} }
func ByBizID(bizID string) CompanyKey { return CompanyKey{Column: KeyBizID, Value: bizID} }
