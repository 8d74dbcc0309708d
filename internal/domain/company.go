package domain

import (
	"regexp"
	"strconv"
	"time"
)

const (
	DefaultPrimaryColor   = "#2563EB"
	DefaultSecondaryColor = "#F3F4F6"
	DefaultCompanyName    = "Company Name"
	DefaultCity           = "Your Area"
)

// Company one row of the companies table as the site pages read it.
// Nullable text columns are COALESCEd to "" by the repositories; nullable numbers stay pointers.
type Company struct {
	Name         string `db:"name" json:"name"`
	Slug         string `db:"slug" json:"slug,omitempty"`
	Phone        string `db:"phone" json:"phone,omitempty"`
	City         string `db:"city" json:"city,omitempty"`
	State        string `db:"state" json:"state,omitempty"`
	FullAddress  string `db:"full_address" json:"full_address,omitempty"`
	WorkingHours string `db:"working_hours" json:"working_hours,omitempty"`

	Latitude    *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64 `db:"longitude" json:"longitude,omitempty"`
	Rating      *float64 `db:"rating" json:"rating,omitempty"`
	ReviewCount *int     `db:"reviews" json:"reviews,omitempty"`

	Logo         string `db:"logo" json:"logo,omitempty"`
	LogoOverride string `db:"logo_override" json:"logo_override,omitempty"` // "Yes" enables Logo
	Facebook     string `db:"facebook" json:"facebook,omitempty"`
	Instagram    string `db:"instagram" json:"instagram,omitempty"`
	ReviewsLink  string `db:"reviews_link" json:"reviews_link,omitempty"`

	FoundedYear *int   `db:"site_company_insights_founded_year" json:"site_company_insights_founded_year,omitempty"`
	Description string `db:"site_company_insights_description" json:"site_company_insights_description,omitempty"`

	PrimaryColorHex   string `db:"primary_color" json:"primary_color,omitempty"`
	SecondaryColorHex string `db:"secondary_color" json:"secondary_color,omitempty"`

	PlaceID string `db:"place_id" json:"place_id,omitempty"`
	BizID   string `db:"biz_id" json:"biz_id,omitempty"`
}

// DisplayName falls back to a placeholder when the row has no name.
func (c *Company) DisplayName() string {
	if c == nil || c.Name == "" {
		return DefaultCompanyName
	}
	return c.Name
}

func (c *Company) DisplayCity() string {
	if c == nil || c.City == "" {
		return DefaultCity
	}
	return c.City
}

func (c *Company) PrimaryColor() string {
	if c == nil || c.PrimaryColorHex == "" {
		return DefaultPrimaryColor
	}
	return c.PrimaryColorHex
}

func (c *Company) SecondaryColor() string {
	if c == nil || c.SecondaryColorHex == "" {
		return DefaultSecondaryColor
	}
	return c.SecondaryColorHex
}

// LogoURL returns the logo only when the tenant opted in with logo_override = 'Yes'.
func (c *Company) LogoURL() string {
	if c == nil || c.LogoOverride != "Yes" || c.Logo == "" {
		return ""
	}
	return c.Logo
}

// YearsInBusiness is zero when the founded year is unknown or in the future.
func (c *Company) YearsInBusiness(now time.Time) int {
	if c == nil || c.FoundedYear == nil || *c.FoundedYear <= 0 {
		return 0
	}
	years := now.Year() - *c.FoundedYear
	if years < 0 {
		return 0
	}
	return years
}

// ReviewLink picks the column reviews are keyed by: biz_id when present, else place_id.
// ok is false when neither id is known and the review fetch should be skipped.
func (c *Company) ReviewLink() (link ReviewLink, ok bool) {
	if c == nil {
		return ReviewLink{}, false
	}
	if c.BizID != "" {
		return ReviewLink{Column: "biz_id", Value: c.BizID}, true
	}
	if c.PlaceID != "" {
		return ReviewLink{Column: "place_id", Value: c.PlaceID}, true
	}
	return ReviewLink{}, false
}

var googleAvatarSize = regexp.MustCompile(`/s\d+-[^/]+/`)

// UpscaleGoogleAvatar rewrites a Google avatar size segment ("/s44-.../") to "/s{size}-c/".
func UpscaleGoogleAvatar(url string, size int) string {
	if url == "" {
		return ""
	}
	if size <= 0 {
		size = 400
	}
	loc := googleAvatarSize.FindStringIndex(url)
	if loc == nil {
		return url
	}
	return url[:loc[0]] + "/s" + strconv.Itoa(size) + "-c/" + url[loc[1]:]
}
