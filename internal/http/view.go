package httpapi

import (
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/service"
)

const (
	defaultOGImage    = "/static-assets/default-og-image.png"
	descriptionMetaLn = 120
	avatarSize        = 400
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// defaultServices rendered when a tenant has no service list of its own.
var defaultServices = []serviceCard{
	{Title: "Air Conditioning", Body: "Installation, repair and seasonal tune-ups for central and ductless systems."},
	{Title: "Heating", Body: "Furnace and heat pump repair, replacement and safety inspections."},
	{Title: "Maintenance Plans", Body: "Scheduled checkups that keep equipment efficient and warranties valid."},
	{Title: "Indoor Air Quality", Body: "Filtration, humidity control and duct cleaning."},
}

type serviceCard struct {
	Title string
	Body  string
}

type reviewView struct {
	Name      string
	Initial   string
	Text      string
	Stars     []struct{}
	Published string
}

// pageView template data for tenant.html.
type pageView struct {
	Title           string
	MetaDescription string
	CanonicalURL    string
	OGImage         string
	Style           template.CSS

	Name        string
	City        string
	State       string
	Phone       string
	PhoneHref   template.URL
	LogoURL     string
	Rating      string
	ReviewCount int
	Description string
	YearsInBiz  int
	FoundedYear int

	Services []serviceCard
	Reviews  []reviewView

	ReviewsLink  string
	Address      string
	WorkingHours string
	MapURL       string
	Facebook     string
	Instagram    string
	Year         int
}

func safeColor(v, def string) string {
	if hexColor.MatchString(v) {
		return v
	}
	return def
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// telHref is typed template.URL because html/template rejects the tel: scheme otherwise.
func telHref(phone string) template.URL {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return template.URL("tel:" + b.String())
}

func mapURL(c *domain.Company) string {
	q := ""
	switch {
	case c.Latitude != nil && c.Longitude != nil:
		q = fmt.Sprintf("%f,%f", *c.Latitude, *c.Longitude)
	case c.FullAddress != "":
		q = c.FullAddress
	default:
		return ""
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}

// newPageView maps loaded page data onto the template, applying the display fallbacks.
func newPageView(p *service.Page, canonical string, now time.Time) pageView {
	c := p.Company
	primary := safeColor(c.PrimaryColorHex, domain.DefaultPrimaryColor)
	secondary := safeColor(c.SecondaryColorHex, domain.DefaultSecondaryColor)

	meta := fmt.Sprintf("Contact %s for reliable HVAC services in %s. %s",
		c.DisplayName(), c.DisplayCity(), truncate(c.Description, descriptionMetaLn))

	v := pageView{
		Title:           fmt.Sprintf("%s | HVAC in %s", c.DisplayName(), c.DisplayCity()),
		MetaDescription: strings.TrimSpace(meta),
		CanonicalURL:    canonical,
		OGImage:         defaultOGImage,
		Style:           template.CSS(fmt.Sprintf("--hvac1-primary: %s; --hvac1-secondary: %s;", primary, secondary)),

		Name:         c.DisplayName(),
		City:         c.City,
		State:        c.State,
		Phone:        c.Phone,
		PhoneHref:    telHref(c.Phone),
		LogoURL:      upscaleAvatar(p.LogoURL),
		Description:  c.Description,
		YearsInBiz:   c.YearsInBusiness(now),
		Services:     defaultServices,
		ReviewsLink:  c.ReviewsLink,
		Address:      c.FullAddress,
		WorkingHours: c.WorkingHours,
		MapURL:       mapURL(c),
		Facebook:     c.Facebook,
		Instagram:    c.Instagram,
		Year:         now.Year(),
	}
	if v.LogoURL != "" {
		v.OGImage = v.LogoURL
	}
	if c.Rating != nil {
		v.Rating = strconv.FormatFloat(*c.Rating, 'f', 1, 64)
	}
	if c.ReviewCount != nil {
		v.ReviewCount = *c.ReviewCount
	}
	if c.FoundedYear != nil {
		v.FoundedYear = *c.FoundedYear
	}

	for _, r := range p.Reviews {
		stars := min(max(r.Stars, 0), 5)
		rv := reviewView{
			Name:  r.DisplayName(),
			Text:  r.Text,
			Stars: make([]struct{}, stars),
		}
		rv.Initial = strings.ToUpper(truncate(rv.Name, 1))
		if r.PublishedAt != nil {
			rv.Published = r.PublishedAt.Format("January 2006")
		}
		v.Reviews = append(v.Reviews, rv)
	}
	return v
}

// upscaleAvatar requests a larger rendition of Google-hosted profile photos.
func upscaleAvatar(u string) string {
	return domain.UpscaleGoogleAvatar(u, avatarSize)
}
