package domain

import "time"

// Review one row of the company_reviews table.
type Review struct {
	ReviewID     string     `db:"review_id" json:"review_id"`
	ReviewerName string     `db:"reviewer_name" json:"reviewer_name,omitempty"`
	Text         string     `db:"text" json:"text,omitempty"`
	Stars        int        `db:"stars" json:"stars"`
	PublishedAt  *time.Time `db:"published_at_date" json:"published_at_date,omitempty"`
}

// ReviewLink column/value pair joining company_reviews to a company.
type ReviewLink struct {
	Column string // biz_id | place_id
	Value  string
}

func (r Review) DisplayName() string {
	if r.ReviewerName == "" {
		return "Verified Customer"
	}
	return r.ReviewerName
}
