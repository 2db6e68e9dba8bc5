package model

import (
	"strconv"
	"strings"
)

const (
	// NotDisclosed marks a profile value the source did not publish.
	NotDisclosed = "Not disclosed"
	// UnknownCompany names a company whose profile could not be collected.
	UnknownCompany = "Unknown Company"
)

// Profile is the structured company profile gathered during collection.
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mission     string `json:"mission,omitempty"`
	Founders    string `json:"founders,omitempty"`
	Funding     string `json:"funding"`
	Employees   string `json:"employees"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// EmployeeCount parses Employees as a plain integer ("1,200" is accepted).
// It returns nil when the value is missing or not numeric.
func (p Profile) EmployeeCount() *int {
	s := strings.ReplaceAll(strings.TrimSpace(p.Employees), ",", "")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// TotalRaised returns the disclosed funding amount, or nil.
func (p Profile) TotalRaised() *string {
	f := strings.TrimSpace(p.Funding)
	if f == "" || strings.EqualFold(f, NotDisclosed) {
		return nil
	}
	return &f
}

// WebsiteSnapshot summarises the company's homepage.
type WebsiteSnapshot struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Headings    []string `json:"headings,omitempty"`
}

// SourceDocument is a single enrichment search hit.
type SourceDocument struct {
	Kind    string `json:"kind,omitempty"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Date    string `json:"date,omitempty"`
}

// CompanySearchResult is one candidate profile page returned by profile search.
type CompanySearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SearchResponse is the body returned for a profile search.
type SearchResponse struct {
	Query   string                `json:"query"`
	Results []CompanySearchResult `json:"results"`
	Count   int                   `json:"count"`
}
