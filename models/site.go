// models/site.go
package models

// FallbackMetadata holds manually curated values used when a page cannot be
// scraped live, or when a single field is missing from the live page.
type FallbackMetadata struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Location     string `json:"location,omitempty" yaml:"location,omitempty"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	ContactName  string `json:"contact_name,omitempty" yaml:"contact_name,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty" yaml:"mobile_number,omitempty"`
}

// SiteDescriptor is one configured target page. Loaded once per run and never mutated.
type SiteDescriptor struct {
	URL      string           `json:"url" yaml:"url"`
	Name     string           `json:"name,omitempty" yaml:"name,omitempty"` // Display label, defaults to URL
	Metadata FallbackMetadata `json:"metadata" yaml:"metadata"`
}

// Label returns the display name used in logs.
func (s SiteDescriptor) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.URL
}
