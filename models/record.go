// models/record.go
package models

import (
	"strings"
	"time"
)

// ExtractionStatus tags where a record's data came from. Set by the engine only.
type ExtractionStatus string

const (
	StatusSuccessLive        ExtractionStatus = "Success-Live"
	StatusFailedMetadataOnly ExtractionStatus = "Failed-MetadataOnly"
)

// StrategyID names the site strategy that produced a record.
type StrategyID string

const (
	StrategyGeneric   StrategyID = "Generic"
	StrategySudancar  StrategyID = "Sudancar"
	StrategyGitHub    StrategyID = "GitHub"
	StrategyPortfolio StrategyID = "Portfolio"
	// StrategyNone marks records synthesized purely from metadata.
	StrategyNone StrategyID = "None"
)

// Column names shared by the normalizer and every sink.
const (
	ColProjectName     = "Project Name"
	ColProjectLocation = "Project Location"
	ColProjectType     = "Project Type"
	ColContactName     = "Contact Name"
	ColMobileNumber    = "Mobile Number"
	ColSourceURL       = "Source URL"
	ColExtractionDate  = "Extraction Date"
	ColQualityScore    = "Data Quality Score"
	ColStatus          = "Extraction Status"
	ColMethod          = "Extraction Method"
	ColFallbackNotes   = "Fallback Notes"
)

// Defaults substituted for empty values during normalization.
const (
	DefaultLocation = "Unknown"
	DefaultContact  = "Unknown"
	DefaultMobile   = "Not provided"
	DefaultType     = "Miscellaneous"
)

// DateLayout is the textual layout for Extraction Date cells.
const DateLayout = "2006-01-02 15:04:05"

// Candidate is what a site strategy returns: the core fields plus which of them
// were backfilled from metadata. Empty string means absent.
type Candidate struct {
	ProjectName     string
	ProjectLocation string
	ProjectType     string
	ContactName     string
	MobileNumber    string
	SourceURL       string
	FallbackFields  []string
}

// RawRecord is produced once per site descriptor by the engine.
type RawRecord struct {
	ProjectName     string
	ProjectLocation string
	ProjectType     string
	ContactName     string
	MobileNumber    string
	SourceURL       string
	ExtractionDate  time.Time
	Status          ExtractionStatus
	Method          StrategyID
	FallbackFields  []string
}

// FallbackNotes renders the backfilled field list, empty when nothing was backfilled.
func (r RawRecord) FallbackNotes() string {
	if len(r.FallbackFields) == 0 {
		return ""
	}
	return "Metadata used for: " + strings.Join(r.FallbackFields, ", ")
}

// NormalizedRecord is the unit persisted by the sinks.
type NormalizedRecord struct {
	ProjectName     string           `db:"project_name"`
	ProjectLocation string           `db:"project_location"`
	ProjectType     string           `db:"project_type"`
	ContactName     string           `db:"contact_name"`
	MobileNumber    string           `db:"mobile_number"`
	SourceURL       string           `db:"source_url"`
	ExtractionDate  time.Time        `db:"extraction_date"`
	QualityScore    int              `db:"quality_score"`
	Status          ExtractionStatus `db:"extraction_status"`
	Method          StrategyID       `db:"extraction_method"`
	FallbackNotes   string           `db:"fallback_notes"`
}

// CoreColumns is the fixed, recognized column order of the spreadsheet.
var CoreColumns = []string{
	ColProjectName, ColProjectLocation, ColProjectType, ColContactName,
	ColMobileNumber, ColSourceURL, ColExtractionDate, ColQualityScore,
}

// ProvenanceColumns are optional diagnostic columns appended after the core ones.
var ProvenanceColumns = []string{ColStatus, ColMethod, ColFallbackNotes}

// Values returns the record's cells in CoreColumns order, optionally followed
// by the provenance columns.
func (r NormalizedRecord) Values(withProvenance bool) []any {
	date := ""
	if !r.ExtractionDate.IsZero() {
		date = r.ExtractionDate.Format(DateLayout)
	}
	vals := []any{
		r.ProjectName, r.ProjectLocation, r.ProjectType, r.ContactName,
		r.MobileNumber, r.SourceURL, date, r.QualityScore,
	}
	if withProvenance {
		vals = append(vals, string(r.Status), string(r.Method), r.FallbackNotes)
	}
	return vals
}
