// Package cleaner turns raw extraction results into deduplicated, defaulted
// and scored records ready for the sinks.
package cleaner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/models"
)

// ErrInvalidBatch is returned by Validate when a batch cannot be persisted.
var ErrInvalidBatch = errors.New("invalid batch")

// lowQualityThreshold is the average score below which a batch is flagged.
const lowQualityThreshold = 40

// Normalize converts a batch of raw records. Steps run in this order:
// dedupe by source URL (first wins), drop records without a project name,
// trim, standardize type, format phone, fill defaults, score.
func Normalize(raw []models.RawRecord) []models.NormalizedRecord {
	records := make([]models.NormalizedRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, models.NormalizedRecord{
			ProjectName:     r.ProjectName,
			ProjectLocation: r.ProjectLocation,
			ProjectType:     r.ProjectType,
			ContactName:     r.ContactName,
			MobileNumber:    r.MobileNumber,
			SourceURL:       r.SourceURL,
			ExtractionDate:  r.ExtractionDate,
			Status:          r.Status,
			Method:          r.Method,
			FallbackNotes:   r.FallbackNotes(),
		})
	}
	return Renormalize(records)
}

// Renormalize applies the same pipeline to already-normalized records.
// Normalization is idempotent: Renormalize(Normalize(x)) equals Normalize(x).
func Renormalize(records []models.NormalizedRecord) []models.NormalizedRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.NormalizedRecord, 0, len(records))

	for _, r := range records {
		if _, dup := seen[r.SourceURL]; dup {
			continue
		}
		seen[r.SourceURL] = struct{}{}

		if strings.TrimSpace(r.ProjectName) == "" {
			continue
		}

		r.ProjectName = strings.TrimSpace(r.ProjectName)
		r.ProjectLocation = strings.TrimSpace(r.ProjectLocation)
		r.ContactName = strings.TrimSpace(r.ContactName)
		r.SourceURL = strings.TrimSpace(r.SourceURL)
		r.FallbackNotes = strings.TrimSpace(r.FallbackNotes)

		r.ProjectType = StandardizeProjectType(r.ProjectType)
		r.MobileNumber = FormatPhone(r.MobileNumber)

		if r.ProjectLocation == "" {
			r.ProjectLocation = models.DefaultLocation
		}
		if r.ContactName == "" {
			r.ContactName = models.DefaultContact
		}

		r.QualityScore = QualityScore(r)
		out = append(out, r)
	}
	return out
}

// QualityScore is an additive completeness metric in [0, 100]: 30 for a
// name, 20 each for contact and mobile, 15 each for location and type.
// Default placeholder values earn nothing.
func QualityScore(r models.NormalizedRecord) int {
	score := 0
	if present(r.ProjectName, "") {
		score += 30
	}
	if present(r.ContactName, models.DefaultContact) {
		score += 20
	}
	if present(r.MobileNumber, models.DefaultMobile) {
		score += 20
	}
	if present(r.ProjectLocation, models.DefaultLocation) {
		score += 15
	}
	if present(r.ProjectType, models.DefaultType) {
		score += 15
	}
	return score
}

func present(value, placeholder string) bool {
	v := strings.TrimSpace(value)
	return v != "" && v != placeholder
}

// AverageScore returns the mean quality score, 0 for an empty batch.
func AverageScore(records []models.NormalizedRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		total += r.QualityScore
	}
	return float64(total) / float64(len(records))
}

// Validate rejects a batch with no records or with records missing the
// essential Project Name / Source URL values. A low average quality score
// is only logged.
func Validate(records []models.NormalizedRecord, log logger.Logger) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: no records survived normalization", ErrInvalidBatch)
	}
	for i, r := range records {
		if r.ProjectName == "" || r.SourceURL == "" {
			return fmt.Errorf("%w: record %d is missing %s or %s",
				ErrInvalidBatch, i, models.ColProjectName, models.ColSourceURL)
		}
	}
	if avg := AverageScore(records); avg < lowQualityThreshold {
		log.Warn("Low average data quality score",
			logger.Float64("average_score", avg),
			logger.Int("threshold", lowQualityThreshold),
			logger.Int("records", len(records)))
	}
	return nil
}
