// export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/models"
)

// CSVRow is one exported record. Headers match the workbook's column names.
type CSVRow struct {
	ProjectName     string `csv:"Project Name"`
	ProjectLocation string `csv:"Project Location"`
	ProjectType     string `csv:"Project Type"`
	ContactName     string `csv:"Contact Name"`
	MobileNumber    string `csv:"Mobile Number"`
	SourceURL       string `csv:"Source URL"`
	ExtractionDate  string `csv:"Extraction Date"`
	QualityScore    int    `csv:"Data Quality Score"`
	Status          string `csv:"Extraction Status"`
	Method          string `csv:"Extraction Method"`
	FallbackNotes   string `csv:"Fallback Notes"`
}

func toCSVRow(r models.NormalizedRecord) CSVRow {
	row := CSVRow{
		ProjectName:     r.ProjectName,
		ProjectLocation: r.ProjectLocation,
		ProjectType:     r.ProjectType,
		ContactName:     r.ContactName,
		MobileNumber:    r.MobileNumber,
		SourceURL:       r.SourceURL,
		QualityScore:    r.QualityScore,
		Status:          string(r.Status),
		Method:          string(r.Method),
		FallbackNotes:   r.FallbackNotes,
	}
	if !r.ExtractionDate.IsZero() {
		row.ExtractionDate = r.ExtractionDate.Format(models.DateLayout)
	}
	return row
}

// WriteCSV encodes records with a header row. The header is written even
// when there are no records.
func WriteCSV(w io.Writer, records []models.NormalizedRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(CSVRow{}); err != nil {
		return fmt.Errorf("failed to encode CSV header: %w", err)
	}
	for _, r := range records {
		if err := enc.Encode(toCSVRow(r)); err != nil {
			return fmt.Errorf("failed to encode CSV row for %s: %w", r.SourceURL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVExporter writes each run batch to a flat CSV file, replacing the
// previous run's file.
type CSVExporter struct {
	path string
	log  logger.Logger
}

func NewCSVExporter(path string, log logger.Logger) *CSVExporter {
	return &CSVExporter{path: path, log: log}
}

// Export writes records to the configured path and returns it.
func (e *CSVExporter) Export(records []models.NormalizedRecord) (string, error) {
	if err := ensureDir(e.path); err != nil {
		return "", err
	}
	f, err := os.Create(e.path)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file %s: %w", e.path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close CSV file %s: %w", e.path, err)
	}
	e.log.Info("Exported records to CSV", logger.String("file", e.path), logger.Int("records", len(records)))
	return e.path, nil
}
