// export/metadata.go
package export

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/projectscraper/models"
)

type count struct {
	value string
	n     int
}

// distribution counts values, most frequent first, ties by value.
func distribution(records []models.NormalizedRecord, field func(models.NormalizedRecord) string) []count {
	seen := map[string]int{}
	for _, r := range records {
		seen[field(r)]++
	}
	out := make([]count, 0, len(seen))
	for v, n := range seen {
		out = append(out, count{v, n})
	}
	slices.SortFunc(out, func(a, b count) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.value, b.value)
	})
	return out
}

type qualitySummary struct {
	Average  float64
	Min, Max int
}

func summarize(records []models.NormalizedRecord) qualitySummary {
	if len(records) == 0 {
		return qualitySummary{}
	}
	s := qualitySummary{Min: records[0].QualityScore, Max: records[0].QualityScore}
	total := 0
	for _, r := range records {
		total += r.QualityScore
		s.Min = min(s.Min, r.QualityScore)
		s.Max = max(s.Max, r.QualityScore)
	}
	s.Average = float64(total) / float64(len(records))
	return s
}

// writeMetadataSheet adds a summary sheet describing the run batch.
func writeMetadataSheet(f *excelize.File, records []models.NormalizedRecord, runAt time.Time) error {
	if _, err := f.NewSheet(metadataSheet); err != nil {
		return err
	}

	var rows [][]any
	add := func(cells ...any) { rows = append(rows, cells) }

	add("Report Generated", runAt.Format(models.DateLayout))
	add("Total Records", len(records))
	add()
	add("Project Type Distribution")
	for _, c := range distribution(records, func(r models.NormalizedRecord) string { return r.ProjectType }) {
		add(c.value, c.n)
	}
	add()
	add("Location Distribution")
	for _, c := range distribution(records, func(r models.NormalizedRecord) string { return r.ProjectLocation }) {
		add(c.value, c.n)
	}
	add()
	q := summarize(records)
	add("Data Quality Summary")
	add("Average Score", strconv.FormatFloat(q.Average, 'f', 2, 64))
	add("Min Score", q.Min)
	add("Max Score", q.Max)

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(metadataSheet, "A"+strconv.Itoa(i+1), &row); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) == 1 {
			cell := "A" + strconv.Itoa(i+1)
			if err := f.SetCellStyle(metadataSheet, cell, cell, bold); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(metadataSheet, "A", "B", 28)
}
