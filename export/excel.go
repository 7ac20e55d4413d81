// export/excel.go
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/models"
)

const (
	// SeparatorPrefix starts the marker row written ahead of each run's records.
	SeparatorPrefix = "--- Run "
	metadataSheet   = "Metadata"

	minColWidth = 12
	maxColWidth = 50
)

// SeparatorText is the marker row content for a run started at runAt.
func SeparatorText(runAt time.Time) string {
	return SeparatorPrefix + runAt.Format(models.DateLayout) + " ---"
}

// ExcelExporter appends run batches to a styled workbook. Every write
// rereads the existing history, merges, and replaces the whole file.
type ExcelExporter struct {
	cfg     config.ExcelConfig
	columns []string
	log     logger.Logger
}

// NewExcelExporter builds an exporter for cfg.
func NewExcelExporter(cfg config.ExcelConfig, log logger.Logger) *ExcelExporter {
	columns := append([]string{}, models.CoreColumns...)
	if cfg.Provenance() {
		columns = append(columns, models.ProvenanceColumns...)
	}
	return &ExcelExporter{cfg: cfg, columns: columns, log: log}
}

// Columns returns the header row written by this exporter.
func (e *ExcelExporter) Columns() []string { return e.columns }

// TargetPath resolves the workbook path for a run, adding a
// _YYYYMMDD_HHMMSS suffix when timestamped output is enabled.
func (e *ExcelExporter) TargetPath(runAt time.Time) string {
	name := e.cfg.OutputFile
	if e.cfg.UseTimestamp {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + runAt.Format("20060102_150405") + ext
	}
	return filepath.Join(e.cfg.OutputDir, name)
}

// FallbackPath is where WriteFallback puts its minimal workbook.
func (e *ExcelExporter) FallbackPath() string {
	return filepath.Join(e.cfg.OutputDir, e.cfg.FallbackFile)
}

// Export appends records to the history workbook and returns its path.
// With no records, an existing workbook is left untouched and a missing one
// is created with just the header row.
func (e *ExcelExporter) Export(records []models.NormalizedRecord, runAt time.Time) (string, error) {
	path := e.TargetPath(runAt)

	if len(records) == 0 {
		if _, err := os.Stat(path); err == nil {
			e.log.Info("No records to export, leaving workbook untouched", logger.String("file", path))
			return path, nil
		}
		return path, e.writeWorkbook(path, nil, nil, runAt)
	}

	history, err := e.readHistory(path)
	if err != nil {
		return "", err
	}
	if err := e.writeWorkbook(path, history, records, runAt); err != nil {
		return "", err
	}
	e.log.Info("Exported records to workbook",
		logger.String("file", path),
		logger.Int("records", len(records)),
		logger.Int("history_rows", len(history)))
	return path, nil
}

// readHistory returns the data rows of an existing workbook, re-ordered into
// the exporter's columns by header name. A missing file has no history.
func (e *ExcelExporter) readHistory(path string) ([][]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open existing workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(e.cfg.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q from %s: %w", e.cfg.SheetName, path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}

	history := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if separatorRow(row) {
			history = append(history, []string{row[0]})
			continue
		}
		mapped := make([]string, len(e.columns))
		for i, col := range e.columns {
			if j, ok := index[col]; ok && j < len(row) {
				mapped[i] = row[j]
			}
		}
		history = append(history, mapped)
	}
	return history, nil
}

// writeWorkbook renders the full workbook and atomically replaces path.
func (e *ExcelExporter) writeWorkbook(path string, history [][]string, records []models.NormalizedRecord, runAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.cfg.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
	}

	rows := make([][]any, 0, len(history)+len(records)+2)
	rows = append(rows, toAny(e.columns))
	for _, h := range history {
		rows = append(rows, e.historyCells(h))
	}
	if len(records) > 0 {
		rows = append(rows, []any{SeparatorText(runAt)})
		for _, r := range records {
			rows = append(rows, r.Values(e.cfg.Provenance()))
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := e.style(f, sheet, rows); err != nil {
		return fmt.Errorf("failed to style workbook: %w", err)
	}
	if len(records) > 0 {
		if err := writeMetadataSheet(f, records, runAt); err != nil {
			return fmt.Errorf("failed to write metadata sheet: %w", err)
		}
	}
	return saveAtomic(f, path)
}

// historyCells restores numeric quality scores so the column stays numeric
// across rewrites.
func (e *ExcelExporter) historyCells(row []string) []any {
	cells := toAny(row)
	if separatorRow(row) {
		return cells
	}
	for i, col := range e.columns {
		if col != models.ColQualityScore || i >= len(row) {
			continue
		}
		if n, err := strconv.Atoi(row[i]); err == nil {
			cells[i] = n
		}
	}
	return cells
}

func (e *ExcelExporter) style(f *excelize.File, sheet string, rows [][]any) error {
	border := []excelize.Border{
		{Type: "left", Color: "D9D9D9", Style: 1},
		{Type: "right", Color: "D9D9D9", Style: 1},
		{Type: "top", Color: "D9D9D9", Style: 1},
		{Type: "bottom", Color: "D9D9D9", Style: 1},
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	})
	if err != nil {
		return err
	}
	stripe, err := f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F2F2F2"}},
		Border: border,
	})
	if err != nil {
		return err
	}
	plain, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return err
	}
	separator, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Italic: true, Color: "595959"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(e.columns))
	if err != nil {
		return err
	}
	rowStyle := func(row, style int) error {
		return f.SetCellStyle(sheet, "A"+strconv.Itoa(row), lastCol+strconv.Itoa(row), style)
	}

	if err := rowStyle(1, header); err != nil {
		return err
	}
	data := 0
	for i := 1; i < len(rows); i++ {
		style := plain
		switch {
		case isSeparator(rows[i]):
			style = separator
		case data%2 == 1:
			style = stripe
		}
		if !isSeparator(rows[i]) {
			data++
		}
		if err := rowStyle(i+1, style); err != nil {
			return err
		}
	}

	for i, width := range columnWidths(rows, len(e.columns)) {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// separatorRow reports whether a row read back from a sheet is a run
// marker: a single cell carrying the separator prefix. Data rows always
// fill more than one column.
func separatorRow(row []string) bool {
	return len(row) == 1 && strings.HasPrefix(row[0], SeparatorPrefix)
}

func isSeparator(row []any) bool {
	if len(row) != 1 {
		return false
	}
	s, ok := row[0].(string)
	return ok && strings.HasPrefix(s, SeparatorPrefix)
}

// columnWidths sizes each column to its longest cell plus padding, clamped
// to [minColWidth, maxColWidth]. Separator rows are ignored.
func columnWidths(rows [][]any, n int) []float64 {
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = minColWidth
	}
	for _, row := range rows {
		if isSeparator(row) {
			continue
		}
		for i := 0; i < n && i < len(row); i++ {
			w := float64(utf8.RuneCountInString(fmt.Sprint(row[i])) + 2)
			if w > widths[i] {
				widths[i] = min(w, maxColWidth)
			}
		}
	}
	return widths
}

// WriteFallback writes records with no history, styling or metadata to the
// fallback workbook. It is the last resort when Export fails.
func (e *ExcelExporter) WriteFallback(records []models.NormalizedRecord) (string, error) {
	path := e.FallbackPath()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := toAny(e.columns)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write fallback header: %w", err)
	}
	for i, r := range records {
		vals := r.Values(e.cfg.Provenance())
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(i+2), &vals); err != nil {
			return "", fmt.Errorf("failed to write fallback row %d: %w", i+2, err)
		}
	}

	if err := ensureDir(path); err != nil {
		return "", err
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save fallback workbook %s: %w", path, err)
	}
	e.log.Warn("Wrote fallback workbook", logger.String("file", path), logger.Int("records", len(records)))
	return path, nil
}

// saveAtomic writes f next to path and renames it into place, so a failed
// write never leaves a truncated workbook behind.
func saveAtomic(f *excelize.File, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace workbook %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
