package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gewnthar/projectscraper/config"
	"github.com/gewnthar/projectscraper/export"
	"github.com/gewnthar/projectscraper/logger"
	"github.com/gewnthar/projectscraper/models"
	"github.com/gewnthar/projectscraper/scraper"
	"github.com/gewnthar/projectscraper/services"
)

const livePage = `<html><head><title>ignored</title></head><body>
<h1 class="title">Alpha Tower</h1>
<span class="location">Khartoum</span>
<span class="type">web app</span>
<span class="contact-name">Sara Ahmed</span>
<p>Call +1 555 123 4567 today</p>
</body></html>`

type fakeNotifier struct {
	mu      sync.Mutex
	reports []string
	errors  []string
}

func (f *fakeNotifier) SendReport(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, path)
	return nil
}

func (f *fakeNotifier) SendErrorReport(_ context.Context, message, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
	return nil
}

type fakeStore struct {
	saved []models.RunSummary
	last  *models.RunSummary
}

func (f *fakeStore) SaveRun(_ context.Context, run models.RunSummary, _ []models.NormalizedRecord) error {
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeStore) LastRun(context.Context) (*models.RunSummary, error) { return f.last, nil }

func writeSites(t *testing.T, dir string, sites []models.SiteDescriptor) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"websites": sites})
	require.NoError(t, err)
	path := filepath.Join(dir, "websites.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newEngine() *scraper.Engine {
	return scraper.NewEngine(
		scraper.NewHTTPFetcher(100*time.Millisecond, "projectscraper-test"),
		scraper.EngineConfig{MaxRetries: 3, Concurrency: 2},
		logger.NewNop(),
		scraper.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func TestRun_LiveAndFallbackSites(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(livePage))
	}))
	defer live.Close()

	var slowHits atomic.Int32
	slow := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		slowHits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	dir := t.TempDir()
	sitesFile := writeSites(t, dir, []models.SiteDescriptor{
		{URL: live.URL, Name: "Site A"},
		{URL: slow.URL + "/b", Name: "Site B", Metadata: models.FallbackMetadata{Name: "B Corp", Location: "Lagos"}},
	})

	excelCfg := config.ExcelConfig{OutputDir: dir, OutputFile: "out.xlsx", SheetName: "Projects", FallbackFile: "fallback.xlsx"}
	notifier := &fakeNotifier{}
	store := &fakeStore{}
	svc := services.NewRunService(services.Deps{
		SitesFile: sitesFile,
		LoadSites: scraper.LoadSites,
		Collector: newEngine(),
		Workbook:  export.NewExcelExporter(excelCfg, logger.NewNop()),
		CSV:       export.NewCSVExporter(filepath.Join(dir, "out.csv"), logger.NewNop()),
		Store:     store,
		Notifier:  notifier,
		Log:       logger.NewNop(),
	})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), slowHits.Load())
	assert.Equal(t, models.RunSuccess, summary.Result)
	assert.Equal(t, 2, summary.Sites)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, 1, summary.LiveRecords)
	assert.Equal(t, 1, summary.FallbackRecords)
	assert.Equal(t, filepath.Join(dir, "out.xlsx"), summary.OutputFile)
	assert.Equal(t, []string{summary.OutputFile}, notifier.reports)
	assert.Empty(t, notifier.errors)
	require.Len(t, store.saved, 1)
	assert.Equal(t, summary.ID, store.saved[0].ID)

	f, err := excelize.OpenFile(summary.OutputFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Projects")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	a, b := rows[2], rows[3]
	assert.Equal(t, "Alpha Tower", a[0])
	assert.Equal(t, "Khartoum", a[1])
	assert.Equal(t, "Web Development", a[2])
	assert.Equal(t, "Sara Ahmed", a[3])
	assert.Equal(t, "555-123-4567", a[4])
	assert.Equal(t, "100", a[7])
	assert.Equal(t, string(models.StatusSuccessLive), a[8])

	assert.Equal(t, "B Corp", b[0])
	assert.Equal(t, "Lagos", b[1])
	assert.Equal(t, models.DefaultType, b[2])
	assert.Equal(t, models.DefaultContact, b[3])
	assert.Equal(t, models.DefaultMobile, b[4])
	assert.Equal(t, "45", b[7])
	assert.Equal(t, string(models.StatusFailedMetadataOnly), b[8])
	assert.Equal(t, string(models.StrategyNone), b[9])

	_, err = os.Stat(filepath.Join(dir, "out.csv"))
	assert.NoError(t, err)

	last, err := svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, summary.ID, last.ID)
}

func TestRun_NoSites(t *testing.T) {
	dir := t.TempDir()
	excelCfg := config.ExcelConfig{OutputDir: dir, OutputFile: "out.xlsx", SheetName: "Projects", FallbackFile: "fallback.xlsx"}
	notifier := &fakeNotifier{}

	svc := services.NewRunService(services.Deps{
		SitesFile: filepath.Join(dir, "missing.json"),
		LoadSites: scraper.LoadSites,
		Collector: newEngine(),
		Workbook:  export.NewExcelExporter(excelCfg, logger.NewNop()),
		Notifier:  notifier,
		Log:       logger.NewNop(),
	})

	summary, err := svc.Run(context.Background())
	require.ErrorIs(t, err, services.ErrNoSites)
	assert.Equal(t, models.RunFailure, summary.Result)
	assert.Empty(t, notifier.reports)
	assert.Len(t, notifier.errors, 1)

	f, err := excelize.OpenFile(filepath.Join(dir, "out.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Projects")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingWorkbook struct {
	fallbackErr error
	fallbacks   int
}

func (w *failingWorkbook) Export([]models.NormalizedRecord, time.Time) (string, error) {
	return "", errors.New("permission denied")
}

func (w *failingWorkbook) WriteFallback([]models.NormalizedRecord) (string, error) {
	w.fallbacks++
	if w.fallbackErr != nil {
		return "", w.fallbackErr
	}
	return "fallback.xlsx", nil
}

type staticCollector []models.RawRecord

func (c staticCollector) Collect(context.Context, []models.SiteDescriptor) []models.RawRecord { return c }

func staticSites(string) ([]models.SiteDescriptor, error) {
	return []models.SiteDescriptor{{URL: "https://a.example", Name: "A"}}, nil
}

func TestRun_ExportFallback(t *testing.T) {
	wb := &failingWorkbook{}
	notifier := &fakeNotifier{}
	svc := services.NewRunService(services.Deps{
		LoadSites: staticSites,
		Collector: staticCollector{{ProjectName: "A", SourceURL: "https://a.example", Status: models.StatusSuccessLive}},
		Workbook:  wb,
		Notifier:  notifier,
		Log:       logger.NewNop(),
	})

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, wb.fallbacks)
	assert.Equal(t, "fallback.xlsx", summary.OutputFile)
	assert.Equal(t, []string{"fallback.xlsx"}, notifier.reports)
}

func TestRun_ExportAndFallbackFail(t *testing.T) {
	wb := &failingWorkbook{fallbackErr: errors.New("disk full")}
	notifier := &fakeNotifier{}
	svc := services.NewRunService(services.Deps{
		LoadSites: staticSites,
		Collector: staticCollector{{ProjectName: "A", SourceURL: "https://a.example"}},
		Workbook:  wb,
		Notifier:  notifier,
		Log:       logger.NewNop(),
	})

	summary, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.RunFailure, summary.Result)
	assert.Empty(t, notifier.reports)
	assert.Len(t, notifier.errors, 1)
}

type recordingWorkbook struct {
	calls [][]models.NormalizedRecord
}

func (w *recordingWorkbook) Export(records []models.NormalizedRecord, _ time.Time) (string, error) {
	w.calls = append(w.calls, records)
	return "out.xlsx", nil
}

func (w *recordingWorkbook) WriteFallback([]models.NormalizedRecord) (string, error) {
	return "", errors.New("unexpected")
}

func TestRun_InvalidBatchSkipsExport(t *testing.T) {
	wb := &recordingWorkbook{}
	svc := services.NewRunService(services.Deps{
		LoadSites: staticSites,
		Collector: staticCollector{{ProjectName: "   ", SourceURL: "https://a.example"}},
		Workbook:  wb,
		Log:       logger.NewNop(),
	})

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Len(t, wb.calls, 1)
	assert.Empty(t, wb.calls[0])
}

func TestLastRun_FallsBackToStore(t *testing.T) {
	stored := &models.RunSummary{ID: "previous", Result: models.RunSuccess}
	svc := services.NewRunService(services.Deps{Store: &fakeStore{last: stored}, Log: logger.NewNop()})

	got, err := svc.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "previous", got.ID)

	empty := services.NewRunService(services.Deps{Log: logger.NewNop()})
	got, err = empty.LastRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}
