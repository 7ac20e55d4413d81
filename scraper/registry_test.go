package scraper_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/projectscraper/scraper"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSites_JSON(t *testing.T) {
	path := writeFile(t, "websites.json", `{
	"websites": [
		{"url": " https://a.example ", "name": "A", "metadata": {"location": "Lagos"}},
		{"url": "https://b.example"}
	]
}`)
	sites, err := scraper.LoadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "https://a.example", sites[0].URL)
	assert.Equal(t, "Lagos", sites[0].Metadata.Location)
	assert.Equal(t, "https://b.example", sites[1].Name)
}

func TestLoadSites_YAML(t *testing.T) {
	path := writeFile(t, "websites.yaml", `
websites:
  - url: https://github.com/acme
    name: Acme
    metadata:
      contact_name: Wile E.
      mobile_number: "+15551234567"
`)
	sites, err := scraper.LoadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "Acme", sites[0].Name)
	assert.Equal(t, "Wile E.", sites[0].Metadata.ContactName)
	assert.Equal(t, "+15551234567", sites[0].Metadata.MobileNumber)
}

func TestLoadSites_CSV(t *testing.T) {
	path := writeFile(t, "websites.csv", "url,name,metadata_name,location\n"+
		"https://a.example,A,Alpha Ltd,Accra\n"+
		"https://b.example,,,\n")
	sites, err := scraper.LoadSites(path)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Alpha Ltd", sites[0].Metadata.Name)
	assert.Equal(t, "Accra", sites[0].Metadata.Location)
	assert.Equal(t, "https://b.example", sites[1].Name)
}

func TestLoadSites_Failures(t *testing.T) {
	sites, err := scraper.LoadSites(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.NotNil(t, sites)
	assert.Empty(t, sites)

	sites, err = scraper.LoadSites(writeFile(t, "broken.json", `{"websites": [`))
	assert.Error(t, err)
	assert.Empty(t, sites)
}
