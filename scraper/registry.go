// scraper/registry.go
package scraper

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"gopkg.in/yaml.v3"

	"github.com/gewnthar/projectscraper/models"
)

// registryFile is the on-disk shape of the site registry.
type registryFile struct {
	Websites []models.SiteDescriptor `json:"websites" yaml:"websites"`
}

// siteRow is one line of a CSV registry. The header row must use these names;
// metadata columns may be omitted.
type siteRow struct {
	URL          string `csv:"url"`
	Name         string `csv:"name,omitempty"`
	MetaName     string `csv:"metadata_name,omitempty"`
	Location     string `csv:"location,omitempty"`
	Type         string `csv:"type,omitempty"`
	ContactName  string `csv:"contact_name,omitempty"`
	MobileNumber string `csv:"mobile_number,omitempty"`
}

// parseCSVRegistry decodes a flat CSV registry into descriptors.
func parseCSVRegistry(data []byte) ([]models.SiteDescriptor, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder: %w", err)
	}
	var rows []siteRow
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode CSV rows: %w", err)
	}
	sites := make([]models.SiteDescriptor, 0, len(rows))
	for _, r := range rows {
		sites = append(sites, models.SiteDescriptor{
			URL:  r.URL,
			Name: r.Name,
			Metadata: models.FallbackMetadata{
				Name:         r.MetaName,
				Location:     r.Location,
				Type:         r.Type,
				ContactName:  r.ContactName,
				MobileNumber: r.MobileNumber,
			},
		})
	}
	return sites, nil
}

// LoadSites reads the site registry from a JSON, YAML or CSV file, chosen by
// extension (.yaml/.yml, .csv, anything else JSON). On any read or parse
// failure it returns an empty registry together with the error, so callers
// can log it and carry on with zero sites.
func LoadSites(path string) ([]models.SiteDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []models.SiteDescriptor{}, fmt.Errorf("failed to read site registry %s: %w", path, err)
	}

	var reg registryFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &reg)
	case ".csv":
		reg.Websites, err = parseCSVRegistry(data)
	default:
		err = json.Unmarshal(data, &reg)
	}
	if err != nil {
		return []models.SiteDescriptor{}, fmt.Errorf("failed to parse site registry %s: %w", path, err)
	}

	sites := make([]models.SiteDescriptor, 0, len(reg.Websites))
	for _, s := range reg.Websites {
		s.URL = strings.TrimSpace(s.URL)
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			s.Name = s.URL
		}
		sites = append(sites, s)
	}
	return sites, nil
}
