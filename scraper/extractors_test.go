package scraper_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/projectscraper/scraper"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestExtractProjectName_HeadingWins(t *testing.T) {
	d := doc(t, `<html><head><title>Page Title</title></head><body>
		<div class="project-title">Proj</div>
		<h1>  Main
			Heading </h1>
	</body></html>`)
	assert.Equal(t, "Main Heading", scraper.ExtractProjectName(d))
}

func TestExtractProjectName_TitleBeforeProductTitle(t *testing.T) {
	d := doc(t, `<html><head><title>Page Title</title></head><body><div class="product-title">Widget</div></body></html>`)
	assert.Equal(t, "Page Title", scraper.ExtractProjectName(d))
}

func TestExtractors_SelectorOrder(t *testing.T) {
	d := doc(t, `<html><head><title>Page Title</title></head><body>
		<h1>Main Heading</h1>
		<div class="project-title">Proj</div>
		<div class="project-location">Other</div>
		<div class="location">Khartoum</div>
		<div class="project-type">Car</div>
		<div class="type">Web</div>
		<span class="owner">Someone Else</span>
		<div class="contact-info"><span class="name">Info Name</span></div>
		<span class="contact-name">Amira Hassan</span>
		<div class="contact-info"><span class="phone">555-000-1111</span></div>
		<span class="phone">555-222-3333</span>
	</body></html>`)

	assert.Equal(t, "Main Heading", scraper.ExtractProjectName(d))
	assert.Equal(t, "Khartoum", scraper.ExtractProjectLocation(d))
	assert.Equal(t, "Web", scraper.ExtractProjectType(d))
	assert.Equal(t, "Amira Hassan", scraper.ExtractContactName(d))
	assert.Equal(t, "555-000-1111", scraper.ExtractMobileNumber(d))
}

func TestExtractProjectLocation_ProjectLocationBeforeAddress(t *testing.T) {
	d := doc(t, `<body><div class="address">12 Nile St</div><div class="project-location">Port Sudan</div></body>`)
	assert.Equal(t, "Port Sudan", scraper.ExtractProjectLocation(d))
}

func TestExtractProjectType_CategoryBeforeProjectCategory(t *testing.T) {
	d := doc(t, `<body><div class="project-category">Branding</div><div class="category">Graphic</div></body>`)
	assert.Equal(t, "Graphic", scraper.ExtractProjectType(d))
}

func TestExtractContactName_ContactHeadingBeforeInfoName(t *testing.T) {
	d := doc(t, `<body><div class="contact-info"><span class="name">Info Name</span></div><div class="contact"><h3>Omar Khalid</h3></div></body>`)
	assert.Equal(t, "Omar Khalid", scraper.ExtractContactName(d))
}

func TestExtractProjectName_SkipsEmptyMatches(t *testing.T) {
	d := doc(t, `<html><head><title>Fallback Title</title></head><body><h1 class="title">   </h1></body></html>`)
	assert.Equal(t, "Fallback Title", scraper.ExtractProjectName(d))
}

func TestExtractProjectName_Absent(t *testing.T) {
	assert.Empty(t, scraper.ExtractProjectName(doc(t, `<html><body><p>nothing</p></body></html>`)))
}

func TestExtractProjectLocation(t *testing.T) {
	d := doc(t, `<body><div class="address">12 Nile St</div><span class="location">Omdurman</span></body>`)
	assert.Equal(t, "Omdurman", scraper.ExtractProjectLocation(d))
}

func TestExtractProjectType(t *testing.T) {
	d := doc(t, `<body><div class="category">Graphic</div></body>`)
	assert.Equal(t, "Graphic", scraper.ExtractProjectType(d))

	d = doc(t, `<head><meta name="keywords" content=" mobile app , flutter"></head><body></body>`)
	assert.Equal(t, "mobile app", scraper.ExtractProjectType(d))

	assert.Empty(t, scraper.ExtractProjectType(doc(t, `<body></body>`)))
}

func TestExtractContactName(t *testing.T) {
	d := doc(t, `<body><div class="contact"><h3>Omar Khalid</h3></div><span class="owner">Someone Else</span></body>`)
	assert.Equal(t, "Omar Khalid", scraper.ExtractContactName(d))
}

func TestExtractMobileNumber(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"marked element", `<body><span class="mobile-number">0912 345 678</span></body>`, "0912 345 678"},
		{"tel link text", `<body><a href="tel:+15551234567">+1 555 123 4567</a></body>`, "+1 555 123 4567"},
		{"tel link href", `<body><a href="tel:+15551234567"><img src="x.png"></a></body>`, "+15551234567"},
		{"text scan", `<body><p>Reach us at 555.123.4567 anytime</p></body>`, "555.123.4567"},
		{"country code scan", `<body><span>WhatsApp +966 512 345 6789</span></body>`, "+966 512 345 6789"},
		{"absent", `<body><p>No phone here, 12345</p></body>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scraper.ExtractMobileNumber(doc(t, tt.html)))
		})
	}
}
