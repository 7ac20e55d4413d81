// scraper/strategies.go
package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/projectscraper/models"
)

// Strategy extracts the core project fields from one parsed page. Every
// implementation backfills absent fields from the site's metadata the same
// way and reports which fields it backfilled.
type Strategy interface {
	ID() models.StrategyID
	Extract(doc *goquery.Document, pageURL string, meta models.FallbackMetadata) models.Candidate
}

// exactHosts are matched against the full host first.
var exactHosts = map[string]models.StrategyID{
	"www.sudancar.com": models.StrategySudancar,
}

// hostMarkers are tried in order when no exact host matches.
var hostMarkers = []struct {
	marker string
	id     models.StrategyID
}{
	{"sudancar.com", models.StrategySudancar},
	{"github.com", models.StrategyGitHub},
	{"vercel.app", models.StrategyPortfolio},
}

var strategies = map[models.StrategyID]Strategy{
	models.StrategyGeneric:   genericStrategy{},
	models.StrategySudancar:  sudancarStrategy{},
	models.StrategyGitHub:    githubStrategy{},
	models.StrategyPortfolio: portfolioStrategy{},
}

// Classify maps a host to a strategy: exact host match, then substring
// marker, else Generic. Ports and case are ignored.
func Classify(host string) models.StrategyID {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if id, ok := exactHosts[host]; ok {
		return id
	}
	for _, m := range hostMarkers {
		if strings.Contains(host, m.marker) {
			return m.id
		}
	}
	return models.StrategyGeneric
}

// ClassifyURL classifies the host component of rawURL. Unparsable URLs are Generic.
func ClassifyURL(rawURL string) models.StrategyID {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.StrategyGeneric
	}
	return Classify(u.Host)
}

// StrategyFor returns the strategy implementation for pageURL.
func StrategyFor(pageURL string) Strategy {
	return strategies[ClassifyURL(pageURL)]
}

// liveFields holds what a strategy found on the page, before fallback.
type liveFields struct {
	name, location, projectType, contact, mobile string
}

// withFallback substitutes metadata for each absent live field, first
// non-empty wins, and records every substitution.
func withFallback(live liveFields, pageURL string, meta models.FallbackMetadata) models.Candidate {
	c := models.Candidate{SourceURL: pageURL}
	pick := func(value, fallback, column string) string {
		if value != "" {
			return value
		}
		if fallback != "" {
			c.FallbackFields = append(c.FallbackFields, column)
		}
		return fallback
	}
	c.ProjectName = pick(live.name, meta.Name, models.ColProjectName)
	c.ProjectLocation = pick(live.location, meta.Location, models.ColProjectLocation)
	c.ProjectType = pick(live.projectType, meta.Type, models.ColProjectType)
	c.ContactName = pick(live.contact, meta.ContactName, models.ColContactName)
	c.MobileNumber = pick(live.mobile, meta.MobileNumber, models.ColMobileNumber)
	return c
}

type genericStrategy struct{}

func (genericStrategy) ID() models.StrategyID { return models.StrategyGeneric }

func (genericStrategy) Extract(doc *goquery.Document, pageURL string, meta models.FallbackMetadata) models.Candidate {
	return withFallback(liveFields{
		name:        ExtractProjectName(doc),
		location:    ExtractProjectLocation(doc),
		projectType: ExtractProjectType(doc),
		contact:     ExtractContactName(doc),
		mobile:      ExtractMobileNumber(doc),
	}, pageURL, meta)
}

// sudancarStrategy handles car listing pages. Every listing is automotive.
type sudancarStrategy struct{}

func (sudancarStrategy) ID() models.StrategyID { return models.StrategySudancar }

func (sudancarStrategy) Extract(doc *goquery.Document, pageURL string, meta models.FallbackMetadata) models.Candidate {
	contact := doc.Find("div.contact-info").First()
	mobile := telLinkText(contact)
	if mobile == "" {
		mobile = firstText(doc.Selection, `a[href*="tel:"]`)
	}
	return withFallback(liveFields{
		name:        firstText(doc.Selection, "h1.car-title", "h1.title", "h1"),
		location:    firstText(doc.Selection, "span.location", "div.location"),
		projectType: "Automotive",
		contact:     firstText(contact, "h3", "strong"),
		mobile:      mobile,
	}, pageURL, meta)
}

// githubStrategy handles both profile and repository pages. GitHub never
// exposes phone numbers, so mobile always comes from metadata.
type githubStrategy struct{}

func (githubStrategy) ID() models.StrategyID { return models.StrategyGitHub }

func (githubStrategy) Extract(doc *goquery.Document, pageURL string, meta models.FallbackMetadata) models.Candidate {
	live := liveFields{
		name:        firstText(doc.Selection, "h1.d-inline", `strong[itemprop="name"] a`, "h1"),
		projectType: "Software Development",
	}

	if profile := doc.Find("div.js-profile-editable-area").First(); profile.Length() > 0 {
		live.location = firstText(profile, `span[itemprop="homeLocation"]`, `li[itemprop="homeLocation"]`)
		live.contact = firstText(profile, `span[itemprop="name"]`)
	} else {
		live.location = firstText(doc.Selection, `.vcard-details li[itemprop="homeLocation"]`)
		live.contact = firstText(doc.Selection, "a.url.fn", `a[rel="author"]`)
	}
	return withFallback(live, pageURL, meta)
}

// portfolioStrategy handles single-page portfolio sites with a contact section.
type portfolioStrategy struct{}

func (portfolioStrategy) ID() models.StrategyID { return models.StrategyPortfolio }

func (portfolioStrategy) Extract(doc *goquery.Document, pageURL string, meta models.FallbackMetadata) models.Candidate {
	live := liveFields{
		name:        firstText(doc.Selection, "h1", "title"),
		location:    firstText(doc.Selection, "div.location", "span.location"),
		projectType: "Portfolio",
	}
	if contact := doc.Find("section#contact, div.contact").First(); contact.Length() > 0 {
		live.contact = firstText(contact, "h2", "h3")
		live.mobile = telLinkText(contact)
		if live.mobile == "" {
			live.mobile = scanPhone(contact, "p, span, a")
		}
	}
	return withFallback(live, pageURL, meta)
}
