// scraper/extractors.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/projectscraper/utils"
)

// Selector tables for the generic field extractors. Order is policy and
// every structural hint comes before the free-text phone scan.
var (
	projectNameSelectors = []string{
		"h1", "h1.title", ".project-title", "h2.title", "title", ".product-title", ".entry-title",
	}
	projectLocationSelectors = []string{
		".location", "span.location", ".project-location", `div[itemprop="location"]`, ".address", ".location-info",
	}
	projectTypeSelectors = []string{
		".type", "span.type", ".project-type", ".category", ".project-category", ".tags",
	}
	contactNameSelectors = []string{
		".contact-name", "span.contact-name", ".contact h3", ".contact-info .name", ".author-name", ".owner",
	}
	mobileNumberSelectors = []string{
		".mobile-number", "span.mobile-number", ".phone", ".contact-info .phone", ".tel",
	}
)

// phonePattern matches an optional +CC (1-3 digits) followed by a 10-digit
// core in 3-3-4 groups with optional '-', '.' or space separators.
var phonePattern = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?(\d{3}[-.\s]?\d{3}[-.\s]?\d{4})`)

// firstText returns the cleaned text of the first element, across the
// selectors in order, whose text is non-empty.
func firstText(root *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		var found string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = utils.CleanText(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// telLinkText reads an <a href="tel:..."> link, preferring its visible text
// and falling back to the number in the href.
func telLinkText(root *goquery.Selection) string {
	var found string
	root.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := utils.CleanText(s.Text()); text != "" {
			found = text
			return false
		}
		if href, ok := s.Attr("href"); ok {
			found = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		}
		return found == ""
	})
	return found
}

// scanPhone runs phonePattern over the text of each matching element and
// returns the first hit.
func scanPhone(root *goquery.Selection, elements string) string {
	var found string
	root.Find(elements).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := phonePattern.FindString(s.Text()); m != "" {
			found = strings.TrimSpace(m)
			return false
		}
		return true
	})
	return found
}

// ExtractProjectName locates the project's display name.
func ExtractProjectName(doc *goquery.Document) string {
	return firstText(doc.Selection, projectNameSelectors...)
}

// ExtractProjectLocation locates a location or address block.
func ExtractProjectLocation(doc *goquery.Document) string {
	return firstText(doc.Selection, projectLocationSelectors...)
}

// ExtractProjectType locates a type/category label, then falls back to the
// first entry of the keywords meta tag.
func ExtractProjectType(doc *goquery.Document) string {
	if t := firstText(doc.Selection, projectTypeSelectors...); t != "" {
		return t
	}
	if content, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		first, _, _ := strings.Cut(content, ",")
		return utils.CleanText(first)
	}
	return ""
}

// ExtractContactName locates the contact person's name.
func ExtractContactName(doc *goquery.Document) string {
	return firstText(doc.Selection, contactNameSelectors...)
}

// ExtractMobileNumber tries explicitly marked phone elements, then tel:
// links, then a pattern scan over paragraph and span text.
func ExtractMobileNumber(doc *goquery.Document) string {
	if n := firstText(doc.Selection, mobileNumberSelectors...); n != "" {
		return n
	}
	if n := telLinkText(doc.Selection); n != "" {
		return n
	}
	return scanPhone(doc.Selection, "p, span")
}
