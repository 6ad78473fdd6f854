// Package listing extracts structured records from tribunal listing
// and case pages. Extraction is heuristic and best effort: markup
// variations are absorbed by configurable selectors and patterns, and
// a field that cannot be extracted is left nil rather than failing the
// record. Only a missing PDF URL drops a candidate.
package listing

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/housingdocs/tribunal-scraper/internal/scraper"
)

var defaultCaseIDPattern = regexp.MustCompile(`([A-Z]{1,4}\s*\d{2,4}[/\-]\d{2,4})`)

// Rules configures the extraction heuristics. Zero values fall back to
// defaults that match the GOV.UK tribunal finder markup.
type Rules struct {
	// ItemSelector locates one listing entry.
	ItemSelector string
	// NextPageSelector locates the next-page affordance.
	NextPageSelector string
	// CaseIDPatterns are tried in order against the entry text; the
	// first match wins.
	CaseIDPatterns []*regexp.Regexp
	// DateLayouts are the accepted decision-date formats. Dates that
	// match none of them are stored as nil, never guessed.
	DateLayouts []string
	// MetadataSelector locates definition lists holding extra fields.
	MetadataSelector string
}

func (r Rules) withDefaults() Rules {
	if r.ItemSelector == "" {
		r.ItemSelector = "article, li.gem-c-document-list__item"
	}
	if r.NextPageSelector == "" {
		r.NextPageSelector = "a[rel=next], .govuk-pagination__next a, a.next"
	}
	if len(r.CaseIDPatterns) == 0 {
		r.CaseIDPatterns = []*regexp.Regexp{defaultCaseIDPattern}
	}
	if len(r.DateLayouts) == 0 {
		r.DateLayouts = DefaultDateLayouts
	}
	if r.MetadataSelector == "" {
		r.MetadataSelector = "dl"
	}
	return r
}

// Parser turns listing HTML into scraper.PageResult values.
type Parser struct {
	rules    Rules
	tribunal string
	logger   *zap.Logger
}

// NewParser builds a Parser for the named tribunal.
func NewParser(tribunal string, rules Rules, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		rules:    rules.withDefaults(),
		tribunal: tribunal,
		logger:   logger,
	}
}

// Tribunal returns the tribunal name records are attributed to.
func (p *Parser) Tribunal() string {
	return p.tribunal
}

// ParseListing extracts listing records from one page of HTML. A
// malformed or empty page yields an empty result with HasMore false;
// parsing never hard-fails.
func (p *Parser) ParseListing(html []byte, baseURL string) scraper.PageResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		p.logger.Warn("unparseable listing page", zap.String("url", baseURL), zap.Error(err))
		return scraper.PageResult{}
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		p.logger.Warn("bad listing base url", zap.String("url", baseURL), zap.Error(err))
		return scraper.PageResult{}
	}

	var records []scraper.ListingRecord
	doc.Find(p.rules.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		rec, ok := p.extractRecord(item, base, baseURL)
		if !ok {
			return
		}
		records = append(records, rec)
	})

	hasMore := doc.Find(p.rules.NextPageSelector).Length() > 0
	if !hasMore {
		// Template-driven pagination exposes no next link; a non-empty
		// page is the only signal that another one may exist.
		hasMore = len(records) > 0
	}
	if len(records) == 0 {
		hasMore = false
	}
	return scraper.PageResult{Records: records, HasMore: hasMore}
}

func (p *Parser) extractRecord(item *goquery.Selection, base *url.URL, listingURL string) (scraper.ListingRecord, bool) {
	link, linkText := firstPDFLink(item, base)
	if link == "" {
		return scraper.ListingRecord{}, false
	}

	rec := scraper.ListingRecord{
		Title:      linkText,
		PDFURL:     link,
		ListingURL: listingURL,
		Tribunal:   p.tribunal,
	}
	if rec.Title == "" {
		rec.Title = "Tribunal decision"
	}

	text := normalizeSpace(item.Text())
	for _, pattern := range p.rules.CaseIDPatterns {
		if m := pattern.FindString(text); m != "" {
			id := strings.ReplaceAll(m, " ", "")
			rec.CaseID = &id
			break
		}
	}

	rec.DecisionDate = p.extractDate(item)
	rec.Metadata = extractKeyValues(item.Find(p.rules.MetadataSelector))
	return rec, true
}

func (p *Parser) extractDate(item *goquery.Selection) *time.Time {
	timeTag := item.Find("time").First()
	if attr, ok := timeTag.Attr("datetime"); ok && attr != "" {
		if t := ParseDate(attr, p.rules.DateLayouts); t != nil {
			return t
		}
	}
	if raw := normalizeSpace(timeTag.Text()); raw != "" {
		if t := ParseDate(raw, p.rules.DateLayouts); t != nil {
			return t
		}
	}
	if m := dateLikeText.FindString(normalizeSpace(item.Text())); m != "" {
		return ParseDate(m, p.rules.DateLayouts)
	}
	return nil
}

var dateLikeText = regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]+\s+\d{4}\b`)

// firstPDFLink returns the absolute URL and text of the first anchor
// in item whose target is a PDF resource.
func firstPDFLink(item *goquery.Selection, base *url.URL) (string, string) {
	var href, text string
	item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		raw, _ := a.Attr("href")
		resolved := resolveURL(base, raw)
		if resolved == "" || !isPDFURL(resolved) {
			return true
		}
		href = resolved
		text = normalizeSpace(a.Text())
		return false
	})
	return href, text
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if !abs.IsAbs() {
		return ""
	}
	return abs.String()
}

func isPDFURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

func extractKeyValues(lists *goquery.Selection) map[string]string {
	if lists.Length() == 0 {
		return nil
	}
	meta := make(map[string]string)
	lists.Each(func(_ int, dl *goquery.Selection) {
		terms := dl.Find("dt")
		values := dl.Find("dd")
		n := terms.Length()
		if values.Length() < n {
			n = values.Length()
		}
		for i := 0; i < n; i++ {
			key := strings.ReplaceAll(strings.ToLower(normalizeSpace(terms.Eq(i).Text())), " ", "_")
			value := normalizeSpace(values.Eq(i).Text())
			if key != "" {
				meta[key] = value
			}
		}
	})
	if len(meta) == 0 {
		return nil
	}
	return meta
}

var spaceRun = regexp.MustCompile(`\s+`)

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
