package listing

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// CasePage holds what the re-scrape path pulls from one case's HTML
// page: headline metadata plus every linked PDF.
type CasePage struct {
	Title        string
	Category     string
	Subcategory  string
	Published    string
	DecisionDate string
	PDFs         []PDFLink
}

// PDFLink is one PDF anchor found on a case page, pre-classified from
// its link and context text.
type PDFLink struct {
	URL         string
	LinkText    string
	ContextText string
	Type        DocumentType
	Method      string
}

// ParseCasePage extracts metadata and PDF links from a case page.
// Like listing parsing it is best effort: a malformed page yields an
// empty CasePage, never an error.
func (p *Parser) ParseCasePage(html []byte, pageURL string) CasePage {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		p.logger.Warn("unparseable case page", zap.String("url", pageURL), zap.Error(err))
		return CasePage{}
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		p.logger.Warn("bad case page url", zap.String("url", pageURL), zap.Error(err))
		return CasePage{}
	}

	page := CasePage{
		Title:        normalizeSpace(doc.Find("h1, h2").First().Text()),
		Category:     metaContent(doc, "govuk:section"),
		Subcategory:  metaContent(doc, "govuk:taxonomy"),
		Published:    findDateLike(doc, []string{"published", "date published"}),
		DecisionDate: findDateLike(doc, []string{"decision date", "date decision", "decided", "decision"}),
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		raw, _ := a.Attr("href")
		resolved := resolveURL(base, raw)
		if resolved == "" || !isPDFURL(resolved) {
			return
		}
		linkText := normalizeSpace(a.Text())
		contextText := linkText
		if parent := a.Parent(); parent.Length() > 0 {
			contextText = normalizeSpace(parent.Text())
		}
		docType, method := Classify(linkText, contextText, raw)
		page.PDFs = append(page.PDFs, PDFLink{
			URL:         resolved,
			LinkText:    linkText,
			ContextText: contextText,
			Type:        docType,
			Method:      method,
		})
	})
	return page
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return content
}

// findDateLike mirrors the label-driven date hunt used on GOV.UK case
// pages: a <time> tag wins, otherwise a labelled dt/strong/b/span node
// followed by its value node.
func findDateLike(doc *goquery.Document, labels []string) string {
	timeTag := doc.Find("time").First()
	if attr, ok := timeTag.Attr("datetime"); ok && attr != "" {
		return attr
	}
	if raw := normalizeSpace(timeTag.Text()); raw != "" {
		return raw
	}

	var found string
	doc.Find("dt, strong, b, span").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		lowered := strings.ToLower(normalizeSpace(node.Text()))
		for _, label := range labels {
			if strings.Contains(lowered, label) {
				value := node.NextFiltered("dd, span, time, p").First()
				if value.Length() == 0 {
					value = node.Next()
				}
				if v := normalizeSpace(value.Text()); v != "" {
					found = v
					return false
				}
			}
		}
		return true
	})
	return found
}
