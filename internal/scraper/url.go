package scraper

import (
	"fmt"
	"strconv"
	"strings"
)

// PageTemplate selects how page numbers are substituted into the base
// listing URL. The choice is configuration, not a runtime decision.
type PageTemplate string

const (
	// TemplateQuery appends or extends a ?page=N query parameter.
	TemplateQuery PageTemplate = "query"
	// TemplatePath replaces a literal {page} placeholder in the URL.
	TemplatePath PageTemplate = "path"
)

// ParsePageTemplate validates a configured template kind.
func ParsePageTemplate(s string) (PageTemplate, error) {
	switch PageTemplate(strings.ToLower(strings.TrimSpace(s))) {
	case TemplateQuery, "":
		return TemplateQuery, nil
	case TemplatePath:
		return TemplatePath, nil
	default:
		return "", fmt.Errorf("unknown page template %q", s)
	}
}

// PageURL builds the listing URL for the given page number. For the
// query template, page 1 is the bare base URL so the first request
// matches what a browser would load.
func PageURL(base string, kind PageTemplate, page int) string {
	base = strings.TrimRight(base, "/")
	switch kind {
	case TemplatePath:
		return strings.ReplaceAll(base, "{page}", strconv.Itoa(page))
	default:
		if page == 1 {
			return base
		}
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%spage=%d", base, sep, page)
	}
}
