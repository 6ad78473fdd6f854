package listing

import (
	"regexp"
	"strings"
)

// DocumentType labels what a tribunal PDF contains.
type DocumentType string

const (
	// DocTypeReasons is a statement of reasons for a decision.
	DocTypeReasons DocumentType = "reasons"
	// DocTypeDecision is the decision or determination itself.
	DocTypeDecision DocumentType = "decision"
	// DocTypeUnknown is anything the heuristics cannot place.
	DocTypeUnknown DocumentType = "unknown"
)

// Classification methods recorded next to the assigned type.
const (
	ClassifiedByText     = "text"
	ClassifiedByFilename = "filename"
	ClassifiedByDefault  = "default"
)

var reasonsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`statement of reasons`),
	regexp.MustCompile(`\breasons\b`),
	regexp.MustCompile(`decision and reasons`),
	regexp.MustCompile(`reasons for decision`),
	regexp.MustCompile(`full reasons`),
}

var decisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bdecision\b`),
	regexp.MustCompile(`tribunal decision`),
	regexp.MustCompile(`determination`),
	regexp.MustCompile(`judgment`),
	regexp.MustCompile(`judgement`),
}

// Classify assigns a document type from the link text, surrounding
// text, and href, preferring textual signals over filename keywords.
// Reasons patterns win over decision patterns because "decision and
// reasons" documents carry the full reasoning.
func Classify(linkText, contextText, href string) (DocumentType, string) {
	text := strings.ToLower(linkText + " " + contextText + " " + href)

	for _, p := range reasonsPatterns {
		if p.MatchString(text) {
			return DocTypeReasons, ClassifiedByText
		}
	}
	for _, p := range decisionPatterns {
		if p.MatchString(text) {
			return DocTypeDecision, ClassifiedByText
		}
	}

	parts := strings.Split(href, "/")
	fname := strings.ToLower(parts[len(parts)-1])
	for _, kw := range []string{"reasons", "reason"} {
		if strings.Contains(fname, kw) {
			return DocTypeReasons, ClassifiedByFilename
		}
	}
	for _, kw := range []string{"decision", "determination", "judgment", "judgement"} {
		if strings.Contains(fname, kw) {
			return DocTypeDecision, ClassifiedByFilename
		}
	}

	return DocTypeUnknown, ClassifiedByDefault
}
