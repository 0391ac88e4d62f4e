package pdfscan

import (
	"sort"
	"strings"
)

// Header classification thresholds.
const (
	headerFontSizeThreshold = 10.0
	headerMaxLength         = 60
	headerMinLength         = 3
)

// sectionKeywords mark a run as a probable section header even when its
// font gives nothing away.
var sectionKeywords = []string{
	"section", "part", "details", "information", "declaration",
	"agreement", "authorization", "certification", "beneficiary",
	"instructions", "application", "applicant", "profile",
}

// SectionHeader is one detected heading with its vertical position.
type SectionHeader struct {
	Y    float64
	Text string
}

// DefaultSection is assigned to fields with no header above them.
const DefaultSection = "General"

// FindSectionHeaders scans a page's text runs for likely section headers.
// A run qualifies if it is large and all-caps/title-case, contains a
// section keyword and is short, or uses a bold font and is short. The
// result is sorted top to bottom (descending y, stable).
func FindSectionHeaders(runs []TextRun) []SectionHeader {
	var headers []SectionHeader
	for _, run := range runs {
		clean := strings.TrimSpace(run.Text)
		if len(clean) < headerMinLength {
			continue
		}
		if !isHeader(run, clean) {
			continue
		}
		clean = strings.TrimSpace(strings.ReplaceAll(clean, ":", ""))
		headers = append(headers, SectionHeader{Y: run.Y, Text: clean})
	}

	sort.SliceStable(headers, func(i, j int) bool {
		return headers[i].Y > headers[j].Y
	})
	return headers
}

func isHeader(run TextRun, clean string) bool {
	// Large font plus header casing.
	if run.FontSize > headerFontSizeThreshold {
		if isAllUpper(clean) || isTitleCase(clean) {
			return true
		}
	}

	// Keyword match, short enough to be a heading rather than a sentence.
	lower := strings.ToLower(clean)
	if len(clean) < headerMaxLength {
		for _, kw := range sectionKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}

	// Bold font weight.
	if strings.Contains(run.Font, "Bold") && len(clean) < headerMaxLength {
		return true
	}
	return false
}

// SectionForField returns the nearest header above the given y position,
// scanning top to bottom and stopping at the first header below it.
func SectionForField(headers []SectionHeader, fieldTop float64) string {
	section := DefaultSection
	for _, h := range headers {
		if h.Y > fieldTop {
			section = h.Text
		} else {
			break
		}
	}
	return section
}

// isAllUpper reports whether every letter in s is uppercase and s has at
// least one letter.
func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// isTitleCase reports whether every word in s starts with an uppercase
// letter.
func isTitleCase(s string) bool {
	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		first := rune(w[0])
		if first >= 'a' && first <= 'z' {
			return false
		}
	}
	return true
}
