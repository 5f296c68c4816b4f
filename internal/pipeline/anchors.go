package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// Markdown anchor sections let downstream tools rewrite parts of the
// handoff document in place without reflowing the rest.

func anchorPair(name string) (start, end string) {
	name = strings.ToUpper(strings.TrimSpace(name))
	return fmt.Sprintf("<!-- %s_START -->", name), fmt.Sprintf("<!-- %s_END -->", name)
}

// ExtractAnchor returns the content between a section's anchors, or false
// when the section is missing.
func ExtractAnchor(content, name string) (string, bool) {
	start, end := anchorPair(name)
	pattern := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(start) + `(.*?)` + regexp.QuoteMeta(end))
	m := pattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ReplaceAnchor rewrites a section's content, appending the section when
// its anchors are missing.
func ReplaceAnchor(content, name, newContent string) string {
	start, end := anchorPair(name)
	section := start + "\n" + newContent + "\n" + end

	pattern := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(start) + `.*?` + regexp.QuoteMeta(end))
	if pattern.MatchString(content) {
		return pattern.ReplaceAllString(content, section)
	}

	sep := "\n\n"
	if strings.HasSuffix(content, "\n") {
		sep = "\n"
	}
	return content + sep + section + "\n"
}

// EnsureAnchors appends empty anchor blocks for any missing sections.
func EnsureAnchors(content string, names []string) string {
	for _, name := range names {
		start, end := anchorPair(name)
		if strings.Contains(content, start) && strings.Contains(content, end) {
			continue
		}
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += "\n" + start + "\n" + end + "\n"
	}
	return content
}

// AnchorTokenEstimate reports a rough token count for a section
// (1 token per 4 chars, minimum 1 for a present section).
func AnchorTokenEstimate(content, name string) int {
	section, ok := ExtractAnchor(content, name)
	if !ok {
		return 0
	}
	if est := len(section) / 4; est > 1 {
		return est
	}
	return 1
}
