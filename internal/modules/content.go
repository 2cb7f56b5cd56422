package modules

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minProcessedChars is the shortest cleaned module kept; anything shorter
// falls back to the original text.
const minProcessedChars = 100

var (
	moduleTitle    = regexp.MustCompile(`^# .+Module\s*\n`)
	purposeHeading = regexp.MustCompile(`(?m)^## Purpose[ \t\r]*\n`)
	dependencyTail = regexp.MustCompile(`(?m)^## Module Dependencies`)
	consumerTail   = regexp.MustCompile(`(?m)^## Module Consumers`)
	coreSection    = regexp.MustCompile(`(?s)<!-- CORE-START -->(.*?)<!-- CORE-END -->`)
)

const nextSectionMark = "\n##"

// ProcessContent strips module bookkeeping before a module is embedded: a
// leading "# <X> Module" title, the "## Purpose" section, and everything
// from "## Module Dependencies" or "## Module Consumers" onwards. When
// fewer than 100 characters remain the original content is returned.
func ProcessContent(content string) string {
	processed := moduleTitle.ReplaceAllString(content, "")
	processed = removePurpose(processed)
	processed = cutFrom(processed, dependencyTail)
	processed = cutFrom(processed, consumerTail)
	processed = strings.TrimSpace(processed)

	if utf8.RuneCountInString(processed) < minProcessedChars {
		return content
	}
	return processed
}

// removePurpose drops the first "## Purpose" section up to, not including,
// the next "##" heading. A Purpose heading with no following heading, or one
// directly followed by another heading, stays.
func removePurpose(content string) string {
	loc := purposeHeading.FindStringIndex(content)
	if loc == nil {
		return content
	}
	section := content[loc[1]:]
	if strings.HasPrefix(section, "##") {
		return content
	}
	next := strings.Index(section, nextSectionMark)
	if next < 0 {
		return content
	}
	return content[:loc[0]] + section[next+1:]
}

func cutFrom(content string, heading *regexp.Regexp) string {
	loc := heading.FindStringIndex(content)
	if loc == nil {
		return content
	}
	return content[:loc[0]]
}

// ExtractCoreSections joins the trimmed bodies found between
// "<!-- CORE-START -->" and "<!-- CORE-END -->" markers with blank lines.
// It reports false when the content has no core sections.
func ExtractCoreSections(content string) (string, bool) {
	matches := coreSection.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, strings.TrimSpace(m[1]))
	}
	return strings.Join(parts, "\n\n"), true
}
