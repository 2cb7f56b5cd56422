package compression

import (
	"strings"
	"unicode/utf8"
)

// compactYAML shrinks a configuration block for deployment output: comment
// lines and blank lines are dropped, the block is capped at maxLines and
// indentation wider than two spaces per level is collapsed to two.
func compactYAML(content string, maxLines int) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t\r"))
		if len(lines) == maxLines {
			break
		}
	}

	unit := indentUnit(lines)
	if unit <= 2 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		indent := leadingSpaces(line)
		lines[i] = strings.Repeat(" ", indent/unit*2+indent%unit) + line[indent:]
	}
	return strings.Join(lines, "\n")
}

// indentUnit returns the smallest non-zero indentation among lines.
func indentUnit(lines []string) int {
	unit := 0
	for _, line := range lines {
		if n := leadingSpaces(line); n > 0 && (unit == 0 || n < unit) {
			unit = n
		}
	}
	return unit
}

func leadingSpaces(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// criticalKeywords are kept by smartTruncate when they occur anywhere in the
// original text, in this order.
func criticalKeywords() []string {
	return []string{
		"MANDATORY", "REQUIRED", "ENFORCEMENT", "FIREWALL", "GUARD", "BLOCK",
		"TARGET", "PROTOCOL", "SYSTEM", "AUTO", "80%", "85%", "90%", "95%",
	}
}

const (
	truncateMaxBullets = 3
	ellipsis           = "..."
)

// smartTruncate bounds text to limit characters. Text within the limit is
// returned unchanged. Longer text is reduced to its first sentence, up to
// three bullet lines and the critical keywords it mentions.
func smartTruncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	lines := strings.Split(text, "\n")
	parts := []string{firstSentence(lines[0])}

	bullets := 0
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "• ") {
			parts = append(parts, trimmed)
			if bullets++; bullets == truncateMaxBullets {
				break
			}
		}
	}

	upper := strings.ToUpper(text)
	var found []string
	for _, kw := range criticalKeywords() {
		if strings.Contains(upper, kw) {
			found = append(found, kw)
		}
	}
	if len(found) > 0 {
		parts = append(parts, "Keywords: "+strings.Join(found, ", "))
	}

	out := strings.Join(parts, "\n")
	if utf8.RuneCountInString(out) <= limit {
		return out
	}
	runes := []rune(out)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}

// firstSentence returns line up to and including its first sentence end.
func firstSentence(line string) string {
	line = strings.TrimSpace(line)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '.', '!', '?':
			if i+1 == len(line) || line[i+1] == ' ' {
				return line[:i+1]
			}
		}
	}
	return line
}
