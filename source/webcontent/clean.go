package webcontent

import (
	"regexp"
	"strings"
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"&mdash;", "—",
	"&ndash;", "–",
	"&hellip;", "…",
)

var (
	spaceRunRe = regexp.MustCompile(` {2,}`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// CleanContent decodes common HTML entities and normalizes whitespace:
// line endings become LF, tabs become two spaces, space runs collapse,
// lines are trimmed and no more than one blank line is kept in a row.
func CleanContent(text string) string {
	text = entityReplacer.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", "  ")
	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " ")
	}
	text = strings.Join(lines, "\n")

	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// collapseWhitespace joins all whitespace-separated fields with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
