package webcontent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled regexes for the rewrite passes. Go's RE2 engine has no
// backreferences, so each heading level gets its own expression.
var (
	scriptRe     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	commentRe    = regexp.MustCompile(`(?s)<!--.*?-->`)
	headingRes   = compileHeadings()
	paragraphRe  = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p>`)
	breakRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	unorderedRe  = regexp.MustCompile(`(?is)<ul\b[^>]*>(.*?)</ul>`)
	orderedRe    = regexp.MustCompile(`(?is)<ol\b[^>]*>(.*?)</ol>`)
	listItemRe   = regexp.MustCompile(`(?is)<li\b[^>]*>(.*?)</li>`)
	anchorRe     = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a>`)
	strongRe     = regexp.MustCompile(`(?is)<(?:strong|b)\b[^>]*>(.*?)</(?:strong|b)>`)
	emphasisRe   = regexp.MustCompile(`(?is)<(?:em|i)\b[^>]*>(.*?)</(?:em|i)>`)
	codeRe       = regexp.MustCompile(`(?is)<code\b[^>]*>(.*?)</code>`)
	preRe        = regexp.MustCompile(`(?is)<pre\b[^>]*>(.*?)</pre>`)
	blockquoteRe = regexp.MustCompile(`(?is)<blockquote\b[^>]*>(.*?)</blockquote>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]+>`)
)

func compileHeadings() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 6)
	for level := 1; level <= 6; level++ {
		res[level-1] = regexp.MustCompile(fmt.Sprintf(`(?is)<h%d\b[^>]*>(.*?)</h%d>`, level, level))
	}
	return res
}

// markdownPass is one rewrite in the conversion pipeline.
type markdownPass func(string) string

// markdownPasses run in order; later passes see the output of earlier ones.
var markdownPasses = []markdownPass{
	dropAll(scriptRe),
	dropAll(styleRe),
	dropAll(commentRe),
	convertHeadings,
	rewrite(paragraphRe, func(g []string) string {
		return "\n\n" + strings.TrimSpace(g[1]) + "\n\n"
	}),
	func(s string) string { return breakRe.ReplaceAllString(s, "\n") },
	rewrite(unorderedRe, func(g []string) string { return convertList(g[1], false) }),
	rewrite(orderedRe, func(g []string) string { return convertList(g[1], true) }),
	rewrite(anchorRe, func(g []string) string {
		return "[" + strings.TrimSpace(g[2]) + "](" + g[1] + ")"
	}),
	rewrite(strongRe, func(g []string) string { return "**" + g[1] + "**" }),
	rewrite(emphasisRe, func(g []string) string { return "*" + g[1] + "*" }),
	rewrite(codeRe, func(g []string) string { return "`" + g[1] + "`" }),
	rewrite(preRe, convertPre),
	rewrite(blockquoteRe, convertBlockquote),
	dropAll(tagRe),
	CleanContent,
}

// HTMLToMarkdown converts HTML to Markdown with a fixed sequence of rewrites.
// Markup the passes do not recognize is stripped. Converting the output again
// leaves it unchanged, except where the input carried entity-escaped markup:
// entities are decoded last, so "&lt;b&gt;" comes out as a literal "<b>" that
// a second conversion would rewrite.
func HTMLToMarkdown(htmlContent string) string {
	out := htmlContent
	for _, pass := range markdownPasses {
		out = pass(out)
	}
	return out
}

func dropAll(re *regexp.Regexp) markdownPass {
	return func(s string) string { return re.ReplaceAllString(s, "") }
}

// rewrite applies fn to the submatches of every match of re.
func rewrite(re *regexp.Regexp, fn func(groups []string) string) markdownPass {
	return func(s string) string {
		return re.ReplaceAllStringFunc(s, func(match string) string {
			return fn(re.FindStringSubmatch(match))
		})
	}
}

func convertHeadings(s string) string {
	for i, re := range headingRes {
		prefix := strings.Repeat("#", i+1)
		s = rewrite(re, func(g []string) string {
			return "\n\n" + prefix + " " + strings.TrimSpace(g[1]) + "\n\n"
		})(s)
	}
	return s
}

// convertList renders the items of one list. Numbering restarts for every list.
func convertList(body string, ordered bool) string {
	var sb strings.Builder
	sb.WriteString("\n")
	n := 0
	for _, item := range listItemRe.FindAllStringSubmatch(body, -1) {
		n++
		if ordered {
			sb.WriteString(strconv.Itoa(n) + ". ")
		} else {
			sb.WriteString("- ")
		}
		sb.WriteString(strings.TrimSpace(item[1]))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func convertPre(g []string) string {
	inner := strings.TrimSpace(g[1])
	// <pre><code> was already rewritten to inline code
	if len(inner) >= 2 && strings.HasPrefix(inner, "`") && strings.HasSuffix(inner, "`") && !strings.HasPrefix(inner, "``") {
		inner = inner[1 : len(inner)-1]
	}
	return "\n```\n" + inner + "\n```\n"
}

func convertBlockquote(g []string) string {
	var quoted []string
	for _, line := range strings.Split(strings.TrimSpace(g[1]), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		quoted = append(quoted, "> "+line)
	}
	return "\n\n" + strings.Join(quoted, "\n") + "\n\n"
}
