package webcontent

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// mainSelectors are tried in order; the first match is treated as the article.
var mainSelectors = []string{"main", "article", "[role=main]"}

var chromeTags = []string{"nav", "header", "footer", "aside"}

var noiseTags = []string{
	"script", "style", "noscript", "iframe", "object", "embed", "form", "input", "button",
}

var boilerplateClasses = []string{
	"nav", "navbar", "navigation", "sidebar", "menu", "toc",
	"table-of-contents", "footer", "header", "ad", "advertisement",
	"social", "share", "comments", "related", "breadcrumb",
}

// Options selects how Normalize treats a body.
type Options struct {
	// ConvertToMarkdown converts HTML bodies with HTMLToMarkdown.
	ConvertToMarkdown bool

	// MainContentOnly converts HTML bodies with Readable instead.
	MainContentOnly bool
}

// Normalizer converts fetched bodies to text. It is safe for concurrent use.
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Normalizer{converter: converter}
}

// Normalize converts body according to opts. Non-HTML bodies, and HTML bodies
// with no conversion requested, are only passed through CleanContent.
func (n *Normalizer) Normalize(body string, isHTML bool, opts Options) (string, error) {
	switch {
	case isHTML && opts.MainContentOnly:
		return n.Readable(body)
	case isHTML && opts.ConvertToMarkdown:
		return HTMLToMarkdown(body), nil
	default:
		return CleanContent(body), nil
	}
}

// Readable extracts the main content region of a page and converts it to
// GitHub-flavored Markdown.
func (n *Normalizer) Readable(htmlContent string) (string, error) {
	markdown, err := n.converter.ConvertString(extractMainContent(htmlContent))
	if err != nil {
		return "", err
	}
	return tidyMarkdown(markdown), nil
}

// extractMainContent returns the HTML of the main content area, or the body
// with navigation and other page chrome removed.
func extractMainContent(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return dropAll(styleRe)(dropAll(scriptRe)(content))
	}

	for _, selector := range mainSelectors {
		if node := findElement(doc, selector); node != nil {
			removeElements(node, noiseTags)
			return renderNode(node)
		}
	}

	removeElements(doc, chromeTags)
	removeElements(doc, noiseTags)
	removeByClass(doc, boilerplateClasses)

	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}
	return content
}

// findElement finds the first element matching a tag name or [attr=value].
func findElement(n *html.Node, selector string) *html.Node {
	if n.Type == html.ElementNode && matchesSelector(n, selector) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, selector); found != nil {
			return found
		}
	}
	return nil
}

func matchesSelector(n *html.Node, selector string) bool {
	if strings.HasPrefix(selector, "[") && strings.HasSuffix(selector, "]") {
		key, val, ok := strings.Cut(selector[1:len(selector)-1], "=")
		if !ok {
			return false
		}
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				return true
			}
		}
		return false
	}
	return n.Data == selector
}

func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tagSet[tag] = true
	}
	removeMatching(n, func(node *html.Node) bool { return tagSet[node.Data] })
}

func removeByClass(n *html.Node, classes []string) {
	classSet := make(map[string]bool, len(classes))
	for _, class := range classes {
		classSet[class] = true
	}
	removeMatching(n, func(node *html.Node) bool {
		for _, a := range node.Attr {
			if a.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(strings.ToLower(a.Val)) {
				if classSet[c] {
					return true
				}
			}
		}
		return false
	})
}

// removeMatching detaches every element for which match is true. Children of
// a removed element are not visited.
func removeMatching(n *html.Node, match func(*html.Node) bool) {
	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && match(node) {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

func tidyMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
