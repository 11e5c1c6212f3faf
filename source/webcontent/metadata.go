package webcontent

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
)

// HTMLMetadata holds document-level metadata found in an HTML page.
// Empty fields were not present.
type HTMLMetadata struct {
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Language     string `json:"language,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	OGImage      string `json:"og_image,omitempty"`
	Favicon      string `json:"favicon,omitempty"`
	SiteName     string `json:"site_name,omitempty"`
}

// ExtractHTMLMetadata returns the first occurrence of each metadata field.
// Values are entity-decoded and whitespace-collapsed.
func ExtractHTMLMetadata(htmlContent string) HTMLMetadata {
	var meta HTMLMetadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err == nil {
		meta.Title = collapseWhitespace(doc.Find("title").First().Text())
		meta.Language = collapseWhitespace(doc.Find("html").First().AttrOr("lang", ""))

		doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
			content := collapseWhitespace(s.AttrOr("content", ""))
			if content == "" {
				return
			}
			switch {
			case attrEquals(s, "name", "description") && meta.Description == "":
				meta.Description = content
			case attrEquals(s, "http-equiv", "content-language") && meta.Language == "":
				meta.Language = content
			case attrEquals(s, "property", "og:image") && meta.OGImage == "":
				meta.OGImage = content
			}
		})

		doc.Find("link").Each(func(_ int, s *goquery.Selection) {
			href := strings.TrimSpace(s.AttrOr("href", ""))
			if href == "" {
				return
			}
			rel := collapseWhitespace(strings.ToLower(s.AttrOr("rel", "")))
			switch {
			case rel == "canonical" && meta.CanonicalURL == "":
				meta.CanonicalURL = href
			case (rel == "icon" || rel == "shortcut icon") && meta.Favicon == "":
				meta.Favicon = href
			}
		})
	}

	fillFromOpenGraph(&meta, htmlContent)
	return meta
}

// fillFromOpenGraph fills fields the document head did not provide.
func fillFromOpenGraph(meta *HTMLMetadata, htmlContent string) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(htmlContent)); err != nil {
		return
	}
	if meta.Title == "" {
		meta.Title = collapseWhitespace(og.Title)
	}
	if meta.Description == "" {
		meta.Description = collapseWhitespace(og.Description)
	}
	if meta.OGImage == "" && len(og.Images) > 0 && og.Images[0] != nil {
		meta.OGImage = og.Images[0].URL
	}
	if meta.SiteName == "" {
		meta.SiteName = collapseWhitespace(og.SiteName)
	}
}

func attrEquals(s *goquery.Selection, name, want string) bool {
	v, ok := s.Attr(name)
	return ok && strings.EqualFold(strings.TrimSpace(v), want)
}
