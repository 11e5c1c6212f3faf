package webcontent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHTMLMetadata(t *testing.T) {
	page := `<html lang="en"><head>
		<title>  Hi
		  there </title>
		<meta name="Description" content="A   page">
		<meta name="description" content="second description">
		<link rel="canonical" href="https://example.com/c">
		<meta property="og:image" content="https://example.com/i.png">
		<link rel="shortcut icon" href="/favicon.ico">
		<link rel="icon" href="/other.png">
		<meta property="og:site_name" content="Example">
	</head><body><p>hello</p></body></html>`

	meta := ExtractHTMLMetadata(page)

	assert.Equal(t, "Hi there", meta.Title)
	assert.Equal(t, "A page", meta.Description)
	assert.Equal(t, "en", meta.Language)
	assert.Equal(t, "https://example.com/c", meta.CanonicalURL)
	assert.Equal(t, "https://example.com/i.png", meta.OGImage)
	assert.Equal(t, "/favicon.ico", meta.Favicon)
	assert.Equal(t, "Example", meta.SiteName)
}

func TestExtractHTMLMetadata_SimpleTitle(t *testing.T) {
	meta := ExtractHTMLMetadata("<html><head><title>Hi</title></head><body>x</body></html>")
	assert.Equal(t, "Hi", meta.Title)
	assert.Empty(t, meta.Description)
}

func TestExtractHTMLMetadata_EntityDecoding(t *testing.T) {
	meta := ExtractHTMLMetadata("<html><head><title>Tom &amp; Jerry</title></head></html>")
	assert.Equal(t, "Tom & Jerry", meta.Title)
}

func TestExtractHTMLMetadata_ContentLanguageFallback(t *testing.T) {
	meta := ExtractHTMLMetadata(`<html><head><meta http-equiv="Content-Language" content="de"></head></html>`)
	assert.Equal(t, "de", meta.Language)
}

func TestExtractHTMLMetadata_OpenGraphFallback(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG description">
	</head><body></body></html>`

	meta := ExtractHTMLMetadata(page)
	assert.Equal(t, "OG Title", meta.Title)
	assert.Equal(t, "OG description", meta.Description)
}

func TestExtractHTMLMetadata_Empty(t *testing.T) {
	assert.Equal(t, HTMLMetadata{}, ExtractHTMLMetadata("plain text, no markup"))
}
