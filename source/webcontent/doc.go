// Package webcontent turns fetched web documents into text for downstream
// generation requests.
//
// HTMLToMarkdown is an ordered sequence of regular-expression rewrites and is
// a best-effort text extractor, not a browser-grade renderer. Readable parses
// the document, keeps the main content region and converts it with
// html-to-markdown; it is slower but handles nested markup. CleanContent
// normalizes entities and whitespace and is applied to every non-converted
// body.
//
// ExtractHTMLMetadata pulls title, description, language, canonical URL,
// Open Graph image and favicon from a document using goquery, falling back to
// the Open Graph parser for fields the document head does not carry.
package webcontent
