// Package extract converts raw file bytes into UTF-8 body text for the
// filesystem connector's binary-file contract: HTML is readability-
// extracted and normalized to markdown following the pattern in
// intelligencedev-manifold's web fetcher; PDF and OOXML documents use a
// minimal stdlib-only text scanner since no PDF/OOXML parsing library
// fits this module's dependency set.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	readability "github.com/go-shiori/go-readability"
)

// Kind is a recognized binary content kind eligible for extraction.
type Kind string

const (
	KindHTML  Kind = "html"
	KindPDF   Kind = "pdf"
	KindDOCX  Kind = "docx"
	KindXLSX  Kind = "xlsx"
	KindPPTX  Kind = "pptx"
	KindPlain Kind = "plain"
)

// KindForExtension maps a lowercase file extension (without the dot) to a
// Kind, or "" if unrecognized.
func KindForExtension(ext string) Kind {
	switch strings.ToLower(ext) {
	case "html", "htm":
		return KindHTML
	case "pdf":
		return KindPDF
	case "docx":
		return KindDOCX
	case "xlsx":
		return KindXLSX
	case "pptx":
		return KindPPTX
	default:
		return ""
	}
}

// Text extracts UTF-8 body text from raw bytes of the given kind.
func Text(kind Kind, raw []byte, sourceURL string) (string, error) {
	switch kind {
	case KindHTML:
		return extractHTML(raw, sourceURL)
	case KindPDF:
		return extractPDF(raw)
	case KindDOCX:
		return extractOOXMLDocument(raw, "word/document.xml")
	case KindPPTX:
		return extractOOXMLSlides(raw)
	case KindXLSX:
		return extractOOXMLSheets(raw)
	default:
		return string(raw), nil
	}
}

func extractHTML(raw []byte, sourceURL string) (string, error) {
	html := string(raw)

	var articleHTML, title string
	base, _ := url.Parse(sourceURL)
	if base == nil {
		base = &url.URL{}
	}
	if art, err := readability.FromReader(strings.NewReader(html), base); err == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	} else {
		articleHTML = html
	}

	md, err := htmltomarkdown.ConvertString(articleHTML, converter.WithDomain(base.String()))
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}
