package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// OOXML documents (docx/xlsx/pptx) are zip archives of XML parts. Each
// format stores text runs in a different part with a different tag name,
// so each extractor picks its own part set but shares the same
// "concatenate every <w:t>/<a:t>-equivalent text node" approach.

// ooxmlTextNode matches any XML element whose local name ends in ":t" (or
// is exactly "t"), which covers w:t (docx), a:t (pptx), and the inline
// string cells xlsx uses in sharedStrings.xml.
type ooxmlTextNode struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
}

func extractOOXMLDocument(raw []byte, partName string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx as zip: %w", err)
	}
	text, err := extractPartText(zr, partName)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text found in %s", partName)
	}
	return text, nil
}

func extractOOXMLSlides(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pptx as zip: %w", err)
	}

	var slideNames []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideNames = append(slideNames, f.Name)
		}
	}
	sort.Strings(slideNames)

	var out strings.Builder
	for _, name := range slideNames {
		text, err := extractPartText(zr, name)
		if err != nil {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n\n")
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("no text found in pptx slides")
	}
	return text, nil
}

func extractOOXMLSheets(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open xlsx as zip: %w", err)
	}

	text, err := extractPartText(zr, "xl/sharedStrings.xml")
	if err != nil || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no shared strings found in xlsx")
	}
	return text, nil
}

func extractPartText(zr *zip.Reader, partName string) (string, error) {
	var target *zip.File
	for _, f := range zr.File {
		if f.Name == partName {
			target = f
			break
		}
	}
	if target == nil {
		return "", fmt.Errorf("part %s not found in archive", partName)
	}

	rc, err := target.Open()
	if err != nil {
		return "", fmt.Errorf("open part %s: %w", partName, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if start, ok := tok.(xml.StartElement); ok && isTextElement(start.Name.Local) {
			var node ooxmlTextNode
			if err := dec.DecodeElement(&node, &start); err == nil {
				out.WriteString(node.Content)
				out.WriteByte(' ')
			}
		}
	}
	return out.String(), nil
}

func isTextElement(local string) bool {
	return local == "t"
}
