package extract

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// extractPDF pulls visible text out of a PDF's content streams. PDFs
// interleave text-showing operators (Tj/TJ) inside stream objects that are
// frequently Flate-compressed; this walks every "stream ... endstream"
// block, inflates it when it looks zlib-compressed, and pulls the literal
// string operands out of Tj/TJ operators. It does not attempt font/glyph
// mapping, layout reconstruction, or encrypted documents — good enough for
// indexing plain prose PDFs, not a general-purpose PDF reader.
var (
	streamPattern = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	tjPattern     = regexp.MustCompile(`(?s)\((?:[^()\\]|\\.)*\)\s*Tj|\[(?:[^\[\]]|\\.)*\]\s*TJ`)
	literalPart   = regexp.MustCompile(`(?s)\((?:[^()\\]|\\.)*\)`)
)

func extractPDF(raw []byte) (string, error) {
	var out strings.Builder

	for _, m := range streamPattern.FindAllSubmatch(raw, -1) {
		content := m[1]
		if inflated, err := inflateIfCompressed(content); err == nil {
			content = inflated
		}
		for _, op := range tjPattern.FindAll(content, -1) {
			for _, lit := range literalPart.FindAll(op, -1) {
				out.WriteString(unescapePDFLiteral(lit))
				out.WriteByte(' ')
			}
		}
		out.WriteByte('\n')
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf content streams")
	}
	return text, nil
}

func inflateIfCompressed(content []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(content))
	if err != nil {
		return content, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func unescapePDFLiteral(lit []byte) string {
	s := string(lit)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return replacer.Replace(s)
}
