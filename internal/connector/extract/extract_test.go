package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindHTML, KindForExtension("html"))
	assert.Equal(t, KindHTML, KindForExtension("HTM"))
	assert.Equal(t, KindPDF, KindForExtension("pdf"))
	assert.Equal(t, KindDOCX, KindForExtension("docx"))
	assert.Equal(t, Kind(""), KindForExtension("go"))
}

func TestExtractHTML_PrefersReadableArticle(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Ignored</title></head><body>
		<nav>menu menu menu</nav>
		<article><h1>Real Title</h1><p>This is the real article body with enough content to be detected as the main article by the readability heuristics that look for substantial paragraph text blocks.</p></article>
	</body></html>`

	text, err := Text(KindHTML, []byte(html), "https://example.com/post")
	require.NoError(t, err)
	assert.Contains(t, text, "real article body")
}

func TestExtractOOXMLDocument_PullsTextRuns(t *testing.T) {
	t.Parallel()

	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://example.com/w">
  <w:body>
    <w:p><w:r><w:t>Hello from docx.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	raw := buildZip(t, map[string]string{"word/document.xml": docXML})
	text, err := Text(KindDOCX, raw, "")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello from docx.")
}

func TestExtractOOXMLSlides_ConcatenatesSlidesInOrder(t *testing.T) {
	t.Parallel()

	slide1 := `<p:sld xmlns:a="x"><a:t>First slide</a:t></p:sld>`
	slide2 := `<p:sld xmlns:a="x"><a:t>Second slide</a:t></p:sld>`

	raw := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": slide1,
		"ppt/slides/slide2.xml": slide2,
	})
	text, err := Text(KindPPTX, raw, "")
	require.NoError(t, err)
	assert.Contains(t, text, "First slide")
	assert.Contains(t, text, "Second slide")
	assert.Less(t, indexOf(text, "First slide"), indexOf(text, "Second slide"))
}

func TestExtractPDF_NoContentStreamsErrors(t *testing.T) {
	t.Parallel()

	_, err := Text(KindPDF, []byte("%PDF-1.4\n%%EOF"), "")
	require.Error(t, err)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
