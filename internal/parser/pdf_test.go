package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writePDF builds an uncompressed PDF with one page per entry, each page
// showing its text in Helvetica. An empty entry gives a page without text.
func writePDF(t *testing.T, path string, pageTexts []string) {
	t.Helper()
	n := len(pageTexts)
	// 1 catalog, 2 pages tree, 3 font, then a page and a content stream per page
	objects := make([]string, 3+2*n)
	kids := ""
	for i := range pageTexts {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objects[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n)
	objects[2] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"
	for i, text := range pageTexts {
		pageNum, contentNum := 4+2*i, 5+2*i
		objects[pageNum-1] = fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNum)
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects[contentNum-1] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadPDFOnePagePerPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	writePDF(t, path, []string{"The sky is blue.", "", "Grass is green."})

	pages, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, p := range pages {
		require.Equal(t, i+1, p.PageNumber)
		require.Equal(t, path, p.SourceFilename)
	}
	require.Contains(t, pages[0].Content, "The sky is blue.")
	require.Empty(t, pages[1].Content)
	require.Contains(t, pages[2].Content, "Grass is green.")
	require.NotContains(t, pages[0].Content, "Grass")
}

func TestLoadPagesAcrossPDFs(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.pdf")
	second := filepath.Join(dir, "b.pdf")
	writePDF(t, first, []string{"alpha one", "alpha two"})
	writePDF(t, second, []string{"beta one"})

	pages, err := LoadPages([]string{first, second})
	require.NoError(t, err)
	require.Len(t, pages, 3)
	require.Equal(t, []string{first, first, second},
		[]string{pages[0].SourceFilename, pages[1].SourceFilename, pages[2].SourceFilename})
	require.Equal(t, []int{1, 2, 1}, []int{pages[0].PageNumber, pages[1].PageNumber, pages[2].PageNumber})
	require.Contains(t, pages[1].Content, "alpha two")
}
