package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func page(source string, num int, content string) models.Page {
	return models.Page{SourceFilename: source, PageNumber: num, Content: content}
}

const skyText = "The sky is blue. Grass is green."

func TestNewValidatesParameters(t *testing.T) {
	_, err := New(0, 0)
	require.Error(t, err)
	_, err = New(10, 10)
	require.Error(t, err)
	_, err = New(10, -1)
	require.Error(t, err)
	c, err := New(10, 0)
	require.NoError(t, err)
	require.Equal(t, 10, c.Size)
}

func TestSplitSkyExample(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)
	chunks := c.Split([]models.Page{page("sky.pdf", 1, skyText)})
	require.Len(t, chunks, 2)
	require.Equal(t, "The sky is blue. Gra", chunks[0].Content)
	require.Equal(t, ". Grass is green.", chunks[1].Content)
	require.Equal(t, 0, chunks[0].Start)
	require.Equal(t, 20, chunks[0].End)
	require.Equal(t, 15, chunks[1].Start)
	require.Equal(t, len(skyText), chunks[1].End)
	require.Equal(t, 1, chunks[0].ChunkID)
	require.Equal(t, 2, chunks[1].ChunkID)
}

func TestSplitIsIdempotent(t *testing.T) {
	pages := []models.Page{
		page("a.pdf", 1, strings.Repeat("lorem ipsum dolor ", 40)),
		page("a.pdf", 2, strings.Repeat("sit amet ", 30)),
		page("b.pdf", 1, "short"),
	}
	c, err := New(64, 16)
	require.NoError(t, err)
	require.Equal(t, c.Split(pages), c.Split(pages))
}

func TestSplitCoversTextAndOverlaps(t *testing.T) {
	text := strings.Repeat("abcdefghijklmnopqrstuvwxyz0123456789", 13) + "tail"
	for _, params := range [][2]int{{50, 10}, {50, 0}, {7, 6}, {1000, 200}, {33, 1}} {
		size, overlap := params[0], params[1]
		c, err := New(size, overlap)
		require.NoError(t, err)
		chunks := c.Split([]models.Page{page("doc.txt", 1, text)})
		require.NotEmpty(t, chunks)

		require.Equal(t, text, Reconstruct(chunks, overlap), "size=%d overlap=%d", size, overlap)
		for i := range chunks {
			require.LessOrEqual(t, len([]rune(chunks[i].Content)), size)
			if i == 0 {
				continue
			}
			prev := []rune(chunks[i-1].Content)
			cur := []rune(chunks[i].Content)
			require.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]))
			require.Equal(t, chunks[i-1].End-overlap, chunks[i].Start)
		}
		last := chunks[len(chunks)-1]
		require.Equal(t, len([]rune(text)), last.End)
	}
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)
	chunks := c.Split([]models.Page{page("u.txt", 1, "héllo wörld")})
	for _, ch := range chunks {
		require.LessOrEqual(t, len([]rune(ch.Content)), 4)
	}
	require.Equal(t, "héllo wörld", Reconstruct(chunks, 1))
}

func TestSplitTracesPages(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)
	chunks := c.Split([]models.Page{
		page("notes.pdf", 1, "aaaaaaaa"),
		page("notes.pdf", 2, "bbbbbbbb"),
	})
	// joined text: "aaaaaaaa\nbbbbbbbb"
	require.Equal(t, "aaaaaaaa\nb", chunks[0].Content)
	require.Equal(t, 1, chunks[0].PageNumber)
	require.Equal(t, 2, chunks[0].EndPageNumber)
	require.Equal(t, 2, chunks[1].PageNumber)
	require.Equal(t, 2, chunks[1].EndPageNumber)
	require.Equal(t, "aaaaaaaa\nbbbbbbbb", Reconstruct(chunks, 2))
}

func TestSplitKeepsDocumentsApart(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	chunks := c.Split([]models.Page{
		page("a.pdf", 1, "first document"),
		page("b.pdf", 1, "second document"),
		page("c.pdf", 1, "   "),
	})
	require.Len(t, chunks, 2)
	require.Equal(t, "a.pdf", chunks[0].SourceFilename)
	require.Equal(t, "b.pdf", chunks[1].SourceFilename)
	require.Equal(t, 1, chunks[1].ChunkID)
	require.NotEqual(t, chunks[0].ID, chunks[1].ID)

	grouped := BySource(chunks)
	require.Len(t, grouped, 2)
	require.Equal(t, "second document", Reconstruct(grouped["b.pdf"], 10))
}

func TestChunkIDsAreStable(t *testing.T) {
	c, err := New(20, 5)
	require.NoError(t, err)
	a := c.Split([]models.Page{page("sky.pdf", 1, skyText)})
	b := c.Split([]models.Page{page("sky.pdf", 1, skyText)})
	require.Equal(t, a[0].ID, b[0].ID)
	require.NotEqual(t, a[0].ID, a[1].ID)
}
