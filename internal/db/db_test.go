package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"document-qa/internal/config"
	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
	"document-qa/internal/testutil"
)

func TestEntryConversionKeepsChunkFields(t *testing.T) {
	entry := models.ChunkEmbedding{
		Chunk: models.Chunk{
			ID: "id-1", Content: "text", SourceFilename: "a.pdf",
			PageNumber: 2, EndPageNumber: 3, ChunkID: 4, Start: 5, End: 6,
		},
		Embedding: []float32{0.1, 0.2},
	}
	doc := fromEntry(entry)
	require.Equal(t, []float32{0.1, 0.2}, doc.Embedding.Slice())
	require.Equal(t, entry.Chunk, doc.chunk())
}

func TestConnectDBRejectsUnknownDriver(t *testing.T) {
	_, err := ConnectDB(&config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
}

// Runs against a live Postgres with pgvector when DOCQA_TEST_PG_DSN is set.
func TestStoreAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	for _, driver := range []string{config.DriverPgdriver, config.DriverPq} {
		t.Run(driver, func(t *testing.T) {
			store, err := NewStore(ctx, &config.DatabaseConfig{Driver: driver, DSN: dsn})
			require.NoError(t, err)
			defer store.Close()
			require.NoError(t, store.Reset(ctx))

			_, err = store.Search(ctx, []float32{1, 0}, 1)
			require.ErrorIs(t, err, apperrors.ErrEmptyIndex)

			emb := testutil.NewBagOfWordsEmbedder()
			emb.Dim = 16
			texts := []string{"sky blue", "grass green"}
			vecs, err := emb.EmbedDocuments(ctx, texts)
			require.NoError(t, err)
			entries := []models.ChunkEmbedding{
				{Chunk: models.Chunk{ID: "a", Content: texts[0], SourceFilename: "x.pdf", PageNumber: 1, EndPageNumber: 1, ChunkID: 1}, Embedding: vecs[0]},
				{Chunk: models.Chunk{ID: "b", Content: texts[1], SourceFilename: "x.pdf", PageNumber: 1, EndPageNumber: 1, ChunkID: 2}, Embedding: vecs[1]},
			}
			require.NoError(t, store.Upsert(ctx, entries))
			require.NoError(t, store.Upsert(ctx, entries))

			n, err := store.Count(ctx)
			require.NoError(t, err)
			require.Equal(t, 2, n)

			q, err := emb.EmbedQuery(ctx, "blue sky")
			require.NoError(t, err)
			res, err := store.Search(ctx, q, 1)
			require.NoError(t, err)
			require.Len(t, res, 1)
			require.Equal(t, "a", res[0].ID)
		})
	}
}
