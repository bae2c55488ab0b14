package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-qa/internal/embedding"
	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

// Store persists chunk vectors and answers similarity queries
type Store interface {
	Upsert(ctx context.Context, entries []models.ChunkEmbedding) error
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

type Options struct {
	// Model identifies the embedding function; vectors of different models
	// never share a store.
	Model        string
	ChunkSize    int
	ChunkOverlap int
	ManifestPath string
}

// Index embeds chunks and queries with one embedding function and keeps the
// vectors in a Store.
type Index struct {
	store    Store
	embedder embeddings.Embedder
	opts     Options
}

// Manifest describes what the store was last built from
type Manifest struct {
	Fingerprint  string    `json:"fingerprint"`
	Model        string    `json:"model"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	Chunks       int       `json:"chunks"`
	IndexedAt    time.Time `json:"indexed_at"`
}

func New(store Store, embedder embeddings.Embedder, opts Options) *Index {
	return &Index{store: store, embedder: embedder, opts: opts}
}

// Ingest embeds the chunks and upserts them by chunk id
func (ix *Index) Ingest(ctx context.Context, chunks []models.Chunk) error {
	entries, err := ix.embed(ctx, chunks)
	if err != nil {
		return err
	}
	return ix.upsert(ctx, entries)
}

func (ix *Index) embed(ctx context.Context, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	entries, err := embedding.GenerateEmbedding(ctx, ix.embedder, chunks)
	if err != nil {
		return nil, apperrors.NewIndexError("ingest", err)
	}
	return entries, nil
}

func (ix *Index) upsert(ctx context.Context, entries []models.ChunkEmbedding) error {
	if err := ix.store.Upsert(ctx, entries); err != nil {
		return apperrors.NewIndexError("ingest", err)
	}
	log.Info().Int("chunks", len(entries)).Msg("Ingested chunks")
	return nil
}

// Search embeds the query and returns the k most similar chunks, best first
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	vec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, apperrors.NewIndexError("embed query", err)
	}
	results, err := ix.store.Search(ctx, vec, k)
	if err != nil {
		return nil, apperrors.NewIndexError("search", err)
	}
	// equal scores are ordered by id so repeated queries agree
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

func (ix *Index) Count(ctx context.Context) (int, error) {
	n, err := ix.store.Count(ctx)
	if err != nil {
		return 0, apperrors.NewIndexError("count", err)
	}
	return n, nil
}

// Reset empties the store and forgets the manifest
func (ix *Index) Reset(ctx context.Context) error {
	if err := ix.store.Reset(ctx); err != nil {
		return apperrors.NewIndexError("reset", err)
	}
	if ix.opts.ManifestPath != "" {
		if err := os.Remove(ix.opts.ManifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return apperrors.NewIndexError("reset", err)
		}
	}
	return nil
}

func (ix *Index) Close() error {
	return ix.store.Close()
}

// Sync makes the store hold exactly the given chunks. When the manifest
// matches and the store is not empty nothing is embedded; otherwise the
// chunks are embedded, then the store is cleared and refilled. It reports
// whether a rebuild happened.
func (ix *Index) Sync(ctx context.Context, chunks []models.Chunk, force bool) (bool, error) {
	fingerprint := ix.Fingerprint(chunks)
	if !force {
		manifest, err := ix.readManifest()
		if err != nil {
			log.Warn().Err(err).Str("manifest", ix.opts.ManifestPath).Msg("Ignoring unreadable manifest")
		}
		count, err := ix.Count(ctx)
		if err != nil {
			return false, err
		}
		if manifest != nil && manifest.Fingerprint == fingerprint && count == len(chunks) {
			log.Info().Int("chunks", count).Msg("Index is up to date, skipping ingestion")
			return false, nil
		}
	}

	log.Info().Bool("force", force).Int("chunks", len(chunks)).Msg("Rebuilding index")
	// embed before clearing so a failed rebuild keeps the previous index
	entries, err := ix.embed(ctx, chunks)
	if err != nil {
		return false, err
	}
	if err := ix.Reset(ctx); err != nil {
		return false, err
	}
	if err := ix.upsert(ctx, entries); err != nil {
		return false, err
	}
	if err := ix.writeManifest(Manifest{
		Fingerprint:  fingerprint,
		Model:        ix.opts.Model,
		ChunkSize:    ix.opts.ChunkSize,
		ChunkOverlap: ix.opts.ChunkOverlap,
		Chunks:       len(chunks),
		IndexedAt:    time.Now().UTC(),
	}); err != nil {
		return true, apperrors.NewIndexError("write manifest", err)
	}
	return true, nil
}

// Fingerprint hashes the embedding model, chunking parameters and chunk ids
func (ix *Index) Fingerprint(chunks []models.Chunk) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00", ix.opts.Model, ix.opts.ChunkSize, ix.opts.ChunkOverlap)
	for _, c := range chunks {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
	}
	h.Write([]byte(strconv.Itoa(len(chunks))))
	return hex.EncodeToString(h.Sum(nil))
}

func (ix *Index) readManifest() (*Manifest, error) {
	if ix.opts.ManifestPath == "" {
		return nil, nil
	}
	f, err := os.Open(ix.opts.ManifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (ix *Index) writeManifest(m Manifest) error {
	if ix.opts.ManifestPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(ix.opts.ManifestPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ix.opts.ManifestPath, data, 0o644)
}
