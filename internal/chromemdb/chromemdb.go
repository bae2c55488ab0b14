package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	embeddingFunc  chromem.EmbeddingFunc
	dbPath         string
	compress       bool
	encryptionKey  string
	filePath       string
}

// NewVectorDBManager opens (or creates) the database under dbPath. The
// embedding function is only used by chromem when a document or query
// arrives without a precomputed vector.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string, embeddingFunc chromem.EmbeddingFunc) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		embeddingFunc:  embeddingFunc,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
		filePath:       filepath.Join(dbPath, collectionName+".chromem"),
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, m.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func (m *VectorDBManager) ensureCollection() (*chromem.Collection, error) {
	if m.collection != nil {
		return m.collection, nil
	}
	return m.GetOrCreateCollection()
}

// Upsert stores the chunks keyed by their ids, an existing id is overwritten
func (m *VectorDBManager) Upsert(ctx context.Context, entries []models.ChunkEmbedding) error {
	if len(entries) == 0 {
		return nil
	}
	c, err := m.ensureCollection()
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Metadata:  CreateMetadata(e.Chunk),
			Embedding: e.Embedding,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns the k most similar documents to the query embedding, best first
func (m *VectorDBManager) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	c := m.db.GetCollection(m.collectionName, m.embeddingFunc)
	if c == nil {
		return nil, apperrors.ErrNoCollection
	}
	m.collection = c
	count := c.Count()
	if count == 0 {
		return nil, apperrors.ErrEmptyIndex
	}

	// chromem rejects nResults above the collection size
	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       min(k, count),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		chunk := ParseMetadata(r.Metadata)
		chunk.ID = r.ID
		chunk.Content = r.Content
		out = append(out, models.SearchResult{Chunk: chunk, Similarity: r.Similarity})
	}
	return out, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	c := m.db.GetCollection(m.collectionName, m.embeddingFunc)
	if c == nil {
		return 0, nil
	}
	return c.Count(), nil
}

// Reset drops the collection and creates it again empty
func (m *VectorDBManager) Reset(ctx context.Context) error {
	if m.db.GetCollection(m.collectionName, m.embeddingFunc) != nil {
		if err := m.db.DeleteCollection(m.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	m.collection = nil
	_, err := m.GetOrCreateCollection()
	return err
}

func (m *VectorDBManager) Close() error {
	return nil
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context, filePath string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if _, err := m.ensureCollection(); err != nil {
		return err
	}
	if filePath == "" {
		filePath = m.filePath
	}

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file
func (m *VectorDBManager) Import(ctx context.Context, filePath string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if filePath == "" {
		filePath = m.filePath
	}
	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Msg("Importing collection")
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	m.collection = nil
	_, err := m.GetOrCreateCollection()
	return err
}

// CreateMetadata flattens the chunk origin into chromem's string metadata
func CreateMetadata(c models.Chunk) map[string]string {
	return map[string]string{
		models.MetaSource:    c.SourceFilename,
		models.MetaPage:      strconv.Itoa(c.PageNumber),
		models.MetaEndPage:   strconv.Itoa(c.EndPageNumber),
		models.MetaChunkID:   strconv.Itoa(c.ChunkID),
		models.MetaSpanStart: strconv.Itoa(c.Start),
		models.MetaSpanEnd:   strconv.Itoa(c.End),
	}
}

func ParseMetadata(meta map[string]string) models.Chunk {
	atoi := func(key string) int {
		v, _ := strconv.Atoi(meta[key])
		return v
	}
	return models.Chunk{
		SourceFilename: meta[models.MetaSource],
		PageNumber:     atoi(models.MetaPage),
		EndPageNumber:  atoi(models.MetaEndPage),
		ChunkID:        atoi(models.MetaChunkID),
		Start:          atoi(models.MetaSpanStart),
		End:            atoi(models.MetaSpanEnd),
	}
}
