package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

type Document struct {
	bun.BaseModel  `bun:"table:documents,alias:d"`
	ID             string          `bun:"id,pk"`
	Content        string          `bun:"content,notnull"`
	Embedding      pgvector.Vector `bun:"embedding,notnull,type:vector"`
	SourceFilename string          `bun:"source_filename,notnull"`
	PageNumber     int             `bun:"page_number,notnull"`
	EndPageNumber  int             `bun:"end_page_number,notnull"`
	ChunkID        int             `bun:"chunk_id,notnull"`
	SpanStart      int             `bun:"span_start,notnull"`
	SpanEnd        int             `bun:"span_end,notnull"`
	Similarity     float64         `bun:"similarity,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the connection with the configured driver: bun's pgdriver
// or lib/pq through database/sql.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	switch dbConfig.Driver {
	case config.DriverPq:
		return sql.Open("postgres", dbConfig.DSN)
	case config.DriverPgdriver, "":
		opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.DSN)}
		if dbConfig.Password != "" {
			opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbConfig.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// StoreDocuments inserts the documents, replacing rows with the same id
func StoreDocuments(ctx context.Context, db *bun.DB, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&docs).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("source_filename = EXCLUDED.source_filename").
		Set("page_number = EXCLUDED.page_number").
		Set("end_page_number = EXCLUDED.end_page_number").
		Set("chunk_id = EXCLUDED.chunk_id").
		Set("span_start = EXCLUDED.span_start").
		Set("span_end = EXCLUDED.span_end").
		Exec(ctx)
	return err
}

// SearchDocuments orders by cosine distance, similarity is 1 - distance
func SearchDocuments(ctx context.Context, db *bun.DB, queryEmbedding []float32, limit int) ([]Document, error) {
	vec := pgvector.NewVector(queryEmbedding)
	var docs []Document
	err := db.NewSelect().
		Model(&docs).
		Column("id", "content", "source_filename", "page_number", "end_page_number", "chunk_id", "span_start", "span_end").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", vec).
		OrderExpr("embedding <=> ?", vec).
		OrderExpr("id").
		Limit(limit).
		Scan(ctx)
	return docs, err
}

// drop table documents
func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

// Store adapts the documents table to the embedding index
type Store struct {
	db *bun.DB
}

func NewStore(ctx context.Context, dbConfig *config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	bunDB := NewDB(sqldb, dbConfig.Debug)
	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Info().Str("driver", dbConfig.Driver).Msg("Connected to postgres vector store")
	return &Store{db: bunDB}, nil
}

func (s *Store) Upsert(ctx context.Context, entries []models.ChunkEmbedding) error {
	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = fromEntry(e)
	}
	return StoreDocuments(ctx, s.db, docs)
}

func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.SearchResult, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperrors.ErrEmptyIndex
	}
	docs, err := SearchDocuments(ctx, s.db, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	out := make([]models.SearchResult, len(docs))
	for i, d := range docs {
		out[i] = models.SearchResult{Chunk: d.chunk(), Similarity: float32(d.Similarity)}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
}

func (s *Store) Reset(ctx context.Context) error {
	if err := DropDocuments(ctx, s.db); err != nil {
		return fmt.Errorf("failed to drop documents: %w", err)
	}
	return InitDB(ctx, s.db)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func fromEntry(e models.ChunkEmbedding) Document {
	return Document{
		ID:             e.ID,
		Content:        e.Content,
		Embedding:      pgvector.NewVector(e.Embedding),
		SourceFilename: e.SourceFilename,
		PageNumber:     e.PageNumber,
		EndPageNumber:  e.EndPageNumber,
		ChunkID:        e.ChunkID,
		SpanStart:      e.Start,
		SpanEnd:        e.End,
	}
}

func (d Document) chunk() models.Chunk {
	return models.Chunk{
		ID:             d.ID,
		Content:        d.Content,
		SourceFilename: d.SourceFilename,
		PageNumber:     d.PageNumber,
		EndPageNumber:  d.EndPageNumber,
		ChunkID:        d.ChunkID,
		Start:          d.SpanStart,
		End:            d.SpanEnd,
	}
}
