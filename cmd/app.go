package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-qa/internal/chromemdb"
	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/index"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/session"
)

// app is the wired pipeline shared by the interactive commands
type app struct {
	cfg     *config.Config
	index   *index.Index
	chromem *chromemdb.VectorDBManager
	handler *rag.Handler
	session *session.Session
}

func (a *app) Close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing index")
		}
	}
}

// openIndex builds the embedder and the configured vector store. The
// chromem manager is returned too so backups can reach it.
func openIndex(ctx context.Context, cfg *config.Config) (*index.Index, *chromemdb.VectorDBManager, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}

	var store index.Store
	var manager *chromemdb.VectorDBManager
	switch cfg.Store.Type {
	case config.StorePgvector:
		pg, err := db.NewStore(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store = pg
	default:
		if !cfg.Store.InMemory {
			if err := helper.CreateFolder(cfg.Store.Path); err != nil {
				return nil, nil, fmt.Errorf("create store folder: %w", err)
			}
		}
		manager, err = chromemdb.NewVectorDBManager(cfg.Store.Path, cfg.Store.Collection, cfg.Store.InMemory,
			cfg.Store.Compress, cfg.RAG.EncryptionKey, embedder.EmbedQuery)
		if err != nil {
			return nil, nil, err
		}
		store = manager
	}

	ix := index.New(store, embedder, index.Options{
		Model:        cfg.EmbedLLM.Provider + "/" + cfg.EmbedLLM.Model,
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		ManifestPath: cfg.Store.Manifest,
	})
	return ix, manager, nil
}

// loadChunks reads every configured document and splits it. A document
// that cannot be read fails the whole load.
func loadChunks(cfg *config.Config) ([]models.Chunk, error) {
	pages, err := parser.New().LoadPages(cfg.Documents)
	if err != nil {
		return nil, err
	}
	c, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	chunks := c.Split(pages)
	log.Info().Int("documents", len(cfg.Documents)).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Split documents")
	return chunks, nil
}

// newApp loads, chunks and indexes the documents, then wires the query
// pipeline on top of the index.
func newApp(ctx context.Context, cfg *config.Config, rebuild bool) (*app, error) {
	chunks, err := loadChunks(cfg)
	if err != nil {
		return nil, err
	}

	ix, manager, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, index: ix, chromem: manager}

	if _, err := ix.Sync(ctx, chunks, rebuild); err != nil {
		a.Close()
		return nil, err
	}

	composer, err := rag.NewComposer(cfg.RAG.PromptTemplate)
	if err != nil {
		a.Close()
		return nil, err
	}
	generator, err := llmservice.NewGenerator(&cfg.InferenceLLM)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init generator: %w", err)
	}

	a.handler = rag.NewHandler(rag.NewRetriever(ix, cfg.RAG.TopK), composer, generator)
	a.session = session.New(a.handler, session.NewHistory())
	return a, nil
}
