package postcard

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/core/pipeline"
	"github.com/postcardhq/postcard/core/retrieval"
	"github.com/postcardhq/postcard/database"
	"github.com/postcardhq/postcard/gemini"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
	"github.com/postcardhq/postcard/server"
	loadSql "github.com/postcardhq/postcard/sql"
)

// Postcard provides a unified interface to the journal backend: the
// database handlers, the enrichment pipeline and the query engine.
type Postcard struct {
	DB            *helper.Database
	Entries       *database.EntriesDBHandler
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	Enricher      *pipeline.Enricher
	Engine        *retrieval.Engine
	// Logging
	log *slog.Logger

	// Provider functions, set via UseGemini/UseLocalEmbedder/SetProviders.
	documentEmbedder pipeline.EmbedFunc
	queryEmbedder    pipeline.EmbedFunc
	jsonGenerator    pipeline.GenerateFunc
	textGenerator    pipeline.GenerateFunc

	embeddingDim int
	queryConfig  *model.QueryConfig
}

// NewPostcard creates a new Postcard instance with all handlers initialized.
// Providers must be wired afterwards with UseGemini or SetProviders before
// entries can be enriched or queried.
func NewPostcard(config *helper.DatabaseConfiguration, embeddingDim int) (*Postcard, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("postcard", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (entries and entities first,
	// then relationships which reference both).
	// force=false to not reload if functions already exist
	entries, err := database.NewEntriesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create entries handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	return &Postcard{
		DB:            db,
		Entries:       entries,
		Entities:      entities,
		Relationships: relationships,
		log:           logger,
		embeddingDim:  embeddingDim,
		queryConfig:   model.DefaultQueryConfig(),
	}, nil
}

// Close closes the database connection
func (p *Postcard) Close() error {
	if p.DB != nil && p.DB.Instance != nil {
		return p.DB.Instance.Close()
	}
	return nil
}

// UseGemini wires the Gemini client into both pipelines: document and
// query embedding, structured extraction and answer synthesis.
func (p *Postcard) UseGemini(client *gemini.Client) {
	p.SetProviders(client.DocumentEmbedder(), client.QueryEmbedder(), client.JSONGenerator(), client.Generator())
}

// UseLocalEmbedder replaces both embedders with the local all-MiniLM-L6-v2
// model. Generation providers stay as they are, so this can be combined
// with UseGemini to embed offline and generate remotely.
func (p *Postcard) UseLocalEmbedder() error {
	embedder, err := pipeline.LocalEmbedder()
	if err != nil {
		return helper.NewError("create local embedder", err)
	}
	p.documentEmbedder = embedder
	p.queryEmbedder = embedder
	p.rebuild()
	return nil
}

// SetProviders wires custom provider functions into the pipelines.
// Nil arguments keep the current function.
func (p *Postcard) SetProviders(documentEmbedder, queryEmbedder pipeline.EmbedFunc, jsonGenerator, textGenerator pipeline.GenerateFunc) {
	if documentEmbedder != nil {
		p.documentEmbedder = documentEmbedder
	}
	if queryEmbedder != nil {
		p.queryEmbedder = queryEmbedder
	}
	if jsonGenerator != nil {
		p.jsonGenerator = jsonGenerator
	}
	if textGenerator != nil {
		p.textGenerator = textGenerator
	}
	p.rebuild()
}

// SetQueryConfig overrides the retrieval match count and similarity threshold.
func (p *Postcard) SetQueryConfig(config *model.QueryConfig) {
	p.queryConfig = config
	p.rebuild()
}

// rebuild recreates the enricher and engine from the current providers.
// Each pipeline only exists once all of its providers are set.
func (p *Postcard) rebuild() {
	if p.documentEmbedder != nil && p.jsonGenerator != nil {
		p.Enricher = pipeline.NewEnricher(p.Entries, p.Entities, p.Relationships, p.documentEmbedder, p.jsonGenerator, p.embeddingDim, p.log)
	}
	if p.queryEmbedder != nil && p.textGenerator != nil {
		p.Engine = retrieval.NewEngine(p.Entries, p.queryEmbedder, p.textGenerator, p.queryConfig, p.log)
	}
}

// ProcessEntry runs the enrichment pipeline for a single entry.
func (p *Postcard) ProcessEntry(ctx context.Context, entryID uuid.UUID) (*model.EnrichmentResult, error) {
	if p.Enricher == nil {
		return nil, helper.NewError("process entry", fmt.Errorf("providers not set, use UseGemini() first"))
	}
	return p.Enricher.Process(ctx, entryID)
}

// Query answers a natural language question over the user's entries.
func (p *Postcard) Query(ctx context.Context, query string, userID uuid.UUID) (string, error) {
	if p.Engine == nil {
		return "", helper.NewError("query", fmt.Errorf("providers not set, use UseGemini() first"))
	}
	return p.Engine.Answer(ctx, query, userID)
}

// Serve starts the HTTP server with the webhook and query endpoints and blocks.
func (p *Postcard) Serve(addr string) error {
	if p.Enricher == nil || p.Engine == nil {
		return helper.NewError("serve", fmt.Errorf("providers not set, use UseGemini() first"))
	}
	return server.NewServer(p.Enricher, p.Engine, p.log).ListenAndServe(addr)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (p *Postcard) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return p.Entries.ChangeIndexType(ctx, indexType, params)
}
