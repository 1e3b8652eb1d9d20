package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/database"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
)

// Enricher turns a raw entry into its derived fields: an embedding, a
// processed markdown text and a set of linked entities. Embedding and
// generation are pluggable so providers can be swapped out in tests.
type Enricher struct {
	entries       database.EntriesDBHandlerFunctions
	entities      database.EntitiesDBHandlerFunctions
	relationships database.RelationshipsDBHandlerFunctions
	embedder      EmbedFunc
	generator     GenerateFunc
	embeddingDim  int
	logger        *slog.Logger
}

// NewEnricher creates a new Enricher on top of the given handlers and
// provider functions.
func NewEnricher(
	entries database.EntriesDBHandlerFunctions,
	entities database.EntitiesDBHandlerFunctions,
	relationships database.RelationshipsDBHandlerFunctions,
	embedder EmbedFunc,
	generator GenerateFunc,
	embeddingDim int,
	logger *slog.Logger,
) *Enricher {
	return &Enricher{
		entries:       entries,
		entities:      entities,
		relationships: relationships,
		embedder:      embedder,
		generator:     generator,
		embeddingDim:  embeddingDim,
		logger:        logger,
	}
}

// Process enriches a single entry. A missing entry or an entry with empty
// raw text is skipped and reported as a success so that webhook retries
// are not triggered for entries that have nothing to process. An embedding
// failure aborts the whole run, while a generation or parse failure falls
// back to the raw text and continues without entities.
func (e *Enricher) Process(ctx context.Context, entryID uuid.UUID) (*model.EnrichmentResult, error) {
	entry, err := e.entries.SelectEntry(entryID)
	if errors.Is(err, sql.ErrNoRows) {
		e.logger.Warn("Entry not found, nothing to enrich", slog.String("entryId", entryID.String()))
		return &model.EnrichmentResult{
			EntryID: entryID,
			Status:  model.EnrichmentStatusSkipped,
			Message: fmt.Sprintf("Entry %v not found.", entryID),
		}, nil
	}
	if err != nil {
		return nil, helper.NewError("fetching entry", err)
	}

	if entry.IsEmpty() {
		e.logger.Info("Entry has empty raw text, skipping enrichment", slog.String("entryId", entryID.String()))
		return &model.EnrichmentResult{
			EntryID: entryID,
			Status:  model.EnrichmentStatusSkipped,
			Message: fmt.Sprintf("Skipped empty entry %v", entryID),
		}, nil
	}

	embedding, err := e.embedder(ctx, entry.RawText)
	if err != nil {
		return nil, helper.NewError("generating embedding", err)
	}
	if len(embedding) != e.embeddingDim {
		return nil, helper.NewError("generating embedding", fmt.Errorf("expected %d dimensions, got %d", e.embeddingDim, len(embedding)))
	}

	enrichment := e.generate(ctx, entry)

	err = e.entries.UpdateEntryEnrichment(entryID, enrichment.ProcessedText, embedding)
	if err != nil {
		return nil, helper.NewError("updating entry with enrichment", err)
	}

	entityCount := e.linkEntities(entryID, enrichment.Entities)
	e.logger.Info("Enrichment complete", slog.String("entryId", entryID.String()), slog.Int("entities", entityCount))

	return &model.EnrichmentResult{
		EntryID:     entryID,
		Status:      model.EnrichmentStatusDone,
		EntityCount: entityCount,
	}, nil
}

// generate runs the generation provider and parses its response.
// Any failure falls back to the raw text without entities.
func (e *Enricher) generate(ctx context.Context, entry *model.Entry) *model.Enrichment {
	response, err := e.generator(ctx, EnrichmentPrompt(entry.RawText))
	if err == nil {
		enrichment, parseErr := ParseEnrichment(response)
		if parseErr == nil {
			if enrichment.ProcessedText == "" {
				enrichment.ProcessedText = entry.RawText
			}
			return enrichment
		}
		err = parseErr
	}

	e.logger.Warn("Generation failed, falling back to raw text", slog.String("entryId", entry.ID.String()), slog.Any("error", err))
	return &model.Enrichment{ProcessedText: entry.RawText}
}

// linkEntities upserts extracted entities and connects them to the entry
// with mentions relationships. Failures on single entities are logged and
// skipped so one bad extraction does not lose the rest.
func (e *Enricher) linkEntities(entryID uuid.UUID, extracted []model.ExtractedEntity) int {
	linked := 0
	for _, candidate := range extracted {
		name := strings.TrimSpace(candidate.Name)
		entityType := strings.TrimSpace(candidate.Type)
		if name == "" || entityType == "" {
			e.logger.Warn("Skipping invalid entity", slog.String("entryId", entryID.String()), slog.String("name", candidate.Name), slog.String("type", candidate.Type))
			continue
		}

		entity := &model.Entity{Name: name, Type: entityType}
		err := e.entities.UpsertEntity(entity)
		if err != nil {
			e.logger.Error("Upserting entity failed", slog.String("entryId", entryID.String()), slog.String("name", name), slog.Any("error", err))
			continue
		}

		_, err = e.relationships.InsertRelationship(&model.Relationship{
			EntryID:  entryID,
			EntityID: entity.ID,
			Type:     model.RelationshipTypeMentions,
		})
		if err != nil {
			e.logger.Error("Linking entity to entry failed", slog.String("entryId", entryID.String()), slog.String("name", name), slog.Any("error", err))
			continue
		}

		linked++
	}
	return linked
}
