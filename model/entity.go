package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity represents a deduplicated named concept extracted from entries.
// Name is the global deduplication key; the most recent write wins for Type.
// Entities are shared across users and entries and are never deleted by the
// enrichment pipeline.
type Entity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"entity_type"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractedEntity is an entity candidate as produced by the generation
// provider, before validation and upsert.
type ExtractedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
