package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType labels an entry-to-entity edge.
type RelationshipType string

const (
	// RelationshipTypeMentions is the only type the pipeline currently emits.
	RelationshipTypeMentions RelationshipType = "mentions"
)

// Relationship is an edge recording that an entry mentions an entity.
// The (EntryID, EntityID, Type) triple is unique; inserting a duplicate is a
// silent no-op so that webhook redelivery stays idempotent.
type Relationship struct {
	ID        uuid.UUID        `json:"id"`
	EntryID   uuid.UUID        `json:"entry_id"`
	EntityID  uuid.UUID        `json:"entity_id"`
	Type      RelationshipType `json:"relationship_type"`
	CreatedAt time.Time        `json:"created_at"`
}
