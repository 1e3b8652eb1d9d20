package model

import "github.com/google/uuid"

// EnrichmentStatus is the terminal state of one enrichment invocation.
type EnrichmentStatus string

const (
	// EnrichmentStatusDone means derived fields were persisted.
	EnrichmentStatusDone EnrichmentStatus = "done"
	// EnrichmentStatusSkipped means there was nothing to process (missing
	// entry or empty raw text); skips are successes, not failures.
	EnrichmentStatusSkipped EnrichmentStatus = "skipped"
)

// EnrichmentResult describes the outcome of enriching one entry.
type EnrichmentResult struct {
	EntryID     uuid.UUID        `json:"entry_id"`
	Status      EnrichmentStatus `json:"status"`
	Message     string           `json:"message,omitempty"`
	EntityCount int              `json:"entity_count"`
}

// Enrichment is the parsed structured output of the generation provider.
type Enrichment struct {
	ProcessedText string            `json:"processed_text"`
	Entities      []ExtractedEntity `json:"entities"`
	// Relationships are extracted by the prompt but currently unused
	// downstream; the pipeline emits "mentions" edges only.
	Relationships []any `json:"relationships,omitempty"`
}
