package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry represents one journal note. RawText is the user input and is
// immutable after creation; ProcessedText and Embedding stay nil until the
// enrichment pipeline has run.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	RawText       string    `json:"raw_text"`
	ProcessedText *string   `json:"processed_text,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsEmpty reports whether the raw text is empty or whitespace-only.
// Empty entries are never enriched.
func (e *Entry) IsEmpty() bool {
	return strings.TrimSpace(e.RawText) == ""
}

// EntryMatch is one similarity search hit for a query embedding.
type EntryMatch struct {
	EntryID    uuid.UUID `json:"entry_id"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}
