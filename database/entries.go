package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
	loadSql "github.com/postcardhq/postcard/sql"
)

// EntriesDBHandlerFunctions defines the interface for Entries database operations.
type EntriesDBHandlerFunctions interface {
	InsertEntry(entry *model.Entry) error
	SelectEntry(id uuid.UUID) (*model.Entry, error)
	SelectEntriesByUser(userID uuid.UUID, limit int) ([]*model.Entry, error)
	UpdateEntryEnrichment(id uuid.UUID, processedText string, embedding []float32) error
	DeleteEntry(id uuid.UUID) error
	MatchEntries(embedding []float32, userID uuid.UUID, threshold float64, matchCount int) ([]*model.EntryMatch, error)
}

// EntriesDBHandler handles entry-related database operations
type EntriesDBHandler struct {
	db *helper.Database
}

// NewEntriesDBHandler creates a new entries database handler.
// It initializes the database connection and loads entry-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntriesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntriesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entriesDbHandler := &EntriesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntriesSql(entriesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entries sql", err)
	}

	err = entriesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntriesDBHandler")

	return entriesDbHandler, nil
}

// CreateTable creates the 'entries' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *EntriesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entries($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing entries table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entries")

	return nil
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	Vector pgvector.Vector
	Valid  bool
}

func (v *nullVector) Scan(src interface{}) error {
	if src == nil {
		v.Valid = false
		return nil
	}
	v.Valid = true
	return v.Vector.Scan(src)
}

func scanEntry(row interface{ Scan(...interface{}) error }, entry *model.Entry) error {
	var processedText sql.NullString
	var embedding nullVector

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.RawText,
		&processedText,
		&embedding,
		&entry.CreatedAt,
	)
	if err != nil {
		return err
	}

	if processedText.Valid {
		entry.ProcessedText = &processedText.String
	} else {
		entry.ProcessedText = nil
	}
	if embedding.Valid {
		entry.Embedding = embedding.Vector.Slice()
	} else {
		entry.Embedding = nil
	}

	return nil
}

// InsertEntry inserts a new entry with raw text only. Derived fields are
// populated later by the enrichment pipeline.
func (h *EntriesDBHandler) InsertEntry(entry *model.Entry) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entry($1, $2)`,
		entry.UserID,
		entry.RawText,
	)

	err := scanEntry(row, entry)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntry retrieves an entry by ID. Returns sql.ErrNoRows (wrapped)
// when the entry does not exist.
func (h *EntriesDBHandler) SelectEntry(id uuid.UUID) (*model.Entry, error) {
	entry := &model.Entry{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entry($1)`,
		id,
	)

	err := scanEntry(row, entry)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entry, nil
}

// SelectEntriesByUser retrieves the most recent entries of one user.
func (h *EntriesDBHandler) SelectEntriesByUser(userID uuid.UUID, limit int) ([]*model.Entry, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entries_by_user($1, $2)`,
		userID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		entry := &model.Entry{}
		err := scanEntry(rows, entry)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}

// UpdateEntryEnrichment sets processed text and embedding in one write.
func (h *EntriesDBHandler) UpdateEntryEnrichment(id uuid.UUID, processedText string, embedding []float32) error {
	embeddingVector := pgvector.NewVector(embedding)
	entry := &model.Entry{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_entry_enrichment($1, $2, $3)`,
		id,
		processedText,
		embeddingVector,
	)

	err := scanEntry(row, entry)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteEntry deletes an entry by ID. Relationship rows cascade.
func (h *EntriesDBHandler) DeleteEntry(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entry($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// MatchEntries performs vector similarity search scoped to one user.
// Results are ranked by descending similarity; zero matches is a valid outcome.
func (h *EntriesDBHandler) MatchEntries(embedding []float32, userID uuid.UUID, threshold float64, matchCount int) ([]*model.EntryMatch, error) {
	embeddingVector := pgvector.NewVector(embedding)
	rows, err := h.db.Instance.Query(
		`SELECT * FROM match_entries($1, $2, $3, $4)`,
		embeddingVector,
		userID,
		threshold,
		matchCount,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var matches []*model.EntryMatch
	for rows.Next() {
		match := &model.EntryMatch{}
		err := rows.Scan(
			&match.EntryID,
			&match.Content,
			&match.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		matches = append(matches, match)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return matches, nil
}
