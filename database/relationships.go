package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
	loadSql "github.com/postcardhq/postcard/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for Relationships database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(relationship *model.Relationship) (bool, error)
	SelectRelationshipsByEntry(entryID uuid.UUID) ([]*model.Relationship, error)
	DeleteRelationship(id uuid.UUID) error
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL
// functions. If force is true, it will reload the SQL functions even if they
// already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := loadSql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes and foreign keys.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// InsertRelationship inserts an entry-to-entity edge. A duplicate
// (entry, entity, type) triple is silently ignored; the returned bool
// reports whether a new row was written.
func (h *RelationshipsDBHandler) InsertRelationship(relationship *model.Relationship) (bool, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3)`,
		relationship.EntryID,
		relationship.EntityID,
		relationship.Type,
	)

	err := row.Scan(
		&relationship.ID,
		&relationship.EntryID,
		&relationship.EntityID,
		&relationship.Type,
		&relationship.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict on the unique triple, nothing inserted.
		return false, nil
	}
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return true, nil
}

// SelectRelationshipsByEntry retrieves all relationships of an entry.
func (h *RelationshipsDBHandler) SelectRelationshipsByEntry(entryID uuid.UUID) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_by_entry($1)`,
		entryID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []*model.Relationship
	for rows.Next() {
		relationship := &model.Relationship{}
		err := rows.Scan(
			&relationship.ID,
			&relationship.EntryID,
			&relationship.EntityID,
			&relationship.Type,
			&relationship.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relationships = append(relationships, relationship)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// DeleteRelationship deletes a relationship by ID
func (h *RelationshipsDBHandler) DeleteRelationship(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relationship($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}
