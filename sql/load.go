package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entries.sql
var entriesSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

// Function lists for verification
var EntriesFunctions = []string{
	"init_entries",
	"insert_entry",
	"select_entry",
	"select_entries_by_user",
	"update_entry_enrichment",
	"delete_entry",
	"match_entries",
}

var EntitiesFunctions = []string{
	"init_entities",
	"upsert_entity",
	"select_entity",
	"select_entity_by_name",
	"select_entities_by_entry",
	"delete_entity",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"select_relationships_by_entry",
	"delete_relationship",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntriesSql loads entry-related SQL functions
func LoadEntriesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntriesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entries functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entriesSQL)
	if err != nil {
		return fmt.Errorf("error executing entries SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntriesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entries functions loaded successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntitiesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entities functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entitiesSQL)
	if err != nil {
		return fmt.Errorf("error executing entities SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntitiesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entities functions loaded successfully")
	return nil
}

// LoadRelationshipsSql loads relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, RelationshipsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing relationships functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(relationshipsSQL)
	if err != nil {
		return fmt.Errorf("error executing relationships SQL: %w", err)
	}

	exist, err := checkFunctions(db, RelationshipsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL relationships functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntriesSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
