package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed content.sql
var contentSQL string

//go:embed adventures.sql
var adventuresSQL string

// Function lists for verification
var ContentFunctions = []string{
	"init_content",
	"insert_content_entity",
	"select_content_entity",
	"select_content_entity_by_name",
	"select_content_by_similarity",
	"search_content_text",
	"count_content_by_category",
}

var AdventuresFunctions = []string{
	"init_adventures",
	"insert_adventure",
	"select_adventure",
	"update_adventure_scenes",
	"commit_scaffold",
	"commit_scene_expansion",
	"delete_adventure",
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

// LoadContentSql loads content-related SQL functions
func LoadContentSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ContentFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing content functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(contentSQL)
	if err != nil {
		return fmt.Errorf("error executing content SQL: %w", err)
	}

	exist, err := checkFunctions(db, ContentFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL content functions loaded successfully")
	return nil
}

// LoadAdventuresSql loads adventure-related SQL functions
func LoadAdventuresSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, AdventuresFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing adventures functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(adventuresSQL)
	if err != nil {
		return fmt.Errorf("error executing adventures SQL: %w", err)
	}

	exist, err := checkFunctions(db, AdventuresFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL adventures functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadContentSql(db, force); err != nil {
		return err
	}

	if err := LoadAdventuresSql(db, force); err != nil {
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
			return false, fmt.Errorf("error checking function %s: %w", f, err)
		}
		if !allExist {
			return false, nil
		}
	}
	return true, nil
}
