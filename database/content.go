package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
	loadSql "github.com/daggergm/daggergm/sql"
)

// ContentDBHandlerFunctions defines the interface for content store database operations.
type ContentDBHandlerFunctions interface {
	InsertEntity(entity *model.ContentEntity) error
	SelectEntity(id uuid.UUID) (*model.ContentEntity, error)
	SelectEntityByName(category model.Category, name string) (*model.ContentEntity, error)
	SelectEntitiesBySimilarity(category model.Category, embedding []float32, tierCeiling *int, limit int) ([]*model.ContentEntity, error)
	SearchEntitiesByText(category model.Category, query string, limit int) ([]*model.ContentEntity, error)
	CountByCategory(category model.Category) (int64, error)
}

// ContentDBHandler handles content store database operations
type ContentDBHandler struct {
	db *helper.Database
}

// NewContentDBHandler creates a new content store database handler.
// It initializes the database connection and loads content-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewContentDBHandler(db *helper.Database, embeddingDim int, force bool) (*ContentDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	contentDbHandler := &ContentDBHandler{
		db: db,
	}

	err := loadSql.LoadContentSql(contentDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load content sql", err)
	}

	err = contentDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ContentDBHandler")

	return contentDbHandler, nil
}

// CreateTable creates the 'content_entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ContentDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_content($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing content_entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table content_entities")

	return nil
}

// InsertEntity inserts a new content entity. Used by the one-time seed load;
// the generation engine never writes here.
func (h *ContentDBHandler) InsertEntity(entity *model.ContentEntity) error {
	embeddingVector := pgvector.NewVector(entity.Embedding)
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_content_entity($1, $2, $3, $4, $5, $6)`,
		entity.Category,
		entity.Name,
		entity.Tier,
		entity.Attributes,
		entity.SearchableText,
		embeddingVector,
	)

	var scanned pgvector.Vector
	err := row.Scan(
		&entity.ID,
		&entity.Category,
		&entity.Name,
		&entity.Tier,
		&entity.Attributes,
		&entity.SearchableText,
		&scanned,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	entity.Embedding = scanned.Slice()

	return nil
}

// SelectEntity retrieves a content entity by ID
func (h *ContentDBHandler) SelectEntity(id uuid.UUID) (*model.ContentEntity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_content_entity($1)`,
		id,
	)

	entity := &model.ContentEntity{}
	var scanned pgvector.Vector
	err := row.Scan(
		&entity.ID,
		&entity.Category,
		&entity.Name,
		&entity.Tier,
		&entity.Attributes,
		&entity.SearchableText,
		&scanned,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	entity.Embedding = scanned.Slice()

	return entity, nil
}

// SelectEntityByName retrieves a content entity by exact name within a category
func (h *ContentDBHandler) SelectEntityByName(category model.Category, name string) (*model.ContentEntity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_content_entity_by_name($1, $2)`,
		category,
		name,
	)

	entity := &model.ContentEntity{}
	var scanned pgvector.Vector
	err := row.Scan(
		&entity.ID,
		&entity.Category,
		&entity.Name,
		&entity.Tier,
		&entity.Attributes,
		&entity.SearchableText,
		&scanned,
		&entity.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}
	entity.Embedding = scanned.Slice()

	return entity, nil
}

// SelectEntitiesBySimilarity performs vector similarity search within a
// category, ordered by cosine similarity descending with name ascending as
// tie-break. A nil tierCeiling skips the tier filter (untiered categories);
// rows without a tier always pass.
func (h *ContentDBHandler) SelectEntitiesBySimilarity(category model.Category, embedding []float32, tierCeiling *int, limit int) ([]*model.ContentEntity, error) {
	embeddingVector := pgvector.NewVector(embedding)

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_content_by_similarity($1, $2, $3, $4)`,
		category,
		embeddingVector,
		tierCeiling,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.ContentEntity
	for rows.Next() {
		entity := &model.ContentEntity{}
		var scanned pgvector.Vector
		err := rows.Scan(
			&entity.ID,
			&entity.Category,
			&entity.Name,
			&entity.Tier,
			&entity.Attributes,
			&entity.SearchableText,
			&scanned,
			&entity.CreatedAt,
			&entity.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entity.Embedding = scanned.Slice()

		results = append(results, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SearchEntitiesByText performs trigram text search within a category, the
// full-text fallback for callers without an embedding.
func (h *ContentDBHandler) SearchEntitiesByText(category model.Category, query string, limit int) ([]*model.ContentEntity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_content_text($1, $2, $3)`,
		category,
		query,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.ContentEntity
	for rows.Next() {
		entity := &model.ContentEntity{}
		var scanned pgvector.Vector
		err := rows.Scan(
			&entity.ID,
			&entity.Category,
			&entity.Name,
			&entity.Tier,
			&entity.Attributes,
			&entity.SearchableText,
			&scanned,
			&entity.CreatedAt,
			&entity.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entity.Embedding = scanned.Slice()

		results = append(results, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// CountByCategory returns the number of seeded entities in a category
func (h *ContentDBHandler) CountByCategory(category model.Category) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(
		`SELECT count_content_by_category($1)`,
		category,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
