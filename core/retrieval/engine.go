package retrieval

import (
	"context"
	"fmt"

	"github.com/daggergm/daggergm/core/pipeline"
	"github.com/daggergm/daggergm/database"
	"github.com/daggergm/daggergm/helper"
	"github.com/daggergm/daggergm/model"
)

// Engine provides tier-filtered semantic retrieval over the content store.
// Results are deterministic for stable embeddings and unchanged store
// contents: equal similarities break on name ascending in SQL.
type Engine struct {
	content  database.ContentDBHandlerFunctions
	embedder pipeline.EmbedFunc
}

// NewEngine creates a new retrieval engine
func NewEngine(content database.ContentDBHandlerFunctions, embedder pipeline.EmbedFunc) *Engine {
	return &Engine{
		content:  content,
		embedder: embedder,
	}
}

// Retrieve embeds the query text and returns the top candidates of the
// category ranked by cosine similarity descending. Tiered categories are
// filtered to tier <= ceil(partyLevel/3); untiered categories are unfiltered.
func (e *Engine) Retrieve(ctx context.Context, category model.Category, queryText string, partyLevel int, limit int) ([]*model.RetrievalResult, error) {
	if e.embedder == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("embedder not set"))
	}

	embedding, err := e.embedder(queryText)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	return e.RetrieveEmbedded(ctx, category, embedding, partyLevel, limit)
}

// RetrieveEmbedded is Retrieve for callers that already hold the query
// embedding, so one expansion pass embeds its query text only once.
func (e *Engine) RetrieveEmbedded(ctx context.Context, category model.Category, embedding []float32, partyLevel int, limit int) ([]*model.RetrievalResult, error) {
	if !category.Valid() {
		return nil, helper.NewError("retrieve", fmt.Errorf("unknown category %q", category))
	}
	if limit <= 0 {
		return nil, helper.NewError("retrieve", fmt.Errorf("limit must be positive, got %d", limit))
	}

	var tierCeiling *int
	if category.Tiered() {
		ceiling := model.TierCeiling(partyLevel)
		tierCeiling = &ceiling
	}

	entities, err := e.content.SelectEntitiesBySimilarity(category, embedding, tierCeiling, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, len(entities))
	for i, entity := range entities {
		results[i] = &model.RetrievalResult{
			Entity:     entity,
			Similarity: entity.Similarity,
		}
	}

	return results, nil
}

// SearchText is the full-text fallback for callers without an embedding,
// backed by the trigram index.
func (e *Engine) SearchText(ctx context.Context, category model.Category, query string, limit int) ([]*model.RetrievalResult, error) {
	if !category.Valid() {
		return nil, helper.NewError("search text", fmt.Errorf("unknown category %q", category))
	}

	entities, err := e.content.SearchEntitiesByText(category, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, len(entities))
	for i, entity := range entities {
		results[i] = &model.RetrievalResult{
			Entity:     entity,
			Similarity: entity.Similarity,
		}
	}

	return results, nil
}
