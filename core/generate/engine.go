// Package generate drives structured scene generation: it retrieves the
// candidate content an expansion may reference, prompts the completion
// provider for schema-constrained JSON, validates and resolves the response,
// and commits the result under the adventure's version guard.
package generate

import (
	"log/slog"

	"github.com/daggergm/daggergm/core/pipeline"
	"github.com/daggergm/daggergm/core/retrieval"
	"github.com/daggergm/daggergm/database"
	"github.com/daggergm/daggergm/model"
)

// Engine orchestrates one generation action end to end. Budgets are checked
// before the provider call and charged atomically with the committed write,
// so a failed generation never consumes a regeneration.
type Engine struct {
	adventures database.AdventuresDBHandlerFunctions
	retrieval  *retrieval.Engine
	embedder   pipeline.EmbedFunc
	generator  Generator
	config     model.RetrievalConfig
	log        *slog.Logger
}

// NewEngine creates a generation engine
func NewEngine(
	adventures database.AdventuresDBHandlerFunctions,
	retrievalEngine *retrieval.Engine,
	embedder pipeline.EmbedFunc,
	generator Generator,
	config model.RetrievalConfig,
	log *slog.Logger,
) *Engine {
	return &Engine{
		adventures: adventures,
		retrieval:  retrievalEngine,
		embedder:   embedder,
		generator:  generator,
		config:     config,
		log:        log,
	}
}
