package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/core/pipeline"
	"github.com/postcardhq/postcard/database"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
)

// fallbackAnswer is returned when retrieval succeeded but synthesis did
// not. The user still gets a response instead of an error page.
const fallbackAnswer = "Sorry, I was unable to generate an answer right now. Please try again."

// Engine answers natural language questions over a user's entries using
// vector retrieval followed by answer synthesis.
type Engine struct {
	entries   database.EntriesDBHandlerFunctions
	embedder  pipeline.EmbedFunc
	generator pipeline.GenerateFunc
	config    *model.QueryConfig
	logger    *slog.Logger
}

// NewEngine creates a new retrieval engine. A nil config falls back to
// the default match count and similarity threshold.
func NewEngine(
	entries database.EntriesDBHandlerFunctions,
	embedder pipeline.EmbedFunc,
	generator pipeline.GenerateFunc,
	config *model.QueryConfig,
	logger *slog.Logger,
) *Engine {
	if config == nil {
		config = model.DefaultQueryConfig()
	}
	return &Engine{
		entries:   entries,
		embedder:  embedder,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// Answer embeds the query, retrieves the most similar enriched entries of
// the user and synthesizes an answer from them. Zero matches is a valid
// outcome; the synthesis prompt then tells the model there is no context.
func (e *Engine) Answer(ctx context.Context, query string, userID uuid.UUID) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", helper.NewError("answering query", fmt.Errorf("empty query"))
	}
	if userID == uuid.Nil {
		return "", helper.NewError("answering query", fmt.Errorf("missing user id"))
	}

	embedding, err := e.embedder(ctx, query)
	if err != nil {
		return "", helper.NewError("embedding query", err)
	}

	matches, err := e.entries.MatchEntries(embedding, userID, e.config.SimilarityThreshold, e.config.MatchCount)
	if err != nil {
		return "", helper.NewError("matching entries", err)
	}
	e.logger.Info("Retrieved matches for query", slog.String("userId", userID.String()), slog.Int("matches", len(matches)))

	answer, err := e.generator(ctx, SynthesisPrompt(query, matches))
	if err != nil {
		e.logger.Warn("Answer synthesis failed, returning fallback", slog.String("userId", userID.String()), slog.Any("error", err))
		return fallbackAnswer, nil
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		e.logger.Warn("Answer synthesis returned empty text, returning fallback", slog.String("userId", userID.String()))
		return fallbackAnswer, nil
	}

	return answer, nil
}
