package postcard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/core/pipeline"
	"github.com/postcardhq/postcard/gemini"
	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constantEmbedder returns the same vector for every text, so every stored
// entry matches every query with similarity 1.
func constantEmbedder(dimension int) pipeline.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		embedding := make([]float32, dimension)
		for i := range embedding {
			embedding[i] = 0.1
		}
		return embedding, nil
	}
}

func staticGenerator(response string) pipeline.GenerateFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return response, nil
	}
}

func initPostcard(t *testing.T) *Postcard {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	p, err := NewPostcard(dbConfig, 384)
	require.NoError(t, err, "failed to create postcard")
	require.NotNil(t, p, "expected postcard to be non-nil")

	t.Cleanup(func() {
		p.Close()
	})

	return p
}

func TestNewPostcard(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewPostcard", func(t *testing.T) {
		p, err := NewPostcard(dbConfig, 384)
		require.NoError(t, err, "Expected NewPostcard to not return an error")
		require.NotNil(t, p, "Expected NewPostcard to return a non-nil instance")
		assert.NotNil(t, p.DB, "Expected postcard to have a database instance")
		assert.NotNil(t, p.Entries, "Expected postcard to have entries handler")
		assert.NotNil(t, p.Entities, "Expected postcard to have entities handler")
		assert.NotNil(t, p.Relationships, "Expected postcard to have relationships handler")
		assert.Nil(t, p.Enricher, "Expected enricher to be nil before providers are set")
		assert.Nil(t, p.Engine, "Expected engine to be nil before providers are set")

		// Cleanup
		err = p.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Postcard with nil database handles Close gracefully", func(t *testing.T) {
		p := &Postcard{}

		err := p.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestSetProviders(t *testing.T) {
	p := initPostcard(t)

	t.Run("Processing without providers fails", func(t *testing.T) {
		_, err := p.ProcessEntry(context.Background(), uuid.New())
		assert.Error(t, err, "Expected error without providers")

		_, err = p.Query(context.Background(), "Anything?", uuid.New())
		assert.Error(t, err, "Expected error without providers")
	})

	t.Run("Set all providers", func(t *testing.T) {
		p.SetProviders(constantEmbedder(384), constantEmbedder(384), staticGenerator("{}"), staticGenerator("ok"))

		assert.NotNil(t, p.Enricher, "Expected enricher to be built")
		assert.NotNil(t, p.Engine, "Expected engine to be built")
	})

	t.Run("Partial providers build only one pipeline", func(t *testing.T) {
		partial := initPostcard(t)
		partial.SetProviders(constantEmbedder(384), nil, staticGenerator("{}"), nil)

		assert.NotNil(t, partial.Enricher, "Expected enricher to be built")
		assert.Nil(t, partial.Engine, "Expected engine to stay nil without query providers")
	})
}

func TestProcessEntryEndToEnd(t *testing.T) {
	p := initPostcard(t)
	ctx := context.Background()
	userID := uuid.New()

	generator := staticGenerator(`{
		"processed_text": "### Login Bug Fix\n\n- Fixed the authentication flow.",
		"entities": [
			{"name": "authentication flow", "type": "concept"},
			{"name": "login form", "type": "component"}
		]
	}`)
	p.SetProviders(constantEmbedder(384), constantEmbedder(384), generator, staticGenerator("ok"))

	t.Run("Enrich inserted entry", func(t *testing.T) {
		entry := &model.Entry{UserID: userID, RawText: "fixed that annoying auth bug in the login form"}
		require.NoError(t, p.Entries.InsertEntry(entry), "Expected insert to not return an error")

		result, err := p.ProcessEntry(ctx, entry.ID)

		require.NoError(t, err, "Expected ProcessEntry to not return an error")
		assert.Equal(t, model.EnrichmentStatusDone, result.Status, "Expected done status")
		assert.Equal(t, 2, result.EntityCount, "Expected 2 linked entities")

		enriched, err := p.Entries.SelectEntry(entry.ID)
		require.NoError(t, err, "Expected enriched entry to exist")
		require.NotNil(t, enriched.ProcessedText, "Expected processed text to be set")
		assert.Contains(t, *enriched.ProcessedText, "Login Bug Fix", "Expected processed markdown")
		assert.Len(t, enriched.Embedding, 384, "Expected stored embedding")

		entities, err := p.Entities.SelectEntitiesByEntry(entry.ID)
		require.NoError(t, err, "Expected entities query to not return an error")
		assert.Len(t, entities, 2, "Expected 2 entities linked to entry")
	})

	t.Run("Reprocessing is idempotent for relationships", func(t *testing.T) {
		entry := &model.Entry{UserID: userID, RawText: "another note about the login form"}
		require.NoError(t, p.Entries.InsertEntry(entry), "Expected insert to not return an error")

		_, err := p.ProcessEntry(ctx, entry.ID)
		require.NoError(t, err, "Expected first run to not return an error")
		_, err = p.ProcessEntry(ctx, entry.ID)
		require.NoError(t, err, "Expected second run to not return an error")

		relationships, err := p.Relationships.SelectRelationshipsByEntry(entry.ID)
		require.NoError(t, err, "Expected relationships query to not return an error")
		assert.Len(t, relationships, 2, "Expected no duplicate relationships")
	})

	t.Run("Missing entry is skipped", func(t *testing.T) {
		result, err := p.ProcessEntry(ctx, uuid.New())

		require.NoError(t, err, "Expected missing entry to be a success")
		assert.Equal(t, model.EnrichmentStatusSkipped, result.Status, "Expected skipped status")
	})
}

func TestQueryEndToEnd(t *testing.T) {
	p := initPostcard(t)
	ctx := context.Background()
	userID := uuid.New()

	var gotPrompt string
	synthesizer := func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "You fixed the login bug.", nil
	}
	enrichGenerator := staticGenerator(`{"processed_text": "### Login bug fixed", "entities": []}`)
	p.SetProviders(constantEmbedder(384), constantEmbedder(384), enrichGenerator, synthesizer)

	entry := &model.Entry{UserID: userID, RawText: "fixed the login bug today"}
	require.NoError(t, p.Entries.InsertEntry(entry), "Expected insert to not return an error")
	_, err := p.ProcessEntry(ctx, entry.ID)
	require.NoError(t, err, "Expected enrichment to not return an error")

	t.Run("Query retrieves enriched entries", func(t *testing.T) {
		answer, err := p.Query(ctx, "When did I fix the login bug?", userID)

		require.NoError(t, err, "Expected Query to not return an error")
		assert.Equal(t, "You fixed the login bug.", answer, "Expected synthesized answer")
		assert.Contains(t, gotPrompt, "### Login bug fixed", "Expected processed text in synthesis context")
	})

	t.Run("Query of another user finds nothing", func(t *testing.T) {
		_, err := p.Query(ctx, "When did I fix the login bug?", uuid.New())

		require.NoError(t, err, "Expected Query to not return an error")
		assert.Contains(t, gotPrompt, "No relevant documents", "Expected empty context for other user")
	})
}

func TestUseGemini(t *testing.T) {
	p := initPostcard(t)
	ctx := context.Background()

	embedding := make([]float32, 384)
	for i := range embedding {
		embedding[i] = 0.05
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, ":embedContent") {
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": map[string]any{"values": embedding}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": `{"processed_text": "### Note", "entities": []}`}}}},
			},
		})
	}))
	t.Cleanup(server.Close)

	client, err := gemini.NewClient("test-key", gemini.WithBaseURL(server.URL), gemini.WithRetryInterval(time.Millisecond))
	require.NoError(t, err, "Expected NewClient to not return an error")

	p.UseGemini(client)
	require.NotNil(t, p.Enricher, "Expected enricher to be built")
	require.NotNil(t, p.Engine, "Expected engine to be built")

	entry := &model.Entry{UserID: uuid.New(), RawText: "a note"}
	require.NoError(t, p.Entries.InsertEntry(entry), "Expected insert to not return an error")

	result, err := p.ProcessEntry(ctx, entry.ID)
	require.NoError(t, err, "Expected ProcessEntry to not return an error")
	assert.Equal(t, model.EnrichmentStatusDone, result.Status, "Expected done status")

	answer, err := p.Query(ctx, "What did I note?", entry.UserID)
	require.NoError(t, err, "Expected Query to not return an error")
	assert.NotEmpty(t, answer, "Expected an answer")
}

func TestChangeIndexType(t *testing.T) {
	p := initPostcard(t)
	ctx := context.Background()

	err := p.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{"lists": 50})
	assert.NoError(t, err, "Expected index type change to not return an error")

	err = p.ChangeIndexType(ctx, "hnsw", nil)
	assert.NoError(t, err, "Expected change back to hnsw to not return an error")
}
