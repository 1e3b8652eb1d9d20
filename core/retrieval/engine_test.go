package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/postcardhq/postcard/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEntries implements EntriesDBHandlerFunctions and records the
// arguments MatchEntries was called with.
type fakeEntries struct {
	matches       []*model.EntryMatch
	matchErr      error
	gotEmbedding  []float32
	gotUserID     uuid.UUID
	gotThreshold  float64
	gotMatchCount int
	matchesCalled bool
}

func (f *fakeEntries) InsertEntry(entry *model.Entry) error                { return nil }
func (f *fakeEntries) SelectEntry(id uuid.UUID) (*model.Entry, error)      { return nil, nil }
func (f *fakeEntries) DeleteEntry(id uuid.UUID) error                      { return nil }
func (f *fakeEntries) UpdateEntryEnrichment(id uuid.UUID, processedText string, embedding []float32) error {
	return nil
}
func (f *fakeEntries) SelectEntriesByUser(userID uuid.UUID, limit int) ([]*model.Entry, error) {
	return nil, nil
}

func (f *fakeEntries) MatchEntries(embedding []float32, userID uuid.UUID, threshold float64, matchCount int) ([]*model.EntryMatch, error) {
	f.matchesCalled = true
	f.gotEmbedding = embedding
	f.gotUserID = userID
	f.gotThreshold = threshold
	f.gotMatchCount = matchCount
	return f.matches, f.matchErr
}

func staticEmbedder(embedding []float32, err error) func(ctx context.Context, text string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedding, err
	}
}

func newTestEngine(entries *fakeEntries, generate func(ctx context.Context, prompt string) (string, error)) *Engine {
	return NewEngine(entries, staticEmbedder([]float32{0.1, 0.2, 0.3}, nil), generate, nil, slog.New(slog.DiscardHandler))
}

func TestEngineAnswer(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Answer with matches", func(t *testing.T) {
		entries := &fakeEntries{matches: []*model.EntryMatch{
			{EntryID: uuid.New(), Content: "Fixed the login bug last week.", Similarity: 0.91},
			{EntryID: uuid.New(), Content: "Login form uses the new error handler.", Similarity: 0.84},
		}}

		var gotPrompt string
		generator := func(ctx context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "You fixed the login bug last week.", nil
		}

		engine := newTestEngine(entries, generator)
		answer, err := engine.Answer(ctx, "When did I fix the login bug?", userID)

		require.NoError(t, err, "Expected Answer to not return an error")
		assert.Equal(t, "You fixed the login bug last week.", answer, "Expected synthesized answer")
		assert.Contains(t, gotPrompt, "Fixed the login bug last week.", "Expected match content in prompt")
		assert.Contains(t, gotPrompt, "similarity 0.91", "Expected similarity tag in prompt")
		assert.Contains(t, gotPrompt, "When did I fix the login bug?", "Expected query in prompt")
	})

	t.Run("Answer uses default retrieval config", func(t *testing.T) {
		entries := &fakeEntries{}
		engine := newTestEngine(entries, func(ctx context.Context, prompt string) (string, error) {
			return "Nothing found.", nil
		})

		_, err := engine.Answer(ctx, "Anything?", userID)

		require.NoError(t, err, "Expected Answer to not return an error")
		require.True(t, entries.matchesCalled, "Expected MatchEntries to be called")
		assert.Equal(t, userID, entries.gotUserID, "Expected retrieval scoped to user")
		assert.Equal(t, 0.7, entries.gotThreshold, "Expected default similarity threshold")
		assert.Equal(t, 5, entries.gotMatchCount, "Expected default match count")
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, entries.gotEmbedding, "Expected query embedding passed through")
	})

	t.Run("Answer with zero matches uses no context marker", func(t *testing.T) {
		entries := &fakeEntries{}

		var gotPrompt string
		generator := func(ctx context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "I could not find anything relevant in the journal.", nil
		}

		engine := newTestEngine(entries, generator)
		answer, err := engine.Answer(ctx, "Did I ever use Kafka?", userID)

		require.NoError(t, err, "Expected zero matches to be valid")
		assert.Contains(t, gotPrompt, noContextMarker, "Expected no context marker in prompt")
		assert.NotEmpty(t, answer, "Expected an answer")
	})

	t.Run("Empty query is rejected", func(t *testing.T) {
		engine := newTestEngine(&fakeEntries{}, func(ctx context.Context, prompt string) (string, error) {
			return "", nil
		})

		answer, err := engine.Answer(ctx, "   ", userID)

		assert.Error(t, err, "Expected error for empty query")
		assert.Empty(t, answer, "Expected no answer")
	})

	t.Run("Missing user id is rejected", func(t *testing.T) {
		engine := newTestEngine(&fakeEntries{}, func(ctx context.Context, prompt string) (string, error) {
			return "", nil
		})

		answer, err := engine.Answer(ctx, "Anything?", uuid.Nil)

		assert.Error(t, err, "Expected error for missing user id")
		assert.Empty(t, answer, "Expected no answer")
	})

	t.Run("Embedding failure aborts", func(t *testing.T) {
		entries := &fakeEntries{}
		engine := NewEngine(entries, staticEmbedder(nil, errors.New("provider unavailable")), func(ctx context.Context, prompt string) (string, error) {
			return "", nil
		}, nil, slog.New(slog.DiscardHandler))

		answer, err := engine.Answer(ctx, "Anything?", userID)

		assert.Error(t, err, "Expected embedding failure to fail the query")
		assert.Empty(t, answer, "Expected no answer")
		assert.False(t, entries.matchesCalled, "Expected no retrieval after embedding failure")
	})

	t.Run("Retrieval failure aborts", func(t *testing.T) {
		entries := &fakeEntries{matchErr: errors.New("connection reset")}
		engine := newTestEngine(entries, func(ctx context.Context, prompt string) (string, error) {
			return "", nil
		})

		answer, err := engine.Answer(ctx, "Anything?", userID)

		assert.Error(t, err, "Expected retrieval failure to fail the query")
		assert.Empty(t, answer, "Expected no answer")
	})

	t.Run("Synthesis failure returns fallback answer", func(t *testing.T) {
		entries := &fakeEntries{matches: []*model.EntryMatch{{EntryID: uuid.New(), Content: "Note", Similarity: 0.8}}}
		engine := newTestEngine(entries, func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("model overloaded")
		})

		answer, err := engine.Answer(ctx, "Anything?", userID)

		require.NoError(t, err, "Expected synthesis failure to not be an error")
		assert.Equal(t, fallbackAnswer, answer, "Expected fallback answer")
	})

	t.Run("Empty synthesis output returns fallback answer", func(t *testing.T) {
		entries := &fakeEntries{}
		engine := newTestEngine(entries, func(ctx context.Context, prompt string) (string, error) {
			return "  \n ", nil
		})

		answer, err := engine.Answer(ctx, "Anything?", userID)

		require.NoError(t, err, "Expected empty synthesis to not be an error")
		assert.Equal(t, fallbackAnswer, answer, "Expected fallback answer")
	})

	t.Run("Custom config is passed to retrieval", func(t *testing.T) {
		entries := &fakeEntries{}
		config := &model.QueryConfig{MatchCount: 10, SimilarityThreshold: 0.5}
		engine := NewEngine(entries, staticEmbedder([]float32{0.1}, nil), func(ctx context.Context, prompt string) (string, error) {
			return "ok", nil
		}, config, slog.New(slog.DiscardHandler))

		_, err := engine.Answer(ctx, "Anything?", userID)

		require.NoError(t, err, "Expected Answer to not return an error")
		assert.Equal(t, 0.5, entries.gotThreshold, "Expected custom threshold")
		assert.Equal(t, 10, entries.gotMatchCount, "Expected custom match count")
	})
}
