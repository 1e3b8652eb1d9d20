package retrieval

import (
	"fmt"
	"strings"

	"github.com/postcardhq/postcard/model"
)

// noContextMarker replaces the context block when retrieval found nothing
// above the similarity threshold.
const noContextMarker = "No relevant documents were found in the journal."

const synthesisPromptTemplate = `You are a helpful assistant answering questions about a developer's personal journal.

Answer the question using ONLY the context documents below. If the context does not contain enough information to answer, say that you could not find anything relevant in the journal. Do not invent details that are not in the context.

Context documents:
%s

Question: %s

Answer in clear, concise markdown.`

// SynthesisPrompt builds the answer synthesis prompt from the retrieved
// matches, most similar first.
func SynthesisPrompt(query string, matches []*model.EntryMatch) string {
	return fmt.Sprintf(synthesisPromptTemplate, formatContext(matches), query)
}

func formatContext(matches []*model.EntryMatch) string {
	if len(matches) == 0 {
		return noContextMarker
	}

	blocks := make([]string, 0, len(matches))
	for i, match := range matches {
		blocks = append(blocks, fmt.Sprintf("[Document %d | similarity %.2f]\n%s", i+1, match.Similarity, match.Content))
	}
	return strings.Join(blocks, "\n\n")
}
