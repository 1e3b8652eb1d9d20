package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/postcardhq/postcard/helper"
	"github.com/postcardhq/postcard/model"
)

// ParseEnrichment parses a model response into an Enrichment. Models
// sometimes wrap JSON output in markdown code fences even when asked
// not to, so those are stripped before unmarshalling.
func ParseEnrichment(response string) (*model.Enrichment, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return nil, helper.NewError("parsing enrichment response", fmt.Errorf("empty response"))
	}

	enrichment := &model.Enrichment{}
	err := json.Unmarshal([]byte(cleaned), enrichment)
	if err != nil {
		return nil, helper.NewError("unmarshalling enrichment response", err)
	}

	enrichment.ProcessedText = strings.TrimSpace(enrichment.ProcessedText)
	return enrichment, nil
}
