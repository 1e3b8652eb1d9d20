package gemini

import (
	"context"
	"fmt"

	"github.com/postcardhq/postcard/core/pipeline"
	"github.com/postcardhq/postcard/helper"
)

// TaskType tags an embedding request with its retrieval role. Documents
// and queries are embedded with different task types so the model can
// optimize the vectors for asymmetric retrieval.
type TaskType string

const (
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
)

type embedRequest struct {
	Model                string       `json:"model"`
	Content              embedContent `json:"content"`
	TaskType             TaskType     `json:"taskType,omitempty"`
	OutputDimensionality int          `json:"outputDimensionality"`
}

type embedContent struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed generates an embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	request := embedRequest{
		Model:                "models/" + EmbeddingModel,
		Content:              embedContent{Parts: []part{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: EmbeddingDimensions,
	}

	response := &embedResponse{}
	err := c.post(ctx, "/models/"+EmbeddingModel+":embedContent", request, response)
	if err != nil {
		return nil, helper.NewError("embedding content", err)
	}

	if len(response.Embedding.Values) != EmbeddingDimensions {
		return nil, helper.NewError("embedding content", fmt.Errorf("expected %d dimensions, got %d", EmbeddingDimensions, len(response.Embedding.Values)))
	}
	return response.Embedding.Values, nil
}

// DocumentEmbedder returns an EmbedFunc that embeds entry text for storage.
func (c *Client) DocumentEmbedder() pipeline.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return c.Embed(ctx, text, TaskTypeDocument)
	}
}

// QueryEmbedder returns an EmbedFunc that embeds search queries.
func (c *Client) QueryEmbedder() pipeline.EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return c.Embed(ctx, text, TaskTypeQuery)
	}
}
