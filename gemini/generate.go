package gemini

import (
	"context"
	"fmt"

	"github.com/postcardhq/postcard/core/pipeline"
	"github.com/postcardhq/postcard/helper"
)

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateContent struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces a plain text completion for the given prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, nil)
}

// GenerateJSON produces a completion with the response mime type set to
// JSON, which keeps the model from wrapping the payload in prose or code
// fences. Used for structured extraction prompts.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, &generationConfig{ResponseMimeType: "application/json"})
}

func (c *Client) generate(ctx context.Context, prompt string, config *generationConfig) (string, error) {
	request := generateRequest{
		Contents:         []generateContent{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: config,
	}

	response := &generateResponse{}
	err := c.post(ctx, "/models/"+TextModel+":generateContent", request, response)
	if err != nil {
		return "", helper.NewError("generating content", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", helper.NewError("generating content", fmt.Errorf("no candidates in response"))
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}

// Generator returns a GenerateFunc for answer synthesis.
func (c *Client) Generator() pipeline.GenerateFunc {
	return c.Generate
}

// JSONGenerator returns a GenerateFunc for structured extraction.
func (c *Client) JSONGenerator() pipeline.GenerateFunc {
	return c.GenerateJSON
}
