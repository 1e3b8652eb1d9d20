package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/postcardhq/postcard/helper"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// TextModel is the generation model used for enrichment and synthesis.
	TextModel = "gemini-2.0-flash"
	// EmbeddingModel is the embedding model.
	EmbeddingModel = "text-embedding-001"
	// EmbeddingDimensions is the requested output dimensionality, matching
	// the vector column width in the database.
	EmbeddingDimensions = 384
)

// maxRetries is the number of retries after the first attempt, so every
// request is tried at most three times.
const maxRetries = 2

// Client talks to the Gemini REST API. Transient failures (transport
// errors, 429 and 5xx responses) are retried with exponential backoff,
// everything else fails immediately.
type Client struct {
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying http client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRetryInterval overrides the initial backoff interval.
func WithRetryInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.retryInterval = interval
	}
}

// NewClient creates a new Gemini API client.
func NewClient(apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, helper.NewError("creating gemini client", fmt.Errorf("missing api key"))
	}
	client := &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		retryInterval: 500 * time.Millisecond,
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// post sends a JSON request to the given model endpoint and decodes the
// response into out.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		request.Header.Set("Content-Type", "application/json")
		request.Header.Set("x-goog-api-key", c.apiKey)

		response, err := c.httpClient.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		responseBody, err := io.ReadAll(response.Body)
		if err != nil {
			return err
		}

		if response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500 {
			return fmt.Errorf("gemini api returned status %d: %s", response.StatusCode, responseBody)
		}
		if response.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("gemini api returned status %d: %s", response.StatusCode, responseBody))
		}

		err = json.Unmarshal(responseBody, out)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshalling response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
}
