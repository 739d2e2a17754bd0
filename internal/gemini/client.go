// Package gemini is a minimal HTTP client for the Google Generative
// Language API: text generation and embeddings, nothing else.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// ErrQuotaExceeded marks a generation failure caused by API quota
// exhaustion. Callers distinguish it from other generation errors because
// retrying it immediately is pointless.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Client communicates with the Generative Language API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. An empty baseURL selects the production endpoint.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// generateRequest is the JSON body for POST models/<m>:generateContent.
type generateRequest struct {
	Contents []content `json:"contents"`
}

// generateResponse is the JSON returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// apiError mirrors the error envelope the API wraps failures in.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends a prompt to the given model and returns the generated
// text. Quota exhaustion is reported wrapping ErrQuotaExceeded.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	var result generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", model)
	if err := c.post(ctx, path, reqBody, &result); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(result.Candidates) == 0 {
		if reason := result.PromptFeedback.BlockReason; reason != "" {
			return "", fmt.Errorf("generate: prompt blocked (%s)", reason)
		}
		return "", errors.New("generate: no candidates in response")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("generate: empty candidate (finish reason %s)",
			result.Candidates[0].FinishReason)
	}
	return text, nil
}

// embedRequest is the JSON body for POST models/<m>:embedContent.
type embedRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

// embedResponse is the JSON returned by embedContent.
type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model:   "models/" + model,
		Content: content{Parts: []part{{Text: text}}},
	}

	var result embedResponse
	path := fmt.Sprintf("/v1beta/models/%s:embedContent", model)
	if err := c.post(ctx, path, reqBody, &result); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(result.Embedding.Values) == 0 {
		return nil, errors.New("embed: empty embedding in response")
	}
	return result.Embedding.Values, nil
}

// modelsResponse mirrors the JSON returned by GET /v1beta/models.
type modelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsReachable returns true if the API answers a model listing with the
// configured key.
func (c *Client) IsReachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the model names the API makes available to this key,
// without the "models/" prefix.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting model list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	names := make([]string, len(models.Models))
	for i, m := range models.Models {
		names[i] = strings.TrimPrefix(m.Name, "models/")
	}
	return names, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&ae); decodeErr == nil && ae.Error.Message != "" {
			if resp.StatusCode == http.StatusTooManyRequests || ae.Error.Status == "RESOURCE_EXHAUSTED" {
				return fmt.Errorf("%w: %s", ErrQuotaExceeded, ae.Error.Message)
			}
			return fmt.Errorf("API error %d (%s): %s", ae.Error.Code, ae.Error.Status, ae.Error.Message)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: status 429", ErrQuotaExceeded)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
