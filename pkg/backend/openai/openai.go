// Package openai calls the OpenAI embeddings and chat completions REST APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sameehj/officemcp/pkg/backend"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultReasoningModel = "o3-mini"
)

type Client struct {
	apiKey         string
	baseURL        string
	reasoningModel string
	http           *http.Client
}

type Option func(*Client)

// WithReasoningModel overrides the model used by Reason.
func WithReasoningModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.reasoningModel = model
		}
	}
}

func New(apiKey, baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = backend.NewHTTPClient(0)
	}
	c := &Client{
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		reasoningModel: DefaultReasoningModel,
		http:           httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	if c.apiKey == "" {
		return backend.NotConfigured("OpenAI API key")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return backend.DoJSON(ctx, c.http, "openai", req, out)
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text, model string) ([]float64, error) {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	err := c.post(ctx, "/embeddings", map[string]any{"input": []string{text}, "model": model}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, errors.New("openai embeddings: empty response")
	}
	return out.Data[0].Embedding, nil
}

// Reason sends prompt as a single user message and returns the reply text.
func (c *Client) Reason(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", backend.Errorf(backend.ErrInvalid, "Prompt cannot be empty")
	}
	body := map[string]any{
		"model": c.reasoningModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai chat completions: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}
