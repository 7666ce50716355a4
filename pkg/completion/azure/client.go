// Package azure is a completion.Service for Azure OpenAI chat completions,
// including "on your data" retrieval augmentation.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/pkg/completion"
	"github.com/papercomputeco/citebot/pkg/llm"
)

// Config is the Azure OpenAI client configuration.
type Config struct {
	// Endpoint of the Azure OpenAI resource (e.g., "https://name.openai.azure.com")
	Endpoint string

	// APIKey sent in the "api-key" header.
	APIKey string

	// APIVersion query parameter (e.g., "2024-10-21")
	APIVersion string
}

// Client calls the chat completions endpoint of a deployment.
type Client struct {
	config     Config
	logger     *zap.Logger
	httpClient *http.Client
}

// New creates a Client.
func New(config Config, logger *zap.Logger) (*Client, error) {
	if config.Endpoint == "" {
		return nil, errors.New("azure openai endpoint is required")
	}
	if config.APIVersion == "" {
		return nil, errors.New("azure openai api version is required")
	}

	return &Client{
		config: config,
		logger: logger,
		// Deadlines come from the caller's context.
		httpClient: &http.Client{},
	}, nil
}

// Complete sends req to the deployment named by req.Model.
func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*completion.Result, error) {
	if req.Model == "" {
		return nil, errors.New("deployment name is required")
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.url(req.Model)
	c.logger.Debug("sending completion request",
		zap.String("url", endpoint),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("augmented", len(req.DataSources) > 0),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("api-key", c.config.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &completion.UpstreamError{Status: httpResp.StatusCode, Body: string(body)}
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return completion.FromResponse(&resp)
}

func (c *Client) url(deployment string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.config.Endpoint, "/"),
		url.PathEscape(deployment),
		url.QueryEscape(c.config.APIVersion),
	)
}
