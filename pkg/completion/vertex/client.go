// Package vertex is a completion.Service backed by Gemini on Vertex AI.
package vertex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/papercomputeco/citebot/pkg/completion"
	"github.com/papercomputeco/citebot/pkg/llm"
)

// Config selects the Vertex AI project and region.
type Config struct {
	Project  string
	Location string
}

// Client calls GenerateContent. Vertex does not return citations in the
// Azure format, so results never carry any.
type Client struct {
	client *genai.Client
	logger *zap.Logger
}

// New creates a Vertex AI backed client.
func New(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	if config.Project == "" || config.Location == "" {
		return nil, fmt.Errorf("vertex project and location must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Project,
		Location: config.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &Client{client: client, logger: logger}, nil
}

func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*completion.Result, error) {
	if len(req.DataSources) > 0 {
		c.logger.Warn("vertex provider ignores data sources", zap.Int("data_sources", len(req.DataSources)))
	}

	system, contents := ToContents(req.Messages)

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("vertex returned empty text")
	}

	return &completion.Result{Text: text, Model: req.Model}, nil
}

// ToContents splits messages into the system instruction and the Gemini
// conversation contents. Multiple system messages are joined.
func ToContents(messages []llm.Message) (string, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)

	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			if m.Content != "" {
				system = append(system, m.Content)
			}
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}
