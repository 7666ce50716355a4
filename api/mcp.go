package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/pkg/citation"
)

type sendMessageInput struct {
	Conversation string `json:"conversation" jsonschema:"key the conversation transcript is stored under"`
	Text         string `json:"text" jsonschema:"the user message"`
}

type sendMessageOutput struct {
	Messages  []string         `json:"messages"`
	Citations []citation.Entry `json:"citations,omitempty"`
}

func newMCPServer(b *bot.Bot, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "citebot", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_message",
		Description: "Send a message to the bot and return its replies and citations",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in sendMessageInput) (*mcp.CallToolResult, sendMessageOutput, error) {
		if in.Conversation == "" {
			return nil, sendMessageOutput{}, errors.New("conversation is required")
		}

		recorder := &bot.Recorder{}
		if err := b.HandleMessage(ctx, in.Conversation, in.Text, recorder); err != nil {
			logger.Error("mcp turn failed", zap.String("conversation", in.Conversation), zap.Error(err))
			return nil, sendMessageOutput{}, err
		}

		out := sendMessageOutput{Messages: []string{}}
		for _, s := range recorder.Sent {
			if s.Card != nil {
				out.Citations = append(out.Citations, s.Card.Entries...)
				continue
			}
			out.Messages = append(out.Messages, s.Text)
		}
		return nil, out, nil
	})

	return server
}

func (s *Server) mcpServer(*http.Request) *mcp.Server {
	return s.mcp
}
