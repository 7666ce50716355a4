// Package api exposes the bot over HTTP: a Bot Framework style messages
// endpoint, transcript inspection and an MCP endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/url"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/state"
)

// Server is the HTTP channel for a Bot.
type Server struct {
	config Config
	bot    *bot.Bot
	store  state.Store
	logger *zap.Logger
	server *fiber.App
	mcp    *mcp.Server
}

// NewServer creates a Server and registers its routes.
func NewServer(config Config, b *bot.Bot, store state.Store, logger *zap.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		bot:    b,
		store:  store,
		logger: logger,
		server: app,
		mcp:    newMCPServer(b, logger),
	}

	app.Post("/api/messages", s.handleMessages)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// Transcript inspection endpoints
	app.Get("/conversations", s.handleListConversations)
	app.Get("/conversations/:key", s.handleGetConversation)

	// MCP over streamable HTTP
	app.All("/mcp", adaptor.HTTPHandler(mcp.NewStreamableHTTPHandler(s.mcpServer, nil)))

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting api server", zap.String("listen", s.config.ListenAddr))
	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting api server", zap.String("listen", ln.Addr().String()))
	return s.server.Listener(ln)
}

// Shutdown stops accepting requests and waits for in-flight turns.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// handleMessages runs a turn for the posted activity and returns the
// outbound messages it produced.
func (s *Server) handleMessages(c *fiber.Ctx) error {
	var activity bot.Activity
	if err := json.Unmarshal(c.Body(), &activity); err != nil {
		s.logger.Error("failed to parse activity", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid activity body"})
	}

	if activity.Type == bot.ActivityTypeMessage && activity.Conversation.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "conversation id required"})
	}

	s.logger.Debug("received activity",
		zap.String("type", activity.Type),
		zap.String("conversation", activity.Conversation.ID),
		zap.String("from", activity.From.ID),
	)

	recorder := &bot.Recorder{}
	if err := s.bot.OnTurn(c.Context(), &activity, recorder); err != nil {
		status, msg := errorStatus(err)
		s.logger.Error("turn failed",
			zap.String("conversation", activity.Conversation.ID),
			zap.Int("status", status),
			zap.Error(err),
		)
		return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
	}

	return c.JSON(RepliesResponse{Activities: replies(&activity, s.config.BotID, recorder.Sent)})
}

func errorStatus(err error) (int, string) {
	var (
		inputErr   *bot.InputError
		serviceErr *bot.ServiceError
		storeErr   *bot.StateStoreError
	)

	switch {
	case errors.As(err, &inputErr):
		return fiber.StatusBadRequest, inputErr.Error()
	case errors.As(err, &serviceErr):
		return fiber.StatusBadGateway, "completion service failed"
	case errors.As(err, &storeErr):
		return fiber.StatusInternalServerError, "state store failed"
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

// handleListConversations returns every saved conversation key.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	keys, err := s.store.Keys(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list conversations"})
	}

	return c.JSON(map[string]any{
		"count":         len(keys),
		"conversations": keys,
	})
}

// handleGetConversation returns the saved transcript for a key.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil || key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "conversation key required"})
	}

	data, err := s.store.Get(c.Context(), key, nil)
	if err != nil {
		s.logger.Error("failed to load transcript", zap.String("conversation", key), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to load conversation"})
	}
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
	}

	turns := make([]TurnMessage, data.Len())
	for i, t := range data.Turns {
		turns[i] = TurnMessage{Role: string(t.Role), Content: t.Content}
	}

	return c.JSON(TranscriptResponse{
		Key:   key,
		Turns: turns,
		Depth: len(turns),
	})
}
