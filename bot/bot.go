// Package bot runs conversation turns: it loads the transcript, asks the
// completion service for a reply, rewrites citations, saves the transcript
// and sends the reply back over the channel transport.
package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/pkg/citation"
	"github.com/papercomputeco/citebot/pkg/completion"
	"github.com/papercomputeco/citebot/pkg/config"
	"github.com/papercomputeco/citebot/pkg/conversation"
	"github.com/papercomputeco/citebot/pkg/llm"
	"github.com/papercomputeco/citebot/pkg/state"
)

// Bot handles turns. It keeps no state between turns besides its collaborators.
type Bot struct {
	store       state.Store
	completions completion.Service
	settings    config.Source
	logger      *zap.Logger
}

// New creates a Bot.
func New(store state.Store, completions completion.Service, settings config.Source, logger *zap.Logger) *Bot {
	return &Bot{
		store:       store,
		completions: completions,
		settings:    settings,
		logger:      logger,
	}
}

// OnTurn dispatches an inbound activity by type. Unknown types are ignored.
func (b *Bot) OnTurn(ctx context.Context, activity *Activity, t Transport) error {
	switch activity.Type {
	case ActivityTypeMessage:
		return b.HandleMessage(ctx, activity.Conversation.ID, activity.Text, t)
	case ActivityTypeConversationUpdate:
		return b.HandleMembersAdded(ctx, activity.MembersAdded, activity.Recipient.ID, t)
	default:
		b.logger.Debug("ignoring activity", zap.String("type", activity.Type))
		return nil
	}
}

// HandleMessage runs one message turn for the conversation key.
//
// The steps run strictly in order: load the transcript, append the user turn,
// call the completion service, rewrite citations, append the assistant turn,
// save, then send the reply and the citation card if there is one. A failed
// completion leaves the saved transcript untouched.
func (b *Bot) HandleMessage(ctx context.Context, key, text string, t Transport) error {
	startTime := time.Now()
	settings := b.settings.Settings()

	log := b.logger.With(zap.String("conversation", key))

	if strings.TrimSpace(text) == "" {
		return &InputError{Reason: "message text is empty"}
	}

	data, err := b.store.Get(ctx, key, conversation.New(settings.Instructions))
	if err != nil {
		return &StateStoreError{Op: "load", Key: key, Err: err}
	}

	data.AddTurn(llm.RoleUser, text)

	req := BuildRequest(settings, data)
	log.Debug("calling completion service",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("augmented", len(req.DataSources) > 0),
	)

	res, err := b.completions.Complete(ctx, req)
	if err != nil {
		log.Error("completion failed", zap.Error(err))
		return &ServiceError{Err: err}
	}

	processed := citation.Process(res.Text, res.Citations)
	if len(processed.Unresolved) > 0 {
		log.Warn("dropped citation markers without a matching citation",
			zap.Ints("markers", processed.Unresolved),
			zap.Int("citations", len(res.Citations)),
		)
	}

	data.AddTurn(llm.RoleAssistant, processed.Text)

	if err := b.store.Set(ctx, key, data); err != nil {
		return &StateStoreError{Op: "save", Key: key, Err: err}
	}

	if err := t.SendText(ctx, processed.Text); err != nil {
		return err
	}
	if processed.Card != nil {
		if err := t.SendCard(ctx, processed.Card); err != nil {
			return err
		}
	}

	log.Info("turn complete",
		zap.Int("turns", data.Len()),
		zap.Int("citations", len(res.Citations)),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}

// HandleMembersAdded welcomes every joined member except the bot itself.
func (b *Bot) HandleMembersAdded(ctx context.Context, members []ChannelAccount, botID string, t Transport) error {
	welcome := b.settings.Settings().Welcome
	if welcome == "" {
		welcome = config.DefaultWelcome
	}

	for _, m := range members {
		if m.ID == botID {
			continue
		}
		if err := t.SendText(ctx, welcome); err != nil {
			return err
		}
		b.logger.Debug("welcomed member", zap.String("member", m.ID))
	}
	return nil
}

// BuildRequest projects the transcript into a completion request, attaching
// the search data source only when it is fully configured.
func BuildRequest(settings config.Settings, data *conversation.Data) *llm.ChatRequest {
	req := &llm.ChatRequest{
		Model:    settings.Deployment,
		Messages: data.ToMessages(),
	}

	if settings.Search.Enabled() {
		req.DataSources = []llm.DataSource{{
			Type: llm.DataSourceAzureSearch,
			Parameters: llm.DataSourceParameters{
				Endpoint:  settings.Search.Endpoint,
				IndexName: settings.Search.Index,
				Authentication: llm.Authentication{
					Type: llm.AuthSystemAssignedManagedIdentity,
				},
			},
		}}
	}

	return req
}
