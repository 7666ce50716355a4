package api

import (
	"github.com/google/uuid"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/pkg/citation"
)

// ReplyActivity is an outbound message returned to the channel.
type ReplyActivity struct {
	Type         string                  `json:"type"`
	ID           string                  `json:"id"`
	ReplyToID    string                  `json:"replyToId,omitempty"`
	From         bot.ChannelAccount      `json:"from"`
	Recipient    bot.ChannelAccount      `json:"recipient"`
	Conversation bot.ConversationAccount `json:"conversation"`
	Text         string                  `json:"text,omitempty"`
	Attachments  []Attachment            `json:"attachments,omitempty"`
}

// Attachment carries a rendered card.
type Attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

// RepliesResponse is the body of a successful POST /api/messages.
type RepliesResponse struct {
	Activities []ReplyActivity `json:"activities"`
}

// TranscriptResponse is the body of GET /conversations/:key.
type TranscriptResponse struct {
	Key   string        `json:"key"`
	Turns []TurnMessage `json:"turns"`
	Depth int           `json:"depth"`
}

// TurnMessage is a transcript turn as exposed over HTTP.
type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// replies converts the recorded outbound messages into reply activities
// addressed back to the sender of in.
func replies(in *bot.Activity, botID string, sent []bot.Outbound) []ReplyActivity {
	from := in.Recipient
	if from.ID == "" {
		from.ID = botID
	}

	out := make([]ReplyActivity, 0, len(sent))
	for _, s := range sent {
		a := ReplyActivity{
			Type:         bot.ActivityTypeMessage,
			ID:           uuid.NewString(),
			ReplyToID:    in.ID,
			From:         from,
			Recipient:    in.From,
			Conversation: in.Conversation,
		}

		if s.Card != nil {
			a.Attachments = []Attachment{{
				ContentType: citation.AdaptiveCardContentType,
				Content:     s.Card.Adaptive(),
			}}
		} else {
			a.Text = s.Text
		}

		out = append(out, a)
	}
	return out
}
