package bot

import (
	"context"

	"github.com/papercomputeco/citebot/pkg/citation"
)

// Transport delivers outbound messages to the channel the turn came from.
type Transport interface {
	SendText(ctx context.Context, text string) error
	SendCard(ctx context.Context, card *citation.Card) error
}

// Outbound is one delivered message: either Text or Card is set.
type Outbound struct {
	Text string
	Card *citation.Card
}

// Recorder is a Transport that buffers outbound messages for channels that
// reply in bulk once the turn is over. It is not safe for concurrent turns.
type Recorder struct {
	Sent []Outbound
}

func (r *Recorder) SendText(_ context.Context, text string) error {
	r.Sent = append(r.Sent, Outbound{Text: text})
	return nil
}

func (r *Recorder) SendCard(_ context.Context, card *citation.Card) error {
	r.Sent = append(r.Sent, Outbound{Card: card})
	return nil
}
