// Package completion defines the hosted chat-completion service the bot talks to.
package completion

import (
	"context"
	"fmt"

	"github.com/papercomputeco/citebot/pkg/llm"
)

// Service performs a single synchronous completion. Implementations do not retry.
type Service interface {
	Complete(ctx context.Context, req *llm.ChatRequest) (*Result, error)
}

// Result is the part of a completion the bot consumes.
type Result struct {
	// Text is the first choice's reply, markers untouched.
	Text string

	// Citations is empty unless the request carried a data source and the
	// service grounded the reply in retrieved documents.
	Citations []llm.Citation

	// Model reported by the service.
	Model string
}

// UpstreamError is returned when the service answers with a non-success status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// FromResponse extracts the first choice of resp.
func FromResponse(resp *llm.ChatResponse) (*Result, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	msg := resp.Choices[0].Message
	res := &Result{
		Text:  msg.Content,
		Model: resp.Model,
	}
	if msg.Context != nil {
		res.Citations = msg.Context.Citations
	}
	return res, nil
}
