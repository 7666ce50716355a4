package citation

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/citebot/pkg/llm"
)

// AdaptiveCardContentType is the attachment content type for adaptive cards.
const AdaptiveCardContentType = "application/vnd.microsoft.card.adaptive"

// Entry is a single line of a citation card.
type Entry struct {
	Index int    `json:"index"` // 1-based, matches the "[N]" marker in the reply
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Card is the renderable citation summary sent after the reply.
type Card struct {
	Entries []Entry `json:"entries"`
}

// NewCard builds a card for citations, or returns nil when there are none.
func NewCard(citations []llm.Citation) *Card {
	if len(citations) == 0 {
		return nil
	}

	entries := make([]Entry, len(citations))
	for i, c := range citations {
		entries[i] = Entry{
			Index: i + 1,
			Title: title(c, i+1),
			URL:   c.URL,
		}
	}
	return &Card{Entries: entries}
}

func title(c llm.Citation, n int) string {
	switch {
	case strings.TrimSpace(c.Title) != "":
		return c.Title
	case c.Filepath != "":
		return c.Filepath
	case c.URL != "":
		return c.URL
	default:
		return fmt.Sprintf("Citation %d", n)
	}
}

// Markdown renders the card as a numbered markdown list.
func (c *Card) Markdown() string {
	var b strings.Builder
	b.WriteString("**Citations**\n\n")
	for _, e := range c.Entries {
		if e.URL != "" {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", e.Index, e.Title, e.URL)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", e.Index, e.Title)
		}
	}
	return b.String()
}

// Adaptive renders the card as an Adaptive Card payload.
func (c *Card) Adaptive() map[string]any {
	body := []any{
		map[string]any{
			"type":   "TextBlock",
			"text":   "Citations",
			"weight": "Bolder",
			"size":   "Medium",
		},
	}

	for _, e := range c.Entries {
		text := fmt.Sprintf("[%d] %s", e.Index, e.Title)
		if e.URL != "" {
			text = fmt.Sprintf("[%d] [%s](%s)", e.Index, e.Title, e.URL)
		}
		body = append(body, map[string]any{
			"type": "TextBlock",
			"text": text,
			"wrap": true,
		})
	}

	return map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"type":    "AdaptiveCard",
		"version": "1.5",
		"body":    body,
	}
}
