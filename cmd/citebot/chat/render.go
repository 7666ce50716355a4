package chatcmder

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/pkg/citation"
)

// noTTYStyle is glamour's plain-text style.
const noTTYStyle = "notty"

// renderer turns outbound messages into terminal text.
type renderer struct {
	markdown *glamour.TermRenderer
	width    int
}

func newRenderer(width int, color bool) (*renderer, error) {
	style := glamour.WithAutoStyle()
	if !color {
		style = glamour.WithStandardStyle(noTTYStyle)
	}

	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("could not create markdown renderer: %w", err)
	}
	return &renderer{markdown: md, width: width}, nil
}

// text renders a bot reply as markdown, falling back to the raw text.
func (r *renderer) text(s string) string {
	out, err := r.markdown.Render(s)
	if err != nil {
		return s
	}
	return strings.Trim(out, "\n")
}

// card renders the citations as a bordered list with titles and URLs
// truncated to the terminal width.
func (r *renderer) card(c *citation.Card) string {
	inner := r.width - 4
	if inner < 10 {
		inner = 10
	}

	lines := []string{cardTitleStyle.Render("Citations")}
	for _, e := range c.Entries {
		lines = append(lines, ansi.Truncate(fmt.Sprintf("[%d] %s", e.Index, e.Title), inner, "…"))
		if e.URL != "" {
			lines = append(lines, urlStyle.Render(ansi.Truncate("    "+e.URL, inner, "…")))
		}
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// outbound renders every message of a turn, each prefixed with the bot label.
func (r *renderer) outbound(sent []bot.Outbound) []string {
	out := make([]string, 0, len(sent))
	for _, s := range sent {
		if s.Card != nil {
			out = append(out, r.card(s.Card))
			continue
		}
		out = append(out, botStyle.Render("citebot")+"\n"+r.text(s.Text))
	}
	return out
}
