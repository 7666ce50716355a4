package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/cmd/citebot/setup"
)

const chatLongDesc string = `Chat with the bot in the terminal.

The terminal is a channel like any other: the bot greets you, every
message runs a full turn against the configured completion provider
and the transcript is saved under the conversation key. Reuse a key
to continue an earlier conversation.

When stdin is not a terminal, messages are read line by line and the
replies are printed as plain text.

Examples:
  citebot chat
  citebot chat --key support-42
  echo "What is our refund policy?" | citebot chat --no-color`

const chatShortDesc string = "Chat with the bot in the terminal"

const (
	defaultWidth = 80
	userID       = "user"

	// maxLineSize bounds a single piped message.
	maxLineSize = 16 * 1024 * 1024
)

type chatCommander struct {
	key     string
	backend string
	path    string
	noColor bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.key, "key", "k", "", "Conversation key (default: a new random key)")
	cmd.Flags().StringVar(&cmder.backend, "backend", "", "Storage backend: memory, sqlite, bolt or firestore")
	cmd.Flags().StringVar(&cmder.path, "db", "", "Path to the sqlite or bolt database")
	cmd.Flags().BoolVar(&cmder.noColor, "no-color", false, "Disable colors and styled markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, path, log, err := setup.Load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.backend != "" {
		cfg.Storage.Backend = c.backend
	}
	if c.path != "" {
		cfg.Storage.Path = c.path
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := setup.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	completions, err := setup.NewCompletions(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("could not create %s completion client: %w", cfg.Provider, err)
	}

	settings, stopSettings, err := setup.SettingsSource(ctx, path, cfg, log)
	if err != nil {
		return err
	}
	defer stopSettings()

	key := c.key
	if key == "" {
		key = uuid.NewString()
	}

	botID := cfg.Server.BotID
	if botID == "" {
		botID = "citebot"
	}

	s := &session{
		ctx:   ctx,
		bot:   bot.New(store, completions, settings, log),
		key:   key,
		botID: botID,
		user:  userID,
	}

	color := !c.noColor && !termenv.EnvNoColor()
	if !color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return c.runTUI(ctx, cmd, s, color)
	}
	return c.runLines(cmd, s, in)
}

func (c *chatCommander) runTUI(ctx context.Context, cmd *cobra.Command, s *session, color bool) error {
	width := defaultWidth
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}

	r, err := newRenderer(width-4, color)
	if err != nil {
		return err
	}

	p := tea.NewProgram(newModel(s, r),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat ui failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Conversation saved as %s\n", s.key)
	return nil
}

// runLines is the non-interactive channel: one turn per input line.
func (c *chatCommander) runLines(cmd *cobra.Command, s *session, in io.Reader) error {
	r, err := newRenderer(defaultWidth, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	show := func(msg tea.Msg) {
		done := msg.(turnDoneMsg)
		if done.err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", done.err)
		}
		for _, line := range r.outbound(done.sent) {
			fmt.Fprintln(out, line)
		}
	}

	show(s.greet()())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		show(s.send(text)())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not read input: %w", err)
	}

	fmt.Fprintf(out, "Conversation saved as %s\n", s.key)
	return nil
}
