package chatcmder

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/papercomputeco/citebot/bot"
)

// turnDoneMsg carries the outcome of a turn run outside the update loop.
type turnDoneMsg struct {
	sent []bot.Outbound
	err  error
}

// session runs turns for one conversation key.
type session struct {
	ctx   context.Context
	bot   *bot.Bot
	key   string
	botID string
	user  string
}

func (s *session) greet() tea.Cmd {
	return func() tea.Msg {
		rec := &bot.Recorder{}
		members := []bot.ChannelAccount{{ID: s.user}}
		err := s.bot.HandleMembersAdded(s.ctx, members, s.botID, rec)
		return turnDoneMsg{sent: rec.Sent, err: err}
	}
}

func (s *session) send(text string) tea.Cmd {
	return func() tea.Msg {
		rec := &bot.Recorder{}
		err := s.bot.HandleMessage(s.ctx, s.key, text, rec)
		return turnDoneMsg{sent: rec.Sent, err: err}
	}
}

type model struct {
	session  *session
	render   *renderer
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	lines   []string
	waiting bool
	ready   bool
}

func newModel(s *session, r *renderer) model {
	ti := textinput.New()
	ti.Placeholder = "Ask something..."
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		session: s,
		render:  r,
		input:   ti,
		spinner: sp,
		waiting: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.session.greet())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = msg.Width - 4
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.append(userStyle.Render("you") + "\n" + text)
			return m, tea.Batch(m.session.send(text), m.spinner.Tick)
		}

	case turnDoneMsg:
		m.waiting = false
		if msg.err != nil {
			m.append(errorStyle.Render("error: " + msg.err.Error()))
		}
		for _, line := range m.render.outbound(msg.sent) {
			m.append(line)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) append(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "\n  " + m.spinner.View() + " starting..."
	}

	status := helpStyle.Render("enter to send • esc to quit")
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	return m.viewport.View() + "\n" + status + "\n" + m.input.View()
}
