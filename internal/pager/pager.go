// Package pager is the interactive viewer behind `tmlight view`. It shows
// a highlighted document in a scrollable viewport and re-renders it when
// the grammar, theme, or document changes.
package pager

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/tmlight/grammar"
	"github.com/zjrosen/tmlight/internal/keys"
	"github.com/zjrosen/tmlight/internal/log"
	"github.com/zjrosen/tmlight/internal/pubsub"
)

// RenderFunc produces the highlighted document.
type RenderFunc func(ctx context.Context) (string, error)

// Reload describes a change the pager should react to: an edited
// document or theme, or a failed attempt to reload one.
type Reload struct {
	Path string
	Err  error
}

// Options configures a Model.
type Options struct {
	Title  string
	Render RenderFunc
	// Grammars streams registry events; Updated and Failed trigger a
	// re-render.
	Grammars pubsub.SubscribeFunc[grammar.GrammarEvent]
	// Reloads streams document and theme changes.
	Reloads pubsub.SubscribeFunc[Reload]
	// Logs streams log entries; warnings and errors show in the status
	// line.
	Logs pubsub.SubscribeFunc[log.Entry]
}

type renderedMsg struct {
	content string
	err     error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Reverse(true).PaddingLeft(1).PaddingRight(1)
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the pager state.
type Model struct {
	ctx      context.Context
	title    string
	render   RenderFunc
	grammars *pubsub.ContinuousListener[grammar.GrammarEvent]
	reloads  *pubsub.ContinuousListener[Reload]
	logs     *log.LogListener

	keys     keys.PagerKeyMap
	help     help.Model
	viewport viewport.Model
	ready    bool
	content  string
	status   string
	err      error
	renders  int
}

// New creates a pager. Subscriptions live as long as ctx.
func New(ctx context.Context, opts Options) Model {
	m := Model{
		ctx:      ctx,
		title:    opts.Title,
		render:   opts.Render,
		keys:     keys.Pager,
		help:     help.New(),
		viewport: viewport.New(0, 0),
	}
	if opts.Grammars != nil {
		m.grammars = pubsub.NewContinuousListener(ctx, opts.Grammars)
	}
	if opts.Reloads != nil {
		m.reloads = pubsub.NewContinuousListener(ctx, opts.Reloads)
	}
	if opts.Logs != nil {
		m.logs = pubsub.NewContinuousListener(ctx, opts.Logs)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.renderCmd()}
	if m.grammars != nil {
		cmds = append(cmds, m.grammars.Listen())
	}
	if m.reloads != nil {
		cmds = append(cmds, m.reloads.Listen())
	}
	if m.logs != nil {
		cmds = append(cmds, m.logs.Listen())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-m.chromeHeight(), 1)
		if !m.ready {
			m.viewport.SetContent(m.content)
			m.ready = true
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reload):
			m.status = "re-highlighting"
			return m, m.renderCmd()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.viewport.ScrollUp(1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.viewport.ScrollDown(1)
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.PageUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.PageDown()
			return m, nil
		}
		return m, nil

	case renderedMsg:
		m.renders++
		if msg.err != nil {
			m.err = msg.err
			log.ErrorErr(log.CatUI, "Render failed", msg.err)
			return m, nil
		}
		m.err = nil
		m.content = msg.content
		m.viewport.SetContent(msg.content)
		return m, nil

	case pubsub.Event[grammar.GrammarEvent]:
		next := m.grammars.Listen()
		switch msg.Type {
		case pubsub.UpdatedEvent:
			m.status = "reloaded " + msg.Payload.ScopeName
			return m, tea.Batch(m.renderCmd(), next)
		case pubsub.FailedEvent:
			m.status = "reload failed: " + msg.Payload.ScopeName
			return m, next
		}
		return m, next

	case pubsub.Event[Reload]:
		next := m.reloads.Listen()
		if msg.Payload.Err != nil {
			m.err = msg.Payload.Err
			m.status = "reload failed: " + msg.Payload.Path
			return m, next
		}
		m.status = "reloaded " + msg.Payload.Path
		return m, tea.Batch(m.renderCmd(), next)

	case log.LogEvent:
		if msg.Payload.Level >= log.LevelWarn {
			m.status = strings.ToLower(msg.Payload.Level.String()) + ": " + msg.Payload.Message
		}
		return m, m.logs.Listen()

	case pubsub.ClosedMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	width := m.viewport.Width
	var b strings.Builder
	b.WriteString(ansi.Truncate(titleStyle.Render(m.title), width, "…"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(ansi.Truncate(m.statusLine(), width, "…"))
	return b.String()
}

// Content returns the last successfully rendered document.
func (m Model) Content() string {
	return m.content
}

// Err returns the last render or reload error, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	pos := fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100)
	parts := []string{statusStyle.Render(pos)}
	if m.status != "" {
		parts = append(parts, statusStyle.Render(m.status))
	}
	parts = append(parts, m.help.View(m.keys))
	return strings.Join(parts, "  ")
}

func (m Model) chromeHeight() int {
	// title and status line
	return 2
}

func (m Model) renderCmd() tea.Cmd {
	render, ctx := m.render, m.ctx
	return func() tea.Msg {
		if render == nil {
			return renderedMsg{}
		}
		content, err := render(ctx)
		return renderedMsg{content: content, err: err}
	}
}
