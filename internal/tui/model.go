// Package tui is the terminal rendition of the support desk form.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/comigor/support-agent/internal/desk"
	"github.com/comigor/support-agent/internal/session"
	"github.com/comigor/support-agent/internal/ticket"
)

type processedMsg struct {
	entry desk.Entry
	err   error
}

// Model is the bubbletea model of the terminal form.
type Model struct {
	ctx     context.Context
	desk    *desk.Service
	sess    *session.Session
	saveDir string

	input     textarea.Model
	spinner   spinner.Model
	sourceIdx int
	busy      bool

	result  *desk.Entry
	notice  *desk.Notice
	saved   string
	history []desk.Entry

	styles styles
}

// New returns the form for one session. Saved replies are written to saveDir.
func New(ctx context.Context, d *desk.Service, sess *session.Session, saveDir string) Model {
	input := textarea.New()
	input.Placeholder = "Paste the support ticket here..."
	input.CharLimit = 0
	input.SetWidth(80)
	input.SetHeight(8)
	input.Focus()

	return Model{
		ctx:     ctx,
		desk:    d,
		sess:    sess,
		saveDir: saveDir,
		input:   input,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:  newStyles(),
	}
}

// Run shows the form until the user quits.
func Run(ctx context.Context, d *desk.Service, sess *session.Session, saveDir string) error {
	_, err := tea.NewProgram(New(ctx, d, sess, saveDir), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Source returns the selected ticket source.
func (m Model) Source() ticket.Source {
	return ticket.Sources[m.sourceIdx]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case processedMsg:
		m.busy = false
		m.saved = ""
		if msg.err != nil {
			notice := desk.Describe(msg.err)
			m.notice = &notice
			m.result = nil
			return m, nil
		}
		m.notice = nil
		m.result = &msg.entry
		m.refreshHistory()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.busy {
			// one action at a time
			return m, nil
		}
		switch msg.String() {
		case "tab":
			m.sourceIdx = (m.sourceIdx + 1) % len(ticket.Sources)
			return m, nil
		case "shift+tab":
			m.sourceIdx = (m.sourceIdx + len(ticket.Sources) - 1) % len(ticket.Sources)
			return m, nil
		case "ctrl+s":
			return m.process()
		case "ctrl+l":
			m.clear()
			return m, nil
		case "ctrl+d":
			m.saveReply()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) process() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		notice := desk.Describe(ticket.ErrEmptyTicket)
		m.notice = &notice
		return m, nil
	}
	m.busy = true
	m.notice = nil

	ctx, d, sess, source := m.ctx, m.desk, m.sess, m.Source()
	submit := func() tea.Msg {
		entry, err := d.Submit(ctx, sess, text, source)
		return processedMsg{entry: entry, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, submit)
}

func (m *Model) clear() {
	if err := m.desk.Clear(m.sess); err != nil {
		notice := desk.Describe(err)
		m.notice = &notice
		return
	}
	m.history = nil
	m.notice = nil
}

func (m *Model) saveReply() {
	if m.result == nil {
		m.notice = &desk.Notice{Level: desk.LevelWarning, Message: "Process a ticket before saving its reply"}
		return
	}
	path := filepath.Join(m.saveDir, desk.ReplyFilename(m.result.Timestamp))
	if err := os.WriteFile(path, []byte(m.result.Reply), 0o644); err != nil {
		m.notice = &desk.Notice{Level: desk.LevelError, Message: "Could not save reply: " + err.Error()}
		return
	}
	m.saved = path
}

func (m *Model) refreshHistory() {
	entries, err := m.desk.History(m.sess)
	if err != nil {
		notice := desk.Describe(err)
		m.notice = &notice
		return
	}
	m.history = entries
}

func (m Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("AI Customer Support Agent"))
	b.WriteString("\n\n")
	b.WriteString(s.label.Render("Ticket Source: "))
	b.WriteString(s.source.Render("< " + string(m.Source()) + " >"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(s.help.Render("tab source • ctrl+s process ticket • ctrl+l clear history • ctrl+d save reply • esc quit"))
	b.WriteString("\n\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " Analyzing ticket...\n\n")
	}
	if n := m.notice; n != nil {
		style := s.warning
		if n.Level == desk.LevelError {
			style = s.failure
		}
		b.WriteString(style.Render(n.Message))
		b.WriteString("\n")
		if n.Hint != "" {
			b.WriteString(s.hint.Render(n.Hint))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if r := m.result; r != nil {
		b.WriteString(s.success.Render("Ticket processed successfully!"))
		b.WriteString("\n\n")
		b.WriteString(s.heading.Render("Ticket Summary"))
		b.WriteString("\n" + r.Summary + "\n\n")
		b.WriteString(s.heading.Render("Suggested Reply"))
		b.WriteString("\n" + r.Reply + "\n")
		if m.saved != "" {
			b.WriteString(s.muted.Render("Saved to " + m.saved))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString(s.heading.Render("Ticket History (Learning from Past Interactions)"))
		b.WriteString("\n")
		cards := make([]string, 0, len(m.history))
		for _, e := range m.history {
			cards = append(cards, s.box.Render(fmt.Sprintf("Ticket #%d - %s (%s)\n%s\n%s",
				e.Number, e.Source, e.Timestamp.Format(time.DateTime),
				s.muted.Render(e.Excerpt), e.Summary)))
		}
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, cards...))
		b.WriteString("\n")
	}
	return b.String()
}
