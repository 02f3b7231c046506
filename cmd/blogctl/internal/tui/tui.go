// Package tui is the search-as-you-type terminal view behind
// "blogctl search -i". It drives a session.Session and redraws on every
// snapshot the session publishes.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/session"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	postStyle    = lipgloss.NewStyle().Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	resultMargin = lipgloss.NewStyle().PaddingLeft(2)
)

type keyMap struct {
	Quit     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Clear    key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	NextPage: key.NewBinding(key.WithKeys("pgdown", "ctrl+n"), key.WithHelp("ctrl+n", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("pgup", "ctrl+p"), key.WithHelp("ctrl+p", "prev page")),
	Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
}

type Options struct {
	// Query pre-fills the input.
	Query   string
	Session session.Options
}

type snapshotMsg session.Snapshot

type closedMsg struct{}

type model struct {
	input textinput.Model
	sess  *session.Session
	snap  session.Snapshot
	width int
}

func newModel(sess *session.Session, query string) model {
	ti := textinput.New()
	ti.Placeholder = "search in English or हिंदी"
	ti.Prompt = "› "
	ti.PromptStyle = promptStyle
	ti.CharLimit = 200
	ti.Focus()
	if query != "" {
		ti.SetValue(query)
		sess.OnQueryChange(query)
	}
	return model{input: ti, sess: sess, snap: sess.Snapshot(), width: 80}
}

func waitForSnapshot(updates <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.sess.Updates()))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		return m, waitForSnapshot(m.sess.Updates())

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.NextPage):
			m.sess.SetPage(m.snap.Result.Page + 1)
			return m, nil
		case key.Matches(msg, keys.PrevPage):
			m.sess.SetPage(max(m.snap.Result.Page-1, 1))
			return m, nil
		case key.Matches(msg, keys.Clear):
			m.input.SetValue("")
			m.sess.Clear()
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.sess.OnQueryChange(v)
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Blog search"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	res := m.snap.Result
	switch {
	case strings.TrimSpace(m.snap.RawQuery) == "":
		b.WriteString(metaStyle.Render("Type to search in English or Hindi."))
	case m.snap.Translating:
		b.WriteString(metaStyle.Render("Translating…"))
	case res.TotalMatches == 0:
		b.WriteString(warnStyle.Render(fmt.Sprintf("No posts match %q.", strings.TrimSpace(m.snap.RawQuery))))
	default:
		if t := res.AppliedTranslation; t != nil {
			b.WriteString(noticeStyle.Render(fmt.Sprintf("Searching for %s → %s", t.From, t.To)))
			b.WriteString("\n\n")
		}
		for _, p := range res.Posts {
			b.WriteString(resultMargin.Render(renderPost(p, m.width-4)))
			b.WriteString("\n")
		}
		b.WriteString(metaStyle.Render(fmt.Sprintf("page %d of %d · %d matches", res.Page, res.TotalPages, res.TotalMatches)))
	}

	b.WriteString(helpStyle.Render(helpLine()))
	b.WriteString("\n")
	return b.String()
}

func renderPost(p content.Post, width int) string {
	title := p.Title
	if width > 0 && lipgloss.Width(title) > width {
		r := []rune(title)
		if len(r) > width {
			title = string(r[:max(width-1, 1)]) + "…"
		}
	}
	return postStyle.Render(title) + "\n" + metaStyle.Render(p.Category+" · "+p.Date)
}

func helpLine() string {
	parts := make([]string, 0, 4)
	for _, k := range []key.Binding{keys.NextPage, keys.PrevPage, keys.Clear, keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, posts []content.Post, resolver session.Resolver, opts Options) error {
	sess := session.New(ctx, posts, resolver, opts.Session)
	defer sess.Close()

	p := tea.NewProgram(newModel(sess, opts.Query), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
