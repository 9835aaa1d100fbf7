package presenter

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"smartdocs/internal/reconcile"
)

// TUI presents each comparison in a full-screen bubbletea program.
type TUI struct {
	In  io.Reader
	Out io.Writer

	// AltScreen runs each program in the alternate screen buffer.
	AltScreen bool
}

// NewTUI returns a TUI bound to the given terminal streams.
func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{In: in, Out: out, AltScreen: true}
}

func (t *TUI) options(ctx context.Context) []tea.ProgramOption {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}
	if t.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return opts
}

func (t *TUI) Present(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
	final, err := tea.NewProgram(newCompareModel(cmp), t.options(ctx)...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return reconcile.Reject, ctx.Err()
		}
		return reconcile.Reject, err
	}
	m, ok := final.(compareModel)
	if !ok {
		return reconcile.Reject, reconcile.ErrDismissed
	}
	return m.result()
}

func (t *TUI) Choose(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", reconcile.ErrAbandoned
	}
	final, err := tea.NewProgram(newChooseModel(candidates), t.options(ctx)...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	m, ok := final.(chooseModel)
	if !ok || m.chosen == "" {
		return "", reconcile.ErrAbandoned
	}
	return m.chosen, nil
}

type compareModel struct {
	cmp      reconcile.Comparison
	viewport viewport.Model
	diff     string
	preview  bool
	md       *glamour.TermRenderer
	mdWidth  int
	width    int
	height   int

	decided  bool
	decision reconcile.Decision
	err      error
}

func newCompareModel(cmp reconcile.Comparison) compareModel {
	m := compareModel{
		cmp:      cmp,
		viewport: viewport.New(80, 20),
		diff:     body(cmp),
	}
	m.refresh()
	return m
}

func (m compareModel) Init() tea.Cmd { return nil }

func (m compareModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = clamp(msg.Height-4, 3, msg.Height)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "a", "y":
			m.decided, m.decision = true, reconcile.Accept
			return m, tea.Quit
		case "r", "n":
			m.decided, m.decision = true, reconcile.Reject
			return m, tea.Quit
		case "esc", "s":
			m.err = reconcile.ErrDismissed
			return m, tea.Quit
		case "q", "ctrl+c":
			m.err = reconcile.ErrAbandoned
			return m, tea.Quit
		case "p", "tab":
			m.preview = !m.preview
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m compareModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(header(m.cmp)))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	mode := "p: preview"
	if m.preview {
		mode = "p: diff"
	}
	b.WriteString(mutedStyle.Render("a: accept  r: reject  esc: skip  q: quit  " + mode + "  ↑/↓: scroll"))
	return b.String()
}

func (m *compareModel) refresh() {
	content := m.diff
	if m.preview {
		content = m.renderPreview()
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *compareModel) renderPreview() string {
	text := m.cmp.Key + "\n\n" + m.cmp.NewBody
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if m.md == nil || m.mdWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("ascii"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.md, m.mdWidth = r, width
	}
	out, err := m.md.Render(text)
	if err != nil {
		return text
	}
	return out
}

func (m compareModel) result() (reconcile.Decision, error) {
	if m.err != nil {
		return reconcile.Reject, m.err
	}
	if !m.decided {
		return reconcile.Reject, reconcile.ErrDismissed
	}
	return m.decision, nil
}

type chooseModel struct {
	candidates []string
	index      int
	chosen     string
}

func newChooseModel(candidates []string) chooseModel {
	return chooseModel{candidates: candidates}
}

func (m chooseModel) Init() tea.Cmd { return nil }

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		m.index = clamp(m.index-1, 0, len(m.candidates)-1)
	case "down", "j":
		m.index = clamp(m.index+1, 0, len(m.candidates)-1)
	case "enter":
		m.chosen = m.candidates[m.index]
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m chooseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select the document to update"))
	b.WriteString("\n\n")
	for i, c := range m.candidates {
		if i == m.index {
			b.WriteString(selectedStyle.Render("> " + c))
		} else {
			b.WriteString("  " + c)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("↑/↓: move  enter: select  q: quit"))
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
