package presenter

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdocs/internal/reconcile"
)

func usage() reconcile.Comparison {
	return reconcile.Comparison{
		Key:     "## Usage",
		Index:   1,
		Total:   3,
		OldBody: "v1",
		NewBody: "v2",
	}
}

func TestUnifiedDiff(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		d := UnifiedDiff(usage())
		assert.Contains(t, d, "--- current")
		assert.Contains(t, d, "+++ proposed")
		assert.Contains(t, d, "-v1")
		assert.Contains(t, d, "+v2")
	})

	t.Run("identical", func(t *testing.T) {
		cmp := usage()
		cmp.NewBody = cmp.OldBody
		assert.Empty(t, UnifiedDiff(cmp))
		assert.Contains(t, body(cmp), "No textual changes.")
	})

	t.Run("new section", func(t *testing.T) {
		cmp := reconcile.Comparison{Key: "## FAQ", Total: 1, NewBody: "q\na", IsNew: true}
		d := UnifiedDiff(cmp)
		assert.Contains(t, d, "--- (none)")
		assert.Contains(t, d, "+q")
		assert.Contains(t, d, "+a")
	})
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "[2/3] ## Usage", header(usage()))

	cmp := usage()
	cmp.IsNew, cmp.OldBody = true, ""
	assert.Equal(t, "[2/3] ## Usage (new section)", header(cmp))

	cmp = usage()
	cmp.NewBody = cmp.OldBody
	assert.Equal(t, "[2/3] ## Usage (unchanged)", header(cmp))
}

func TestPrompt_Present(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    reconcile.Decision
		wantErr error
	}{
		{name: "accept", input: "a\n", want: reconcile.Accept},
		{name: "accept word", input: "Accept\n", want: reconcile.Accept},
		{name: "reject", input: "r\n", want: reconcile.Reject},
		{name: "skip", input: "s\n", want: reconcile.Reject, wantErr: reconcile.ErrDismissed},
		{name: "quit", input: "q\n", want: reconcile.Reject, wantErr: reconcile.ErrAbandoned},
		{name: "eof", input: "", want: reconcile.Reject, wantErr: reconcile.ErrDismissed},
		{name: "retry after garbage", input: "maybe\n\na\n", want: reconcile.Accept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)

			got, err := p.Present(context.Background(), usage())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "## Usage")
			assert.Contains(t, out.String(), "+v2")
		})
	}
}

func TestPrompt_SequentialAnswers(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(strings.NewReader("a\nr\n"), &out)
	ctx := context.Background()

	first, err := p.Present(ctx, usage())
	require.NoError(t, err)
	second, err := p.Present(ctx, usage())
	require.NoError(t, err)
	third, err := p.Present(ctx, usage())

	assert.Equal(t, reconcile.Accept, first)
	assert.Equal(t, reconcile.Reject, second)
	assert.Equal(t, reconcile.Reject, third)
	assert.ErrorIs(t, err, reconcile.ErrDismissed)
}

func TestPrompt_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPrompt(pr, io.Discard)

	done := make(chan error, 1)
	go func() {
		_, err := p.Present(ctx, usage())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Present did not return after cancellation")
	}
}

func TestPrompt_Choose(t *testing.T) {
	candidates := []string{"API.md", "README.md"}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "by number", input: "2\n", want: "README.md"},
		{name: "by name", input: "API.md\n", want: "API.md"},
		{name: "out of range then valid", input: "3\n1\n", want: "API.md"},
		{name: "quit", input: "q\n", wantErr: reconcile.ErrAbandoned},
		{name: "eof", input: "", wantErr: reconcile.ErrAbandoned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := NewPrompt(strings.NewReader(tt.input), &out).Choose(context.Background(), candidates)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "1) API.md")
		})
	}
}

func TestScripted(t *testing.T) {
	s := &Scripted{
		Default:   reconcile.Reject,
		Decisions: map[string]reconcile.Decision{"## Usage": reconcile.Accept},
	}
	ctx := context.Background()

	d, err := s.Present(ctx, usage())
	require.NoError(t, err)
	assert.Equal(t, reconcile.Accept, d)

	d, err = s.Present(ctx, reconcile.Comparison{Key: "## FAQ"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.Reject, d)

	assert.Equal(t, []string{"## Usage", "## FAQ"}, s.Seen())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Present(cancelled, usage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannel(t *testing.T) {
	t.Run("answers in order", func(t *testing.T) {
		c := NewChannel()
		go func() {
			for cmp := range c.Requests() {
				if cmp.Key == "## Usage" {
					c.Answers() <- Answer{Decision: reconcile.Accept}
				} else {
					c.Answers() <- Answer{Decision: reconcile.Reject, Err: reconcile.ErrDismissed}
				}
			}
		}()

		d, err := c.Present(context.Background(), usage())
		require.NoError(t, err)
		assert.Equal(t, reconcile.Accept, d)

		d, err = c.Present(context.Background(), reconcile.Comparison{Key: "## FAQ"})
		assert.ErrorIs(t, err, reconcile.ErrDismissed)
		assert.Equal(t, reconcile.Reject, d)
	})

	t.Run("closed answers abandon", func(t *testing.T) {
		c := NewChannel()
		go func() {
			<-c.Requests()
			close(c.answers)
		}()

		_, err := c.Present(context.Background(), usage())
		assert.ErrorIs(t, err, reconcile.ErrAbandoned)
	})

	t.Run("cancelled while waiting", func(t *testing.T) {
		c := NewChannel()
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Present(ctx, usage())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCompareModel_Keys(t *testing.T) {
	tests := []struct {
		key     string
		want    reconcile.Decision
		wantErr error
	}{
		{key: "a", want: reconcile.Accept},
		{key: "r", want: reconcile.Reject},
		{key: "esc", want: reconcile.Reject, wantErr: reconcile.ErrDismissed},
		{key: "q", want: reconcile.Reject, wantErr: reconcile.ErrAbandoned},
		{key: "ctrl+c", want: reconcile.Reject, wantErr: reconcile.ErrAbandoned},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			model, cmd := newCompareModel(usage()).Update(key(tt.key))
			require.NotNil(t, cmd)

			got, err := model.(compareModel).result()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompareModel_ViewAndPreview(t *testing.T) {
	m := newCompareModel(usage())

	model, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = model.(compareModel)
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 26, m.viewport.Height)

	view := m.View()
	assert.Contains(t, view, "[2/3] ## Usage")
	assert.Contains(t, view, "+v2")
	assert.Contains(t, view, "p: preview")

	model, cmd := m.Update(key("p"))
	assert.Nil(t, cmd)
	m = model.(compareModel)
	assert.True(t, m.preview)
	assert.Contains(t, m.View(), "p: diff")
	assert.Contains(t, m.View(), "v2")

	_, err := m.result()
	assert.ErrorIs(t, err, reconcile.ErrDismissed)
}

func TestChooseModel(t *testing.T) {
	m := newChooseModel([]string{"API.md", "README.md"})

	model, _ := m.Update(key("down"))
	model, _ = model.Update(key("down"))
	m = model.(chooseModel)
	assert.Equal(t, 1, m.index)
	assert.Contains(t, m.View(), "> README.md")

	model, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, "README.md", model.(chooseModel).chosen)

	model, cmd = newChooseModel([]string{"API.md"}).Update(key("q"))
	require.NotNil(t, cmd)
	assert.Empty(t, model.(chooseModel).chosen)
}

func TestTUI_Present(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	tui := &TUI{In: strings.NewReader("a"), Out: &out}

	got, err := tui.Present(ctx, usage())
	require.NoError(t, err)
	assert.Equal(t, reconcile.Accept, got)
}
