package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type workDoneMsg struct {
	err error
}

// spinnerModel shows a spinner next to label until work finishes.
type spinnerModel struct {
	label   string
	spinner spinner.Model
	work    tea.Cmd
	cancel  context.CancelFunc

	done    bool
	aborted bool
	err     error
}

func newSpinnerModel(label string, work tea.Cmd, cancel context.CancelFunc) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(spinnerStyle),
	)
	return spinnerModel{label: label, spinner: s, work: work, cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.aborted = true
			m.cancel()
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}

// Spin runs fn while showing a spinner on out. The context passed to fn is
// cancelled when the user presses ctrl+c, in which case Spin returns
// ErrAborted without waiting for fn.
func Spin(ctx context.Context, in io.Reader, out io.Writer, label string, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := func() tea.Msg {
		return workDoneMsg{err: fn(ctx)}
	}
	p := tea.NewProgram(newSpinnerModel(label, work, cancel),
		tea.WithInput(in), tea.WithOutput(out), tea.WithContext(ctx))
	final, err := p.Run()
	m, _ := final.(spinnerModel)
	switch {
	case m.aborted:
		return ErrAborted
	case m.done:
		return m.err
	case err != nil:
		return fmt.Errorf("running spinner: %w", err)
	}
	return nil
}
