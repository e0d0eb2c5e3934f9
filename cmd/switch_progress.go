package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/cookie-accounts-cli/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	stepDoneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stepFailedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type switchPhaseMsg application.SwitchPhase

type switchDoneMsg struct {
	err error
}

// switchProgressModel lists the switch phases seen so far. The last one is
// running until the next phase or the result arrives.
type switchProgressModel struct {
	spinner spinner.Model
	account string
	phases  []application.SwitchPhase
	work    tea.Cmd
	err     error
	done    bool
}

func newSwitchProgressModel(account string, work tea.Cmd) switchProgressModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return switchProgressModel{spinner: s, account: account, work: work}
}

func (m switchProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m switchProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case switchPhaseMsg:
		m.phases = append(m.phases, application.SwitchPhase(msg))
		return m, nil
	case switchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m switchProgressModel) View() string {
	if len(m.phases) == 0 {
		if m.done {
			return ""
		}
		return fmt.Sprintf("%s Switching to %s...", m.spinner.View(), m.account)
	}

	var b strings.Builder
	last := len(m.phases) - 1
	for i, phase := range m.phases {
		label := m.phaseLabel(phase)
		switch {
		case i < last, m.done && m.err == nil:
			b.WriteString(stepDoneStyle.Render("✓ " + label))
		case m.done:
			b.WriteString(stepFailedStyle.Render("✗ " + label))
		default:
			b.WriteString(m.spinner.View() + " " + label)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m switchProgressModel) phaseLabel(phase application.SwitchPhase) string {
	switch phase {
	case application.SwitchPhaseTearingDown:
		return "Tearing down previous session"
	case application.SwitchPhaseAcquiring:
		return "Acquiring a session for " + m.account
	case application.SwitchPhaseApplying:
		return "Applying cookies"
	case application.SwitchPhaseSaving:
		return "Saving current account"
	default:
		return string(phase)
	}
}

// runSwitchProgress shows the phases work reports through its ctx on output
// and returns work's error.
func runSwitchProgress(ctx context.Context, output io.Writer, account string, work func(context.Context) error) error {
	var p *tea.Program
	trace := &application.SwitchTrace{
		Phase: func(phase application.SwitchPhase) { p.Send(switchPhaseMsg(phase)) },
	}
	workCmd := func() tea.Msg {
		return switchDoneMsg{err: work(application.WithSwitchTrace(ctx, trace))}
	}

	p = tea.NewProgram(
		newSwitchProgressModel(account, workCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(switchProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return result.err
}
