package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/lorekeep/lorekeep/internal/chat"
	"github.com/lorekeep/lorekeep/internal/stream"
)

// Theme holds the color scheme for the turn view.
type Theme struct {
	Status lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
}

var defaultTheme = Theme{
	Status: lipgloss.Color("#5FAFD7"), // light blue
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// eventMsg carries one applied stream event into the view.
type eventMsg struct {
	ev chat.Event
}

// streamEndMsg signals the dispatcher finished, possibly with a transport error.
type streamEndMsg struct {
	err error
}

// turnModel renders one streaming assistant turn: phase spinner while the
// server works, accumulated tokens as they arrive.
type turnModel struct {
	chatID  string
	state   chat.State
	content string
	spinner spinner.Model
	theme   Theme
	done    bool
	err     error
}

func newTurnModel(chatID string) turnModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return turnModel{
		chatID:  chatID,
		state:   chat.NewState(),
		spinner: sp,
		theme:   defaultTheme,
	}
}

func (m turnModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m turnModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			m.done = true
			return m, tea.Quit
		}

	case eventMsg:
		ev := msg.ev
		if ev.Type == chat.EventOutput {
			if ev.Payload.Kind == chat.OutputMessage {
				m.content = ""
			}
			m.content += ev.Payload.Content
			return m, nil
		}
		m.state = chat.Reduce(m.state, ev)
		if m.state.Phase.Terminal() {
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case streamEndMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m turnModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m turnModel) renderContent() string {
	var b strings.Builder

	if m.content != "" {
		b.WriteString(m.content)
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(m.theme.errorStyle().Render(fmt.Sprintf("✗ %v", m.err)))
		b.WriteString("\n")
	case m.state.Phase == chat.PhaseError:
		b.WriteString(m.theme.errorStyle().Render(fmt.Sprintf("✗ %s", m.state.Err)))
		b.WriteString("\n")
	case !m.done:
		label := m.state.StatusLabel
		if label == "" {
			label = string(m.state.Phase)
		}
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.statusStyle().Render(" " + label))
		b.WriteString(m.theme.hintStyle().Render("  (ctrl+c to detach)"))
		b.WriteString("\n")
	}

	return b.String()
}

// runTurnView runs the interactive turn UI, pumping dispatcher events into
// the bubbletea program.
func runTurnView(ctx context.Context, src stream.Source, chatID string) error {
	p := tea.NewProgram(newTurnModel(chatID))

	d := stream.NewDispatcher(src, svc, logger, stream.WithObserver(func(ev chat.Event) {
		p.Send(eventMsg{ev: ev})
	}))

	go func() {
		err := d.Run(ctx)
		p.Send(streamEndMsg{err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("turn UI error: %w", err)
	}

	if m, ok := finalModel.(turnModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
