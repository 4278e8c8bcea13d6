package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/spendsight/internal/insight"
)

type askState int

const (
	askStateInput askState = iota
	askStateThinking
	askStateAnswer
)

// AskModel sends free-form questions down the reduced-guardrail path. Every
// answer is shown with a warning banner.
type AskModel struct {
	CommonModel
	insightService *insight.Service
	sessionID      string

	state    askState
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	question string
	err      error
}

func NewAskModel(svc *insight.Service, sessionID string) AskModel {
	ti := textinput.New()
	ti.Placeholder = "How much did I spend on dining last month?"
	ti.CharLimit = 500
	ti.Width = 70
	ti.Prompt = "? "
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return AskModel{
		insightService: svc,
		sessionID:      sessionID,
		input:          ti,
		spinner:        s,
		viewport:       viewport.New(80, 18),
	}
}

func (m AskModel) Title() string { return "Ask a Question" }

func (m AskModel) ShortHelp() string {
	if m.state == askStateAnswer {
		return "↑/↓: scroll | Enter: ask another | Esc: back"
	}

	return "Enter: ask | Esc: back"
}

func (m AskModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m AskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10

		return m, nil

	case askResultMsg:
		m.state = askStateAnswer
		m.err = msg.err
		m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(msg.text))
		m.viewport.GotoTop()

		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, Back
		case tea.KeyEnter:
			return m.submit()
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case askStateInput:
		m.input, cmd = m.input.Update(msg)
	case askStateThinking:
		m.spinner, cmd = m.spinner.Update(msg)
	case askStateAnswer:
		m.viewport, cmd = m.viewport.Update(msg)
	}

	return m, cmd
}

func (m AskModel) submit() (tea.Model, tea.Cmd) {
	switch m.state {
	case askStateAnswer:
		m.state = askStateInput
		m.input.SetValue("")
		m.input.Focus()

		return m, textinput.Blink
	case askStateThinking:
		return m, nil
	}

	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return m, nil
	}

	m.question = q
	m.state = askStateThinking
	m.input.Blur()

	return m, tea.Batch(m.spinner.Tick, m.askCmd(q))
}

func (m AskModel) View() string {
	banner := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Render("Reduced guardrails: answers are not redacted or length checked.")

	var body string

	switch m.state {
	case askStateInput:
		body = m.input.View()
	case askStateThinking:
		body = fmt.Sprintf("%s Thinking about %q...", m.spinner.View(), m.question)
	case askStateAnswer:
		if m.err != nil {
			body = errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
		} else {
			body = lipgloss.JoinVertical(lipgloss.Left, mutedStyle.Render(m.question), "", m.viewport.View())
		}
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, banner, "", body))
}

type askResultMsg struct {
	text string
	err  error
}

func (m AskModel) askCmd(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), insightTimeout)
		defer cancel()

		text, err := m.insightService.Analyse(ctx, m.sessionID, query)

		return askResultMsg{text: text, err: err}
	}
}
