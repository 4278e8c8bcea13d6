package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/spendsight/internal/insight"
)

const insightTimeout = 2 * time.Minute

type insightState int

const (
	insightStateForm insightState = iota
	insightStateGenerating
	insightStateResult
)

type InsightModel struct {
	CommonModel
	insightService *insight.Service
	sessionID      string

	state    insightState
	form     *huh.Form
	spinner  spinner.Model
	viewport viewport.Model
	err      error

	// fields is shared with the form, which binds to its addresses.
	fields *insightFields
}

type insightFields struct {
	accountID string
	year      string
	month     string
}

func NewInsightModel(svc *insight.Service, sessionID string) InsightModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	now := time.Now()

	m := InsightModel{
		insightService: svc,
		sessionID:      sessionID,
		spinner:        s,
		viewport:       viewport.New(80, 20),
		fields: &insightFields{
			year:  strconv.Itoa(now.Year()),
			month: strconv.Itoa(int(now.Month())),
		},
	}
	m.form = m.buildForm()

	return m
}

func (m InsightModel) Title() string { return "Monthly Spending Insight" }

func (m InsightModel) ShortHelp() string {
	switch m.state {
	case insightStateResult:
		return "↑/↓: scroll | n: new insight | Esc: back"
	case insightStateGenerating:
		return "Generating..."
	}

	return "Esc: back | Enter: confirm"
}

func (m InsightModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m InsightModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.Width, m.Height = size.Width, size.Height
		m.viewport.Width = size.Width - 4
		m.viewport.Height = size.Height - 8
	}

	switch m.state {
	case insightStateForm:
		return m.updateForm(msg)
	case insightStateGenerating:
		return m.updateGenerating(msg)
	case insightStateResult:
		return m.updateResult(msg)
	}

	return m, nil
}

func (m InsightModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = insightStateGenerating
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.generateCmd())
}

func (m InsightModel) updateGenerating(msg tea.Msg) (tea.Model, tea.Cmd) {
	if result, ok := msg.(insightResultMsg); ok {
		m.state = insightStateResult
		m.err = result.err
		m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(result.text))
		m.viewport.GotoTop()

		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)

	return m, cmd
}

func (m InsightModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "n":
			m.state = insightStateForm
			m.form = m.buildForm()

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

func (m InsightModel) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account").
				Title("Account ID").
				Placeholder("A123").
				Value(&m.fields.accountID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("account id is required")
					}
					return nil
				}),
			huh.NewInput().
				Key("year").
				Title("Year").
				Value(&m.fields.year).
				Validate(validateNumber),
			huh.NewInput().
				Key("month").
				Title("Month").
				Description("1-12").
				Value(&m.fields.month).
				Validate(validateNumber),
		),
	).WithWidth(45).WithShowHelp(false)
}

func validateNumber(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return errors.New("must be a number")
	}

	return nil
}

func (m InsightModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case insightStateForm:
		return style.Render(m.form.View())
	case insightStateGenerating:
		return style.Render(fmt.Sprintf("%s Analysing %s for %s-%s...", m.spinner.View(), m.fields.accountID, m.fields.year, m.fields.month))
	case insightStateResult:
		if m.err != nil {
			return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(n: try again, Esc: back)")
		}

		header := successStyle.Bold(true).Render(fmt.Sprintf("Insight for %s-%s", m.fields.year, m.fields.month))

		return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewport.View()))
	}

	return ""
}

type insightResultMsg struct {
	text string
	err  error
}

func (m InsightModel) generateCmd() tea.Cmd {
	accountID := strings.TrimSpace(m.fields.accountID)
	year, _ := strconv.Atoi(strings.TrimSpace(m.fields.year))
	month, _ := strconv.Atoi(strings.TrimSpace(m.fields.month))

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), insightTimeout)
		defer cancel()

		text, err := m.insightService.Generate(ctx, m.sessionID, accountID, year, month)
		if err != nil {
			return insightResultMsg{err: err}
		}

		return insightResultMsg{text: text}
	}
}
