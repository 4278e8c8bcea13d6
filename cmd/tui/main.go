package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/spendsight/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/spendsight/internal/app"
	"github.com/MrJamesThe3rd/spendsight/internal/config"
)

const logFile = "spendsight-tui.log"

type model struct {
	app       *app.App
	sessionID string

	currentView View

	insightView      view.InsightModel
	askView          view.AskModel
	transactionsView view.TransactionsModel
	importView       view.ImportModel
}

type View int

const (
	ViewMenu         View = 0
	ViewInsight      View = 1
	ViewAsk          View = 2
	ViewTransactions View = 3
	ViewImport       View = 4
)

func initialModel(a *app.App) model {
	sessionID := uuid.NewString()

	m := model{
		app:              a,
		sessionID:        sessionID,
		currentView:      ViewMenu,
		transactionsView: view.NewTransactionsModel(a.Transactions, a.Guard),
		importView:       view.NewImportModel(a.Transactions, a.Importer),
	}

	if a.Insight != nil {
		m.insightView = view.NewInsightModel(a.Insight, sessionID)
		m.askView = view.NewAskModel(a.Insight, sessionID)
	}

	return m
}

func (m model) agentReady() bool {
	return m.app.Insight != nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				if !m.agentReady() {
					return m, nil
				}

				m.currentView = ViewInsight
				m.insightView = view.NewInsightModel(m.app.Insight, m.sessionID)

				return m, m.insightView.Init()
			case "2":
				if !m.agentReady() {
					return m, nil
				}

				m.currentView = ViewAsk
				m.askView = view.NewAskModel(m.app.Insight, m.sessionID)

				return m, m.askView.Init()
			case "3":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.app.Transactions, m.app.Guard)

				return m, m.transactionsView.Init()
			case "4":
				m.currentView = ViewImport
				return m, m.importView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewInsight:
		var newModel tea.Model
		newModel, cmd = m.insightView.Update(msg)
		m.insightView = newModel.(view.InsightModel)
	case ViewAsk:
		var newModel tea.Model
		newModel, cmd = m.askView.Update(msg)
		m.askView = newModel.(view.AskModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		agentNote := ""
		if !m.agentReady() {
			agentNote = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).
				Render("\n(insights unavailable: LLM provider not configured, see " + logFile + ")\n")
		}

		return lipgloss.NewStyle().Padding(2).Render(
			"Spendsight TUI\n\n" +
				"1. Monthly Spending Insight\n" +
				"2. Ask a Question\n" +
				"3. Browse Transactions\n" +
				"4. Import Ledger\n" +
				agentNote + "\n" +
				"q. Quit",
		)
	case ViewInsight:
		return m.insightView.View()
	case ViewAsk:
		return m.askView.View()
	case ViewTransactions:
		return m.transactionsView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	logger := slog.New(slog.NewTextHandler(f, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger, app.WithAuditOutput(f))
	if err != nil {
		logger.Warn("insight agent unavailable, starting without it", "error", err)

		a, err = app.New(ctx, cfg, logger, app.WithoutAgent())
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
	}
	defer a.Close()

	p := tea.NewProgram(initialModel(a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
