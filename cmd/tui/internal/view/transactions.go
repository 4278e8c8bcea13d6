package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/summary"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

type txState int

const (
	txStateAccount txState = iota
	txStateTimeframe
	txStateList
)

// TransactionsModel browses an account's guarded listing for a date range.
type TransactionsModel struct {
	CommonModel
	txService *transaction.Service

	state           txState
	form            *huh.Form
	timeframePicker TimeframePicker
	table           table.Model

	// accountID is shared with the form, which binds to its address.
	accountID *string
	listing   *transaction.Listing
	loading   bool
	err       error
}

func NewTransactionsModel(txSvc *transaction.Service, guard *guardrail.Enforcer) TransactionsModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Amount", Width: 12},
		{Title: "Category", Width: 16},
		{Title: "Merchant", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := TransactionsModel{
		txService:       txSvc,
		timeframePicker: NewTimeframePicker(guard),
		table:           t,
		accountID:       new(string),
	}
	m.form = m.buildAccountForm()

	return m
}

func (m TransactionsModel) Title() string { return "Browse Transactions" }

func (m TransactionsModel) ShortHelp() string {
	switch m.state {
	case txStateTimeframe:
		return "Esc: back | Enter: select"
	case txStateList:
		return "Esc: back | t: change timeframe"
	}

	return "Esc: back | Enter: confirm"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.state = txStateList
		m.loading = true

		return m, m.loadCmd(msg)

	case loadTxsMsg:
		m.loading = false
		m.err = msg.err
		m.listing = msg.listing
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil
	}

	switch m.state {
	case txStateAccount:
		return m.updateAccount(msg)
	case txStateTimeframe:
		return m.updateTimeframe(msg)
	case txStateList:
		return m.updateList(msg)
	}

	return m, nil
}

func (m TransactionsModel) updateAccount(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	m.state = txStateTimeframe

	return m, nil
}

func (m TransactionsModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			m.state = txStateAccount
			m.form = m.buildAccountForm()

			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m TransactionsModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "t":
			m.state = txStateTimeframe
			m.timeframePicker.Reset()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) buildAccountForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account").
				Title("Account ID").
				Placeholder("A123").
				Value(m.accountID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("account id is required")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)
}

func (m *TransactionsModel) refreshTable() {
	if m.listing == nil {
		m.table.SetRows(nil)
		return
	}

	rows := make([]table.Row, len(m.listing.Transactions))
	for i, tx := range m.listing.Transactions {
		rows[i] = table.Row{FormatDate(tx.Date), FormatAmount(tx.Amount), tx.Category, tx.Merchant}
	}

	m.table.SetRows(rows)
	m.table.GotoTop()
}

func (m TransactionsModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case txStateAccount:
		return style.Render(m.form.View())
	case txStateTimeframe:
		return style.Render(fmt.Sprintf("Account %s\n\n%s", *m.accountID, m.timeframePicker.View()))
	}

	if m.loading {
		return style.Render("Loading transactions...")
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(t: change timeframe, Esc: back)")
	}

	footer := fmt.Sprintf("%d transactions, total %s", len(m.listing.Transactions), FormatAmount(summary.Sum(m.listing.Transactions)))
	if m.listing.Truncated {
		footer += errorStyle.Render(fmt.Sprintf("  (showing first %d of %d)", len(m.listing.Transactions), m.listing.Matched))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Account %s", *m.accountID),
		"",
		tableView,
		mutedStyle.Render(footer),
	))
}

type loadTxsMsg struct {
	listing *transaction.Listing
	err     error
}

func (m TransactionsModel) loadCmd(tf TimeframeSelectedMsg) tea.Cmd {
	accountID := strings.TrimSpace(*m.accountID)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		listing, err := m.txService.List(ctx, accountID, tf.Start, tf.End)

		return loadTxsMsg{listing: listing, err: err}
	}
}
