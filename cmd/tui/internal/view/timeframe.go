package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
)

// rangePreset is a named window relative to today, both ends inclusive.
type rangePreset struct {
	label  string
	bounds func(today time.Time) (from, to time.Time)
}

func lastDays(n int) func(time.Time) (time.Time, time.Time) {
	return func(today time.Time) (time.Time, time.Time) {
		return today.AddDate(0, 0, -(n - 1)), today
	}
}

var rangePresets = []rangePreset{
	{label: "Last 7 days", bounds: lastDays(7)},
	{label: "Month to date", bounds: func(today time.Time) (time.Time, time.Time) {
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today
	}},
	{label: "Previous month", bounds: func(today time.Time) (time.Time, time.Time) {
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1)
	}},
	{label: "Last 30 days", bounds: lastDays(30)},
	{label: "Last 90 days", bounds: lastDays(90)},
	{label: "Year to date", bounds: func(today time.Time) (time.Time, time.Time) {
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today
	}},
}

const customLabel = "Custom range"

// TimeframeSelectedMsg carries the chosen window as calendar dates in UTC.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
}

// TimeframePicker offers the presets that fit the guard's range limit today,
// plus a custom range form checked against the same limit.
type TimeframePicker struct {
	guard  *guardrail.Enforcer
	cursor int

	form  *huh.Form
	dates *customDates
	err   error
}

type customDates struct {
	from string
	to   string
}

func NewTimeframePicker(guard *guardrail.Enforcer) TimeframePicker {
	return TimeframePicker{guard: guard}
}

// options lists the presets whose window passes ValidateRange today.
func (m TimeframePicker) options() []rangePreset {
	today := guardrail.DateOnly(m.guard.Now())

	var out []rangePreset

	for _, p := range rangePresets {
		if m.guard.ValidateRange(p.bounds(today)) == nil {
			out = append(out, p)
		}
	}

	return out
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.form != nil {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	opts := m.options()

	switch keyMsg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(opts) {
			m.cursor++
		}
	case "enter":
		if m.cursor == len(opts) {
			m.dates = &customDates{}
			m.form = m.buildCustomForm()

			return m, m.form.Init()
		}

		from, to := opts[m.cursor].bounds(guardrail.DateOnly(m.guard.Now()))

		return m, selected(from, to)
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form, m.dates, m.err = nil, nil, nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	from, to, err := m.customRange()
	if err != nil {
		m.err = err
		m.form = m.buildCustomForm()

		return m, m.form.Init()
	}

	m.form, m.dates, m.err = nil, nil, nil

	return m, selected(from, to)
}

// customRange parses the form values and applies the guard's range rules.
func (m TimeframePicker) customRange() (time.Time, time.Time, error) {
	from, err := time.Parse(time.DateOnly, strings.TrimSpace(m.dates.from))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date")
	}

	to, err := time.Parse(time.DateOnly, strings.TrimSpace(m.dates.to))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date")
	}

	if err := m.guard.ValidateRange(from, to); err != nil {
		return time.Time{}, time.Time{}, err
	}

	return from, to, nil
}

func (m TimeframePicker) buildCustomForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("From").
				Placeholder(time.DateOnly).
				CharLimit(10).
				Value(&m.dates.from).
				Validate(validateDate),
			huh.NewInput().
				Title("To").
				Placeholder(time.DateOnly).
				CharLimit(10).
				Value(&m.dates.to).
				Validate(validateDate),
		),
	).WithWidth(30).WithShowHelp(false)
}

func validateDate(s string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}

	return nil
}

func selected(from, to time.Time) tea.Cmd {
	from, to = guardrail.DateOnly(from), guardrail.DateOnly(to)

	return func() tea.Msg {
		return TimeframeSelectedMsg{Start: from, End: to}
	}
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.form != nil {
		b.WriteString(fmt.Sprintf("Custom range, at most %d days apart:\n\n", m.guard.Limits().MaxRangeDays))
		b.WriteString(m.form.View())
		b.WriteString(mutedStyle.Render("\n(Esc: back to presets)"))
	} else {
		b.WriteString("Select timeframe:\n\n")

		opts := m.options()
		for i := 0; i <= len(opts); i++ {
			label := customLabel
			if i < len(opts) {
				label = opts[i].label
			}

			cursor := " "
			if i == m.cursor {
				cursor = ">"
			}

			b.WriteString(fmt.Sprintf("%s %s\n", cursor, label))
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()))
	}

	return b.String()
}

// IsSelecting reports whether the preset list is showing.
func (m TimeframePicker) IsSelecting() bool {
	return m.form == nil
}

func (m *TimeframePicker) Reset() {
	m.cursor = 0
	m.form, m.dates, m.err = nil, nil, nil
}
