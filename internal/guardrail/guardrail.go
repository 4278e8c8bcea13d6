// Package guardrail holds the rules that bound everything crossing the trust
// boundary between callers, the agent and the transaction data: request
// validation, listing windows, result volume, identifier redaction and
// response length. Every rule is enforced here regardless of what the agent
// decides to do.
package guardrail

import (
	"regexp"
	"time"
)

var accountIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

// Limits configures the enforcer.
type Limits struct {
	MinYear       int
	MaxRangeDays  int
	MaxResults    int
	MaxWords      int
	HardWordLimit bool
}

func DefaultLimits() Limits {
	return Limits{
		MinYear:      2020,
		MaxRangeDays: 90,
		MaxResults:   500,
		MaxWords:     300,
	}
}

type Enforcer struct {
	limits Limits
	now    func() time.Time
}

// New returns an enforcer. A nil clock means time.Now.
func New(limits Limits, now func() time.Time) *Enforcer {
	if now == nil {
		now = time.Now
	}

	return &Enforcer{limits: limits, now: now}
}

func (e *Enforcer) Limits() Limits {
	return e.limits
}

// Now exposes the enforcer clock so callers compute "current month" the same way.
func (e *Enforcer) Now() time.Time {
	return e.now()
}

func (e *Enforcer) ValidateAccountID(accountID string) error {
	if !accountIDPattern.MatchString(accountID) {
		return ErrInvalidAccountID
	}

	return nil
}

// ValidatePeriod checks the year bound, the month bound and rejects months
// that have not started yet, in that order.
func (e *Enforcer) ValidatePeriod(year, month int) error {
	now := e.now()

	if year < e.limits.MinYear || year > now.Year() {
		return ErrInvalidYear
	}

	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}

	if year == now.Year() && month > int(now.Month()) {
		return ErrFutureMonth
	}

	return nil
}

// ValidateRequest runs every check that must pass before the agent is invoked.
func (e *Enforcer) ValidateRequest(accountID string, year, month int) error {
	if err := e.ValidateAccountID(accountID); err != nil {
		return err
	}

	return e.ValidatePeriod(year, month)
}

// ValidateRange accepts windows whose day difference is at most MaxRangeDays.
// Both ends are calendar days; the time of day is ignored.
func (e *Enforcer) ValidateRange(from, to time.Time) error {
	from, to = DateOnly(from), DateOnly(to)

	if to.Before(from) {
		return ErrInvalidRange
	}

	days := int(to.Sub(from).Hours() / 24)
	if days > e.limits.MaxRangeDays {
		return &RangeTooLargeError{MaxDays: e.limits.MaxRangeDays, Days: days}
	}

	return nil
}

// Truncate keeps the first limit items in the order given. The second return
// value reports whether anything was dropped.
func Truncate[T any](items []T, limit int) ([]T, bool) {
	if limit <= 0 || len(items) <= limit {
		return items, false
	}

	return items[:limit], true
}

// DateOnly strips the clock and location from t.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthWindow returns the first and last calendar day of the month.
func MonthWindow(year, month int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	return first, last
}
