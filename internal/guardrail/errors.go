package guardrail

import (
	"errors"
	"fmt"
)

// ValidationError rejects a request before any agent work is done.
// The exported sentinels are compared with errors.Is.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	ErrInvalidAccountID = &ValidationError{Reason: "invalid account identifier"}
	ErrInvalidYear      = &ValidationError{Reason: "invalid year"}
	ErrInvalidMonth     = &ValidationError{Reason: "invalid month"}
	ErrFutureMonth      = &ValidationError{Reason: "future month not allowed"}
)

// ErrInvalidRange is returned when a listing window ends before it starts.
var ErrInvalidRange = errors.New("invalid date range, to date is before from date")

// RangeTooLargeError is returned when a listing window spans more days than allowed.
type RangeTooLargeError struct {
	MaxDays int
	Days    int
}

func (e *RangeTooLargeError) Error() string {
	return fmt.Sprintf("date range too large, max %d days", e.MaxDays)
}

// IsValidation reports whether err is one of the request validation failures.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
