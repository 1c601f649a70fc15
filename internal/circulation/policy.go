package circulation

import (
	"math"
	"time"

	"librarydesk/internal/catalog"
)

const (
	// DefaultFinePerDay is charged for every started day past the due date.
	DefaultFinePerDay = 0.5

	newReleaseLoanDays = 3
	videoLoanDays      = 14
	standardLoanDays   = 28
)

// Calculator computes due dates and overdue fines relative to its clock.
type Calculator struct {
	now        func() time.Time
	finePerDay float64
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithClock replaces time.Now as the calculator's notion of "now".
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) {
		c.now = now
	}
}

// WithFinePerDay overrides DefaultFinePerDay.
func WithFinePerDay(amount float64) CalculatorOption {
	return func(c *Calculator) {
		c.finePerDay = amount
	}
}

func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		now:        time.Now,
		finePerDay: DefaultFinePerDay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FinePerDay returns the configured daily fine.
func (c *Calculator) FinePerDay() float64 {
	return c.finePerDay
}

// DueDate returns the due date for a loan starting now. Videos published in the
// current calendar year are new releases; the year must match exactly.
func (c *Calculator) DueDate(itemType catalog.ItemType, publicationYear int) time.Time {
	now := c.now()
	if itemType == catalog.ItemTypeVideo {
		if publicationYear == now.Year() {
			return now.AddDate(0, 0, newReleaseLoanDays)
		}
		return now.AddDate(0, 0, videoLoanDays)
	}
	return now.AddDate(0, 0, standardLoanDays)
}

// IsOverdue reports whether due is strictly before now.
func (c *Calculator) IsOverdue(due time.Time) bool {
	return c.now().After(due)
}

// DaysOverdue returns the number of started days past due, or 0 when not overdue.
// The elapsed time is taken as an absolute value before rounding up; IsOverdue is
// what keeps a future due date at zero.
func (c *Calculator) DaysOverdue(due time.Time) int {
	if !c.IsOverdue(due) {
		return 0
	}
	elapsed := c.now().Sub(due)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return int(math.Ceil(elapsed.Hours() / 24))
}

// Fine returns the overdue fine for due at the configured daily rate.
func (c *Calculator) Fine(due time.Time) float64 {
	return c.FineAt(due, c.finePerDay)
}

// FineAt returns the overdue fine for due at perDay.
func (c *Calculator) FineAt(due time.Time, perDay float64) float64 {
	return float64(c.DaysOverdue(due)) * perDay
}

// CardExpired reports whether a patron card with the given expiration has lapsed.
// A missing expiration never expires.
func (c *Calculator) CardExpired(expiration *time.Time) bool {
	if expiration == nil {
		return false
	}
	return c.IsOverdue(*expiration)
}
