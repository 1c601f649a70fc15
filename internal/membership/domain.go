package membership

import (
	"strings"
	"time"
)

// Patron represents a library patron as reported by the data service.
type Patron struct {
	ID                 int64      `json:"id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Email              string     `json:"email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Balance            float64    `json:"balance"`
	CardExpirationDate *time.Time `json:"card_expiration_date,omitempty"`
	LocalBranchID      int64      `json:"local_branch_id,omitempty"`
	ActiveCheckouts    int        `json:"active_checkouts,omitempty"`
}

// Name returns the patron's display name.
func (p *Patron) Name() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasOutstandingBalance reports whether the patron owes fines.
func (p *Patron) HasOutstandingBalance() bool {
	return p != nil && p.Balance > 0
}
