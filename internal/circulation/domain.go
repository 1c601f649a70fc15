package circulation

import (
	"time"

	"librarydesk/internal/catalog"
)

// TransactionStatus is the lifecycle status of a loan.
type TransactionStatus string

const (
	StatusActive    TransactionStatus = "Active"
	StatusReturned  TransactionStatus = "Returned"
	StatusOverdue   TransactionStatus = "Overdue"
	StatusLost      TransactionStatus = "Lost"
	StatusCompleted TransactionStatus = "Completed"
)

func (s TransactionStatus) Label() string {
	switch s {
	case StatusActive, StatusReturned, StatusOverdue, StatusLost, StatusCompleted:
		return string(s)
	}
	return "Unknown"
}

// Transaction represents an item copy checked out by a patron.
type Transaction struct {
	ID              int64             `json:"id"`
	PatronID        int64             `json:"patron_id"`
	CopyID          int64             `json:"copy_id"`
	TransactionType string            `json:"transaction_type"`
	CheckoutDate    time.Time         `json:"checkout_date"`
	DueDate         time.Time         `json:"due_date"`
	ReturnDate      *time.Time        `json:"return_date,omitempty"`
	FineAmount      float64           `json:"fine_amount"`
	Notes           string            `json:"notes,omitempty"`
	Status          TransactionStatus `json:"status"`
}

// Receipt is the joined record returned after a checkout or check-in commit.
type Receipt struct {
	Transaction
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Email     string            `json:"email,omitempty"`
	Title     string            `json:"title,omitempty"`
	ItemType  catalog.ItemType  `json:"item_type,omitempty"`
	Condition catalog.Condition `json:"condition,omitempty"`
}

// CheckoutRequest is the checkout command payload.
type CheckoutRequest struct {
	PatronID int64 `json:"patron_id" validate:"required,gt=0"`
	CopyID   int64 `json:"copy_id" validate:"required,gt=0"`
}

// CheckinRequest is the check-in command payload.
type CheckinRequest struct {
	CopyID        int64             `json:"copy_id" validate:"required,gt=0"`
	NewCondition  catalog.Condition `json:"new_condition" validate:"required,oneof=New Excellent Good Fair Poor"`
	NewLocationID int64             `json:"new_location_id" validate:"required,gt=0"`
	Notes         string            `json:"notes,omitempty"`
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	PatronID int64
	Status   TransactionStatus
}

// Stats are the aggregate counters shown on the dashboard.
type Stats struct {
	BorrowedItems         int     `json:"borrowed_items"`
	AvailableItems        int     `json:"available_items"`
	UnshelvedItems        int     `json:"unshelved_items"`
	ReservedItems         int     `json:"reserved_items"`
	TotalReservations     int     `json:"total_reservations"`
	TotalActivePatrons    int     `json:"total_active_patrons"`
	OverdueItems          int     `json:"overdue_items"`
	TotalOutstandingFines float64 `json:"total_outstanding_fines"`
}
