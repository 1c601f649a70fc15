package catalog

import (
	"errors"
	"time"
)

var (
	ErrCopyNotSelectable = errors.New("copy is not available for checkout")
	ErrCopyNotCheckedOut = errors.New("copy is not checked out")
)

// ItemType classifies a library item.
type ItemType string

const (
	ItemTypeBook       ItemType = "BOOK"
	ItemTypeMagazine   ItemType = "MAGAZINE"
	ItemTypePeriodical ItemType = "PERIODICAL"
	ItemTypeRecording  ItemType = "RECORDING"
	ItemTypeAudiobook  ItemType = "AUDIOBOOK"
	ItemTypeVideo      ItemType = "VIDEO"
	ItemTypeCD         ItemType = "CD"
	ItemTypeVinyl      ItemType = "VINYL"
)

var itemTypeLabels = map[ItemType]string{
	ItemTypeBook:       "Book",
	ItemTypeMagazine:   "Magazine",
	ItemTypePeriodical: "Periodical",
	ItemTypeRecording:  "Recording",
	ItemTypeAudiobook:  "Audiobook",
	ItemTypeVideo:      "Video",
	ItemTypeCD:         "CD",
	ItemTypeVinyl:      "Vinyl",
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	_, ok := itemTypeLabels[t]
	return ok
}

// Label returns the display label, or "Unknown" for values outside the enumeration.
func (t ItemType) Label() string {
	if label, ok := itemTypeLabels[t]; ok {
		return label
	}
	return "Unknown"
}

// Condition is the physical condition of a copy.
type Condition string

const (
	ConditionNew       Condition = "New"
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

// Conditions lists the selectable conditions in display order.
var Conditions = []Condition{ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

func (c Condition) Label() string {
	if c.Valid() {
		return string(c)
	}
	return "Unknown"
}

// CopyStatus is the circulation status of a copy.
type CopyStatus string

const (
	StatusAvailable  CopyStatus = "Available"
	StatusCheckedOut CopyStatus = "Checked Out"
	StatusReserved   CopyStatus = "Reserved"
	StatusProcessing CopyStatus = "Processing"
	StatusUnshelved  CopyStatus = "Unshelved"
	StatusDamaged    CopyStatus = "Damaged"
	StatusLost       CopyStatus = "Lost"
)

func (s CopyStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusCheckedOut, StatusReserved, StatusProcessing,
		StatusUnshelved, StatusDamaged, StatusLost:
		return true
	}
	return false
}

func (s CopyStatus) Label() string {
	if s.Valid() {
		return string(s)
	}
	return "Unknown"
}

// Item represents a book or other library item.
type Item struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	ItemType        ItemType  `json:"item_type"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// Year returns the publication year, or 0 when unknown.
func (i *Item) Year() int {
	if i == nil || i.PublicationYear == nil {
		return 0
	}
	return *i.PublicationYear
}

// Copy is a physical instance of an Item held by a branch.
type Copy struct {
	ID              int64      `json:"id"`
	LibraryItemID   int64      `json:"library_item_id"`
	Title           string     `json:"title,omitempty"`
	ItemType        ItemType   `json:"item_type,omitempty"`
	Condition       Condition  `json:"condition"`
	Status          CopyStatus `json:"status"`
	OwningBranchID  int64      `json:"owning_branch_id"`
	CurrentBranchID int64      `json:"current_branch_id"`
	BranchName      string     `json:"branch_name,omitempty"`
	Cost            *float64   `json:"cost,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// Selectable reports whether the copy may be picked for checkout.
func (c *Copy) Selectable() bool {
	return c != nil && c.Status == StatusAvailable
}

// CopyFilter narrows a copy listing. Zero values mean "any".
type CopyFilter struct {
	BranchID int64
	Status   CopyStatus
}

// NewCopy is the payload for creating a copy.
type NewCopy struct {
	LibraryItemID  int64      `json:"library_item_id" validate:"required,gt=0"`
	OwningBranchID int64      `json:"owning_branch_id" validate:"required,gt=0"`
	Condition      Condition  `json:"condition,omitempty" validate:"omitempty,oneof=New Excellent Good Fair Poor"`
	Status         CopyStatus `json:"status,omitempty"`
	Cost           *float64   `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Notes          string     `json:"notes,omitempty"`
}

// CheckedOutCopy is a copy currently on loan, joined with its borrower.
type CheckedOutCopy struct {
	Copy
	TransactionID int64     `json:"transaction_id"`
	PatronID      int64     `json:"patron_id"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	CheckoutDate  time.Time `json:"checkout_date"`
	DueDate       time.Time `json:"due_date"`
}
