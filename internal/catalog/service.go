package catalog

import (
	"context"
)

// Service defines the catalog queries and commands offered by the data service.
type Service interface {
	ListItems(ctx context.Context) ([]*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	ListCopies(ctx context.Context, filter CopyFilter) ([]*Copy, error)
	ListCopiesByItem(ctx context.Context, itemID int64) ([]*Copy, error)
	GetCopy(ctx context.Context, id int64) (*Copy, error)
	ListUnshelvedCopies(ctx context.Context, branchID int64) ([]*Copy, error)
	ListCheckedOutCopies(ctx context.Context, branchID int64) ([]*CheckedOutCopy, error)
	CreateCopy(ctx context.Context, copy NewCopy) (*Copy, error)
	ReshelveCopy(ctx context.Context, copyID int64) (*Copy, error)
}
