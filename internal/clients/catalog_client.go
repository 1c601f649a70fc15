package clients

import (
	"context"
	"fmt"
	"net/http"

	"librarydesk/internal/catalog"
)

func (c *DataServiceClient) ListItems(ctx context.Context) ([]*catalog.Item, error) {
	items, err := read[[]*catalog.Item](ctx, c, "list_items", "/library-items", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list library items: %w", err)
	}
	return items, nil
}

func (c *DataServiceClient) GetItem(ctx context.Context, id int64) (*catalog.Item, error) {
	item, err := read[*catalog.Item](ctx, c, "get_item", idPath("/library-items/%d", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get library item %d: %w", id, err)
	}
	return item, nil
}

func (c *DataServiceClient) ListCopies(ctx context.Context, filter catalog.CopyFilter) ([]*catalog.Copy, error) {
	q := branchQuery(filter.BranchID)
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	copies, err := read[[]*catalog.Copy](ctx, c, "list_copies", "/copies", q)
	if err != nil {
		return nil, fmt.Errorf("failed to list copies: %w", err)
	}
	return copies, nil
}

func (c *DataServiceClient) ListCopiesByItem(ctx context.Context, itemID int64) ([]*catalog.Copy, error) {
	copies, err := read[[]*catalog.Copy](ctx, c, "list_item_copies", idPath("/library-items/%d/copies", itemID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list copies of item %d: %w", itemID, err)
	}
	return copies, nil
}

func (c *DataServiceClient) GetCopy(ctx context.Context, id int64) (*catalog.Copy, error) {
	found, err := read[*catalog.Copy](ctx, c, "get_copy", idPath("/copies/%d", id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get copy %d: %w", id, err)
	}
	return found, nil
}

func (c *DataServiceClient) ListUnshelvedCopies(ctx context.Context, branchID int64) ([]*catalog.Copy, error) {
	copies, err := read[[]*catalog.Copy](ctx, c, "list_unshelved_copies", "/copies/unshelved", branchQuery(branchID))
	if err != nil {
		return nil, fmt.Errorf("failed to list unshelved copies: %w", err)
	}
	return copies, nil
}

func (c *DataServiceClient) ListCheckedOutCopies(ctx context.Context, branchID int64) ([]*catalog.CheckedOutCopy, error) {
	copies, err := read[[]*catalog.CheckedOutCopy](ctx, c, "list_checked_out_copies", "/copies/checked-out", branchQuery(branchID))
	if err != nil {
		return nil, fmt.Errorf("failed to list checked out copies: %w", err)
	}
	return copies, nil
}

func (c *DataServiceClient) CreateCopy(ctx context.Context, newCopy catalog.NewCopy) (*catalog.Copy, error) {
	created, err := write[*catalog.Copy](ctx, c, "create_copy", http.MethodPost, "/copies", newCopy)
	if err != nil {
		return nil, fmt.Errorf("failed to create copy: %w", err)
	}
	return created, nil
}

func (c *DataServiceClient) ReshelveCopy(ctx context.Context, copyID int64) (*catalog.Copy, error) {
	body := map[string]int64{"copy_id": copyID}
	shelved, err := write[*catalog.Copy](ctx, c, "reshelve_copy", http.MethodPost, idPath("/copies/%d/reshelve", copyID), body)
	if err != nil {
		return nil, fmt.Errorf("failed to reshelve copy %d: %w", copyID, err)
	}
	return shelved, nil
}
